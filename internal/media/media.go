// Package media stores the videos and documents attached to properties.
// Objects live in a filesystem directory or an S3-compatible bucket; the
// property record only keeps the resulting URL.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evcraddock/estate-crm/internal/model"
)

// ErrExists is returned when putting a key that is already stored.
var ErrExists = errors.New("object already exists")

// Kind selects which media list an upload is appended to.
type Kind string

const (
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// ParseKind accepts "video" or "document" (plural forms too).
func ParseKind(s string) (Kind, error) {
	switch strings.TrimSuffix(strings.ToLower(s), "s") {
	case string(KindVideo):
		return KindVideo, nil
	case string(KindDocument):
		return KindDocument, nil
	}
	return "", fmt.Errorf("unknown media kind %q (want video or document)", s)
}

// Object describes a stored blob.
type Object struct {
	Key         string
	URL         string
	Size        int64
	ContentType string
}

// Store is a write-once blob store.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Object, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Key builds the object key for an upload: properties/<id>/<kind>s/<uuid>-<name>.
func Key(propertyID string, kind Kind, id, name string) string {
	base := strings.ReplaceAll(filepath.Base(name), " ", "-")
	return path.Join("properties", propertyID, string(kind)+"s", id+"-"+base)
}

// Upload stores r under a fresh key and returns the media entry to attach.
func Upload(ctx context.Context, s Store, propertyID string, kind Kind, name string, r io.Reader, contentType string) (model.MediaFile, error) {
	id := uuid.NewString()
	obj, err := s.Put(ctx, Key(propertyID, kind, id, name), r, contentType)
	if err != nil {
		return model.MediaFile{}, fmt.Errorf("uploading %s: %w", name, err)
	}
	return model.MediaFile{
		ID:         id,
		URL:        obj.URL,
		Name:       filepath.Base(name),
		ByteSize:   obj.Size,
		UploadedAt: time.Now().UTC().Truncate(time.Second),
	}, nil
}

// AttachPatch returns the patch appending f to the property's media list.
func AttachPatch(p model.Property, kind Kind, f model.MediaFile) model.PropertyPatch {
	var patch model.PropertyPatch
	switch kind {
	case KindVideo:
		videos := append(append([]model.MediaFile(nil), p.Videos...), f)
		patch.Videos = &videos
	case KindDocument:
		docs := append(append([]model.MediaFile(nil), p.Documents...), f)
		patch.Documents = &docs
	}
	return patch
}

// Driver names a Store backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

// Open selects a Store from the environment.
//
//	ECRM_BLOB_DRIVER: fs|s3 (default fs)
//	ECRM_BLOB_FS_ROOT: directory when driver=fs (default ~/.estate-crm/media)
//	ECRM_BLOB_BASE_URL: public URL prefix for stored objects (optional)
//	ECRM_BLOB_S3_BUCKET, ECRM_BLOB_S3_REGION, ECRM_BLOB_S3_ENDPOINT,
//	ECRM_BLOB_S3_PATH_STYLE: S3 settings when driver=s3
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("ECRM_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	baseURL := os.Getenv("ECRM_BLOB_BASE_URL")

	switch Driver(driver) {
	case DriverFilesystem:
		root := os.Getenv("ECRM_BLOB_FS_ROOT")
		if root == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("getting home directory: %w", err)
			}
			root = filepath.Join(home, ".estate-crm", "media")
		}
		return NewFilesystem(root, baseURL)
	case DriverS3:
		bucket := os.Getenv("ECRM_BLOB_S3_BUCKET")
		if bucket == "" {
			return nil, fmt.Errorf("ECRM_BLOB_S3_BUCKET required for s3 driver")
		}
		return NewS3(ctx, S3Config{
			Bucket:    bucket,
			Region:    os.Getenv("ECRM_BLOB_S3_REGION"),
			Endpoint:  os.Getenv("ECRM_BLOB_S3_ENDPOINT"),
			PathStyle: strings.EqualFold(os.Getenv("ECRM_BLOB_S3_PATH_STYLE"), "true"),
			BaseURL:   baseURL,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
