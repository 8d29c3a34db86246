package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
)

// PropertyRepository provides CRUD operations for properties.
type PropertyRepository struct {
	db *db.DB
}

// NewPropertyRepository creates a property repository.
func NewPropertyRepository(d *db.DB) *PropertyRepository {
	return &PropertyRepository{db: d}
}

const propertyColumns = `id, title, description, type, status, price, location, area, bedrooms, bathrooms,
	images, videos, documents, features, owner_name, owner_phone, owner_email, created_by, created_at, updated_at`

const insertPropertySQL = `INSERT INTO properties (` + propertyColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// scanProperty scans a property from a database row.
func scanProperty(row scanner) (model.Property, error) {
	var p model.Property
	var description sql.NullString
	var bedrooms, bathrooms sql.NullInt64
	var images, videos, documents, features string

	err := row.Scan(
		&p.ID, &p.Title, &description, &p.Type, &p.Status, &p.Price, &p.Location, &p.Area,
		&bedrooms, &bathrooms, &images, &videos, &documents, &features,
		&p.OwnerName, &p.OwnerPhone, &p.OwnerEmail, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return model.Property{}, err
	}

	p.Description = nullString(description)
	p.Bedrooms = nullInt(bedrooms)
	p.Bathrooms = nullInt(bathrooms)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()

	for _, f := range []struct {
		raw  string
		dest interface{}
	}{
		{images, &p.Images},
		{videos, &p.Videos},
		{documents, &p.Documents},
		{features, &p.Features},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dest); err != nil {
			return model.Property{}, fmt.Errorf("decoding media: %w", err)
		}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Videos == nil {
		p.Videos = []model.MediaFile{}
	}
	if p.Documents == nil {
		p.Documents = []model.MediaFile{}
	}
	if p.Features == nil {
		p.Features = []string{}
	}

	return p, nil
}

// GetAll returns every property, newest first.
func (r *PropertyRepository) GetAll(ctx context.Context) ([]model.Property, error) {
	props, err := queryAll(ctx, r.db, scanProperty,
		"SELECT "+propertyColumns+" FROM properties ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	return props, nil
}

// GetByUser returns the properties visible to the user. Listings are shared
// across the whole agency, so every role sees every property.
func (r *PropertyRepository) GetByUser(ctx context.Context, userID string, isAdmin bool) ([]model.Property, error) {
	return r.GetAll(ctx)
}

// GetByID returns a property by its ID.
func (r *PropertyRepository) GetByID(ctx context.Context, id string) (model.Property, error) {
	return queryOne(ctx, r.db, scanProperty, "property "+id,
		"SELECT "+propertyColumns+" FROM properties WHERE id = ?", id)
}

// Create inserts a new property and returns it with its generated ID.
func (r *PropertyRepository) Create(ctx context.Context, p model.Property) (model.Property, error) {
	if p.Title == "" {
		return model.Property{}, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if p.Type == "" {
		p.Type = model.PropertyTypeApartment
	}
	if !model.ValidPropertyType(string(p.Type)) {
		return model.Property{}, fmt.Errorf("%w: unknown property type %q", ErrInvalid, p.Type)
	}
	if p.Status == "" {
		p.Status = model.PropertyStatusAvailable
	}
	if p.CreatedBy == "" {
		return model.Property{}, fmt.Errorf("%w: created_by is required", ErrInvalid)
	}

	media := make([]string, 4)
	for i, v := range []interface{}{
		nonNil(p.Images), nonNil(p.Videos), nonNil(p.Documents), nonNil(p.Features),
	} {
		s, err := encodeJSON(v)
		if err != nil {
			return model.Property{}, fmt.Errorf("encoding media: %w", err)
		}
		media[i] = s
	}

	p.ID = newID()
	ts := now()

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(insertPropertySQL),
		p.ID, p.Title, p.Description, p.Type, p.Status, p.Price, p.Location, p.Area,
		p.Bedrooms, p.Bathrooms, media[0], media[1], media[2], media[3],
		p.OwnerName, p.OwnerPhone, p.OwnerEmail, p.CreatedBy, ts, ts,
	); err != nil {
		return model.Property{}, fmt.Errorf("inserting property: %w", err)
	}

	return r.GetByID(ctx, p.ID)
}

// Update applies a partial update and returns the stored result.
func (r *PropertyRepository) Update(ctx context.Context, id string, patch model.PropertyPatch) (model.Property, error) {
	var s setter
	if patch.Title != nil {
		s.set("title", *patch.Title)
	}
	if patch.Description != nil {
		s.set("description", *patch.Description)
	}
	if patch.Type != nil {
		if !model.ValidPropertyType(string(*patch.Type)) {
			return model.Property{}, fmt.Errorf("%w: unknown property type %q", ErrInvalid, *patch.Type)
		}
		s.set("type", *patch.Type)
	}
	if patch.Status != nil {
		s.set("status", *patch.Status)
	}
	if patch.Price != nil {
		s.set("price", *patch.Price)
	}
	if patch.Location != nil {
		s.set("location", *patch.Location)
	}
	if patch.Area != nil {
		s.set("area", *patch.Area)
	}
	if patch.Bedrooms != nil {
		s.set("bedrooms", *patch.Bedrooms)
	}
	if patch.Bathrooms != nil {
		s.set("bathrooms", *patch.Bathrooms)
	}
	if patch.Images != nil {
		s.setJSON("images", nonNil(*patch.Images))
	}
	if patch.Videos != nil {
		s.setJSON("videos", nonNil(*patch.Videos))
	}
	if patch.Documents != nil {
		s.setJSON("documents", nonNil(*patch.Documents))
	}
	if patch.Features != nil {
		s.setJSON("features", nonNil(*patch.Features))
	}
	if patch.OwnerName != nil {
		s.set("owner_name", *patch.OwnerName)
	}
	if patch.OwnerPhone != nil {
		s.set("owner_phone", *patch.OwnerPhone)
	}
	if patch.OwnerEmail != nil {
		s.set("owner_email", *patch.OwnerEmail)
	}
	s.set("updated_at", now())

	if err := s.exec(ctx, r.db, "properties", id); err != nil {
		return model.Property{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a property by ID.
func (r *PropertyRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM properties WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("deleting property: %w", err)
	}
	return requireRow(result, "properties", id)
}

// nonNil replaces a nil slice with an empty one so it encodes as [].
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
