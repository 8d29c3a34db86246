// Package client provides an HTTP client for the estate-crm REST API. Its
// services satisfy the remote interfaces the cache store is built on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/evcraddock/estate-crm/internal/model"
	"github.com/evcraddock/estate-crm/internal/store"
)

// DefaultTimeout bounds every request made with the default HTTP client.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotFound is matched by errors for 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is matched by errors for 401 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is matched by errors for 403 responses.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is matched by errors for 409 responses.
	ErrConflict = model.ErrConflict
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap maps well-known status codes onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusConflict:
		return ErrConflict
	}
	return nil
}

// Client is an HTTP client for the estate-crm API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new API client. token may be empty until SignIn.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token sent with each request.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// SignIn exchanges credentials for a session and keeps its token.
func (c *Client) SignIn(ctx context.Context, email, password string) (model.Session, error) {
	var sess model.Session
	creds := model.Credentials{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/signin", creds, &sess); err != nil {
		return model.Session{}, err
	}
	c.SetToken(sess.Token)
	return sess, nil
}

// SignOut revokes the current session and forgets its token.
func (c *Client) SignOut(ctx context.Context) error {
	if c.Token() == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/auth/signout", nil, nil)
	c.SetToken("")
	return err
}

// Session describes the session behind the current token.
func (c *Client) Session(ctx context.Context) (model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, &sess); err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// Remote bundles the client's services for the cache store.
func (c *Client) Remote() store.Remote {
	return store.Remote{
		Properties:    c.Properties(),
		Leads:         c.Leads(),
		Deals:         c.Deals(),
		Activities:    c.Activities(),
		Audit:         c.Audit(),
		Users:         c.Users(),
		Notifications: c.Notifications(),
		Announcements: c.Announcements(),
		Rewards:       c.Rewards(),
		Referrals:     c.Referrals(),
		Stats:         c.Stats(),
	}
}

// do executes a request with a JSON body and decodes a JSON response.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) (err error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing response body: %w", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
