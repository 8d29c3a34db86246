package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/crypto/bcrypt"

	"github.com/evcraddock/estate-crm/internal/auth"
	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
	"github.com/evcraddock/estate-crm/internal/repository"
	"github.com/evcraddock/estate-crm/internal/store"
	"github.com/evcraddock/estate-crm/internal/web"
)

const testPassword = "password123"

type fixture struct {
	url   string
	admin model.User
	agent model.User
}

// testServer runs the real API over a temporary database.
func testServer(t *testing.T) fixture {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if cerr := d.Close(); cerr != nil {
			t.Errorf("close db: %v", cerr)
		}
	})

	users := repository.NewUserRepository(d)
	users.SetHashCost(bcrypt.MinCost)
	ctx := context.Background()
	admin, err := users.Create(ctx, model.NewUser{Email: "admin@example.com", FullName: "Ada Admin", Role: model.RoleAdmin, Password: testPassword})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	agent, err := users.Create(ctx, model.NewUser{Email: "agent@example.com", FullName: "Sam Agent", Role: model.RoleUser, Password: testPassword})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}

	sessions := auth.NewSessionStore(d, auth.NewTokens("test-secret"), time.Hour)
	srv := web.NewServer(d, sessions,
		web.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		web.WithHashCost(bcrypt.MinCost),
	)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return fixture{url: ts.URL, admin: admin, agent: agent}
}

func signedIn(t *testing.T, f fixture, email string) *Client {
	t.Helper()
	c := New(f.url, "")
	if _, err := c.SignIn(context.Background(), email, testPassword); err != nil {
		t.Fatalf("sign in %s: %v", email, err)
	}
	return c
}

func TestSignInAndOut(t *testing.T) {
	f := testServer(t)
	ctx := context.Background()
	c := New(f.url, "")

	if _, err := c.SignIn(ctx, "agent@example.com", "wrong-password"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong password err = %v, want ErrUnauthorized", err)
	}

	sess, err := c.SignIn(ctx, "agent@example.com", testPassword)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if c.Token() != sess.Token {
		t.Error("expected client to keep the session token")
	}

	got, err := c.Session(ctx)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if got.UserID != f.agent.ID {
		t.Errorf("session user = %q, want %q", got.UserID, f.agent.ID)
	}

	if err := c.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if c.Token() != "" {
		t.Error("expected token to be cleared")
	}

	// The old token is revoked server-side.
	c.SetToken(sess.Token)
	if _, err := c.Session(ctx); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("revoked session err = %v, want ErrUnauthorized", err)
	}
}

func TestPropertyRoundTrip(t *testing.T) {
	f := testServer(t)
	ctx := context.Background()
	c := signedIn(t, f, "agent@example.com")

	created, err := c.Properties().Create(ctx, model.Property{Title: "Palm Villa", Price: 1200000, Location: "Palm Jumeirah"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.CreatedBy != f.agent.ID {
		t.Errorf("created_by = %q, want %q", created.CreatedBy, f.agent.ID)
	}

	price := 1150000.0
	updated, err := c.Properties().Update(ctx, created.ID, model.PropertyPatch{Price: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Price != price {
		t.Errorf("price = %v, want %v", updated.Price, price)
	}

	props, err := c.Properties().GetByUser(ctx, f.agent.ID, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]model.Property{updated}, props); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}

	if err := c.Properties().Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Properties().Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get deleted err = %v, want ErrNotFound", err)
	}
}

func TestAdminScopeNarrowing(t *testing.T) {
	f := testServer(t)
	ctx := context.Background()
	admin := signedIn(t, f, "admin@example.com")
	agent := signedIn(t, f, "agent@example.com")

	if _, err := admin.Leads().Create(ctx, model.Lead{Name: "Admin Lead"}); err != nil {
		t.Fatalf("create admin lead: %v", err)
	}
	if _, err := agent.Leads().Create(ctx, model.Lead{Name: "Agent Lead"}); err != nil {
		t.Fatalf("create agent lead: %v", err)
	}

	all, err := admin.Leads().GetByUser(ctx, f.admin.ID, true)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("admin sees %d leads, want 2", len(all))
	}

	narrowed, err := admin.Leads().GetByUser(ctx, f.agent.ID, false)
	if err != nil {
		t.Fatalf("list narrowed: %v", err)
	}
	if len(narrowed) != 1 || narrowed[0].Name != "Agent Lead" {
		t.Errorf("narrowed = %+v, want the agent's lead", narrowed)
	}
}

func TestUserService(t *testing.T) {
	f := testServer(t)
	ctx := context.Background()
	admin := signedIn(t, f, "admin@example.com")
	agent := signedIn(t, f, "agent@example.com")

	nu := model.NewUser{Email: "new@example.com", FullName: "New Agent", Role: model.RoleUser, Password: testPassword}
	if _, err := agent.Users().Create(ctx, nu); !errors.Is(err, ErrForbidden) {
		t.Errorf("agent create err = %v, want ErrForbidden", err)
	}
	u, err := admin.Users().Create(ctx, nu)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := admin.Users().Create(ctx, nu); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate err = %v, want ErrConflict", err)
	}

	byEmail, err := agent.Users().GetByEmail(ctx, "NEW@example.com")
	if err != nil {
		t.Fatalf("by email: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("by email id = %q, want %q", byEmail.ID, u.ID)
	}

	toggled, err := admin.Users().ToggleStatus(ctx, u.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if toggled.Status != model.UserStatusInactive {
		t.Errorf("status = %q, want inactive", toggled.Status)
	}

	if err := agent.Users().ChangePassword(ctx, f.agent.ID, "another-password"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if err := admin.Users().Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := admin.Users().GetByID(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get deleted err = %v, want ErrNotFound", err)
	}
}

func TestStoreOverHTTP(t *testing.T) {
	f := testServer(t)
	ctx := context.Background()
	c := signedIn(t, f, "agent@example.com")

	s := store.New(c.Remote(), store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err := s.LoadInitialData(ctx, f.agent.ID, false); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := len(s.Users()); got != 2 {
		t.Errorf("cached %d users, want 2", got)
	}

	p, err := s.CreateProperty(ctx, model.Property{Title: "Creek Loft", Price: 800000})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	if _, ok := s.Property(p.ID); !ok {
		t.Error("expected property in cache")
	}
	acts := s.ActivitiesForUser(f.agent.ID, false)
	if len(acts) != 1 || acts[0].Action != model.ActionPropertyAdded {
		t.Errorf("activities = %+v, want one property_added", acts)
	}

	// A fresh load sees the same state through the server.
	fresh := store.New(c.Remote())
	if err := fresh.LoadInitialData(ctx, f.agent.ID, false); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if diff := cmp.Diff(s.PropertiesForUser(f.agent.ID, false), fresh.PropertiesForUser(f.agent.ID, false)); diff != "" {
		t.Errorf("properties mismatch (-cached +reloaded):\n%s", diff)
	}

	stats := s.GetStats(ctx)
	if stats.TotalProperties != 1 {
		t.Errorf("total properties = %d, want 1", stats.TotalProperties)
	}
}

func TestStoreToggleSuspendedOverHTTP(t *testing.T) {
	f := testServer(t)
	ctx := context.Background()
	admin := signedIn(t, f, "admin@example.com")

	s := store.New(admin.Remote(), store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err := s.LoadInitialData(ctx, f.admin.ID, true); err != nil {
		t.Fatalf("load: %v", err)
	}

	suspended := model.UserStatusSuspended
	if _, err := admin.Users().Update(ctx, f.agent.ID, model.UserPatch{Status: &suspended}); err != nil {
		t.Fatalf("suspend outside the store: %v", err)
	}

	_, err := s.ToggleUserStatus(ctx, f.agent.ID)
	if !errors.Is(err, store.ErrStatusLocked) {
		t.Errorf("err = %v, want store.ErrStatusLocked", err)
	}
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want the 409 kept in the chain", err)
	}
}

func TestErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer testkey" {
			t.Error("expected Bearer testkey")
		}
		switch r.URL.Path {
		case "/api/deals/missing":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			if err := json.NewEncoder(w).Encode(map[string]string{"error": "deal missing: not found"}); err != nil {
				t.Errorf("encode: %v", err)
			}
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "testkey")
	ctx := context.Background()

	_, err := c.Deals().Get(ctx, "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Message != "deal missing: not found" || !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %#v", apiErr)
	}

	_, err = c.Rewards().GetAll(ctx)
	if err == nil || err.Error() != http.StatusText(http.StatusBadGateway) {
		t.Errorf("err = %v, want status text", err)
	}
}

func TestScopeQuery(t *testing.T) {
	tests := []struct {
		userID  string
		isAdmin bool
		want    string
	}{
		{"u1", true, ""},
		{"", false, ""},
		{"u1", false, "?scope=user&user_id=u1"},
	}
	for _, tt := range tests {
		if got := scopeQuery(tt.userID, tt.isAdmin); got != tt.want {
			t.Errorf("scopeQuery(%q, %v) = %q, want %q", tt.userID, tt.isAdmin, got, tt.want)
		}
	}
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(srv.URL, "").Users().GetAll(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}
