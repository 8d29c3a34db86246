package repository

import (
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
)

func testDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("closing test db: %v", err)
		}
	})
	return d
}

func testUsers(t *testing.T, d *db.DB) *UserRepository {
	t.Helper()
	r := NewUserRepository(d)
	r.SetHashCost(bcrypt.MinCost)
	return r
}

func strPtr(s string) *string { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int { return &i }
func leadStatus(s model.LeadStatus) *model.LeadStatus { return &s }
