package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/evcraddock/estate-crm/internal/model"
)

func TestLeadCreateDefaults(t *testing.T) {
	repo := NewLeadRepository(testDB(t))

	l, err := repo.Create(context.Background(), model.Lead{Name: "Jane Buyer", CreatedBy: "u1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if l.Status != model.LeadStatusNew {
		t.Errorf("status = %q, want new", l.Status)
	}
	if l.AssignedTo != nil {
		t.Errorf("assigned_to = %v, want nil", *l.AssignedTo)
	}
}

func TestLeadGetByUserScoping(t *testing.T) {
	repo := NewLeadRepository(testDB(t))
	ctx := context.Background()

	for _, l := range []model.Lead{
		{Name: "mine", CreatedBy: "agent"},
		{Name: "assigned", CreatedBy: "admin", AssignedTo: strPtr("agent")},
		{Name: "other", CreatedBy: "admin"},
	} {
		if _, err := repo.Create(ctx, l); err != nil {
			t.Fatalf("create %s: %v", l.Name, err)
		}
	}

	tests := []struct {
		name    string
		userID  string
		isAdmin bool
		want    int
	}{
		{"admin sees all", "admin", true, 3},
		{"agent sees own and assigned", "agent", false, 2},
		{"stranger sees none", "nobody", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leads, err := repo.GetByUser(ctx, tt.userID, tt.isAdmin)
			if err != nil {
				t.Fatalf("get by user: %v", err)
			}
			if len(leads) != tt.want {
				t.Errorf("got %d leads, want %d", len(leads), tt.want)
			}
			for _, l := range leads {
				if !tt.isAdmin && !l.VisibleTo(tt.userID) {
					t.Errorf("lead %q not visible to %s", l.Name, tt.userID)
				}
			}
		})
	}
}

func TestLeadUpdateAssignment(t *testing.T) {
	repo := NewLeadRepository(testDB(t))
	ctx := context.Background()

	l, err := repo.Create(ctx, model.Lead{Name: "Sam", CreatedBy: "u1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	l, err = repo.Update(ctx, l.ID, model.LeadPatch{AssignedTo: strPtr("u2"), Status: leadStatus(model.LeadStatusContacted)})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if l.AssignedTo == nil || *l.AssignedTo != "u2" {
		t.Errorf("assigned_to = %v, want u2", l.AssignedTo)
	}
	if l.Status != model.LeadStatusContacted {
		t.Errorf("status = %q, want contacted", l.Status)
	}

	l, err = repo.Update(ctx, l.ID, model.LeadPatch{AssignedTo: strPtr("")})
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if l.AssignedTo != nil {
		t.Errorf("assigned_to = %v, want nil after clearing", *l.AssignedTo)
	}

	if _, err := repo.Update(ctx, l.ID, model.LeadPatch{Status: leadStatus("bogus")}); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid for unknown status", err)
	}
}
