package model

import "time"

// LeadStatus is a position in the sales pipeline, or one of the terminal
// (lost) and archival states.
type LeadStatus string

const (
	LeadStatusNew              LeadStatus = "new"
	LeadStatusContacted        LeadStatus = "contacted"
	LeadStatusQualified        LeadStatus = "qualified"
	LeadStatusViewingScheduled LeadStatus = "viewing_scheduled"
	LeadStatusNegotiating      LeadStatus = "negotiating"
	LeadStatusWon              LeadStatus = "won"
	LeadStatusLost             LeadStatus = "lost"
	LeadStatusArchived         LeadStatus = "archived"
)

// PipelineStatuses lists the ordered funnel stages.
var PipelineStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusViewingScheduled,
	LeadStatusNegotiating,
	LeadStatusWon,
}

// ValidLeadStatus returns true if s is a known lead status.
func ValidLeadStatus(s string) bool {
	switch LeadStatus(s) {
	case LeadStatusLost, LeadStatusArchived:
		return true
	}
	return LeadStatus(s).Stage() >= 0
}

// Stage returns the zero-based funnel position, or -1 for statuses outside
// the pipeline.
func (s LeadStatus) Stage() int {
	for i, p := range PipelineStatuses {
		if p == s {
			return i
		}
	}
	return -1
}

// Lead is a prospective buyer or tenant.
type Lead struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Email             string        `json:"email"`
	Phone             string        `json:"phone"`
	Source            string        `json:"source"`
	Status            LeadStatus    `json:"status"`
	BudgetMin         *float64      `json:"budget_min,omitempty"`
	BudgetMax         *float64      `json:"budget_max,omitempty"`
	PreferredType     *PropertyType `json:"preferred_type,omitempty"`
	PreferredLocation *string       `json:"preferred_location,omitempty"`
	Notes             string        `json:"notes"`
	AssignedTo        *string       `json:"assigned_to,omitempty"`
	CreatedBy         string        `json:"created_by"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// VisibleTo reports whether a non-admin user may see the lead: they created
// it or it is assigned to them.
func (l Lead) VisibleTo(userID string) bool {
	if l.CreatedBy == userID {
		return true
	}
	return l.AssignedTo != nil && *l.AssignedTo == userID
}

// LeadPatch is a partial update. Nil fields are left untouched.
type LeadPatch struct {
	Name              *string       `json:"name,omitempty"`
	Email             *string       `json:"email,omitempty"`
	Phone             *string       `json:"phone,omitempty"`
	Source            *string       `json:"source,omitempty"`
	Status            *LeadStatus   `json:"status,omitempty"`
	BudgetMin         *float64      `json:"budget_min,omitempty"`
	BudgetMax         *float64      `json:"budget_max,omitempty"`
	PreferredType     *PropertyType `json:"preferred_type,omitempty"`
	PreferredLocation *string       `json:"preferred_location,omitempty"`
	Notes             *string       `json:"notes,omitempty"`
	AssignedTo        *string       `json:"assigned_to,omitempty"`
}
