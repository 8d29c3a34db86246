package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// AuditLogLimit is how many audit entries the cache retains.
const AuditLogLimit = 500

// Snapshot is a partial before/after view of an audited record. Each entity
// type has its own variant; the variant is selected by the entry's
// EntityType when decoding.
type Snapshot interface {
	SnapshotOf() EntityType
}

// PropertySnapshot carries the audited property fields.
type PropertySnapshot struct {
	Title    *string         `json:"title,omitempty"`
	Price    *float64        `json:"price,omitempty"`
	Status   *PropertyStatus `json:"status,omitempty"`
	Location *string         `json:"location,omitempty"`
}

// SnapshotOf implements Snapshot.
func (PropertySnapshot) SnapshotOf() EntityType { return EntityProperty }

// LeadSnapshot carries the audited lead fields.
type LeadSnapshot struct {
	Name       *string     `json:"name,omitempty"`
	Email      *string     `json:"email,omitempty"`
	Status     *LeadStatus `json:"status,omitempty"`
	AssignedTo *string     `json:"assigned_to,omitempty"`
}

// SnapshotOf implements Snapshot.
func (LeadSnapshot) SnapshotOf() EntityType { return EntityLead }

// DealSnapshot carries the audited deal fields.
type DealSnapshot struct {
	PropertyID       *string     `json:"property_id,omitempty"`
	DealValue        *float64    `json:"deal_value,omitempty"`
	CommissionAmount *float64    `json:"commission_amount,omitempty"`
	Status           *DealStatus `json:"status,omitempty"`
}

// SnapshotOf implements Snapshot.
func (DealSnapshot) SnapshotOf() EntityType { return EntityDeal }

// UserSnapshot carries the audited user fields.
type UserSnapshot struct {
	Email    *string     `json:"email,omitempty"`
	FullName *string     `json:"full_name,omitempty"`
	Role     *Role       `json:"role,omitempty"`
	Status   *UserStatus `json:"status,omitempty"`
}

// SnapshotOf implements Snapshot.
func (UserSnapshot) SnapshotOf() EntityType { return EntityUser }

// AuditLog is an immutable compliance record of a single mutation.
type AuditLog struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Action     string     `json:"action"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	OldValue   Snapshot   `json:"old_value,omitempty"`
	NewValue   Snapshot   `json:"new_value,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// UnmarshalJSON decodes old_value/new_value into the variant matching
// entity_type.
func (a *AuditLog) UnmarshalJSON(data []byte) error {
	type plain AuditLog
	var raw struct {
		plain
		OldValue json.RawMessage `json:"old_value,omitempty"`
		NewValue json.RawMessage `json:"new_value,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = AuditLog(raw.plain)

	var err error
	if a.OldValue, err = DecodeSnapshot(a.EntityType, raw.OldValue); err != nil {
		return fmt.Errorf("old_value: %w", err)
	}
	if a.NewValue, err = DecodeSnapshot(a.EntityType, raw.NewValue); err != nil {
		return fmt.Errorf("new_value: %w", err)
	}
	return nil
}

// DecodeSnapshot decodes raw JSON into the snapshot variant for t.
// Empty input and JSON null decode to a nil Snapshot.
func DecodeSnapshot(t EntityType, raw []byte) (Snapshot, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	switch t {
	case EntityProperty:
		var s PropertySnapshot
		err := json.Unmarshal(raw, &s)
		return s, err
	case EntityLead:
		var s LeadSnapshot
		err := json.Unmarshal(raw, &s)
		return s, err
	case EntityDeal:
		var s DealSnapshot
		err := json.Unmarshal(raw, &s)
		return s, err
	case EntityUser:
		var s UserSnapshot
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	return nil, fmt.Errorf("unknown entity type %q", t)
}

// AuditFilter narrows an audit listing. Empty fields match everything; all
// set fields must match.
type AuditFilter struct {
	UserID     string
	EntityType EntityType
	Action     string // substring match
}
