package store

import (
	"context"

	"github.com/evcraddock/estate-crm/internal/model"
)

// Audit actions written by the store.
const (
	AuditPropertyAdded    = "property_added"
	AuditPropertyUpdated  = "property_updated"
	AuditPropertyDeleted  = "property_deleted"
	AuditPropertyArchived = "property_archived"
	AuditLeadAdded        = "lead_added"
	AuditLeadUpdated      = "lead_updated"
	AuditLeadDeleted      = "lead_deleted"
	AuditLeadArchived     = "lead_archived"
	AuditDealCreated      = "deal_created"
	AuditDealUpdated      = "deal_updated"
	AuditDealDeleted      = "deal_deleted"
	AuditDealClosed       = "deal_closed"
	AuditUserCreated      = "user_created"
	AuditUserUpdated      = "user_updated"
	AuditUserDeleted      = "user_deleted"
	AuditUserStatus       = "user_status_changed"
	AuditPasswordChanged  = "password_changed"
)

// logs is what a mutation asks to have recorded next to its remote write.
type logs struct {
	activity *model.Activity
	audit    model.AuditLog
}

// written holds the entries the remote acknowledged. Either may be nil.
type written struct {
	activity *model.Activity
	audit    *model.AuditLog
}

// record writes the activity (if any) and then the audit entry. Failures are
// logged and reported to the observer, never returned.
func (s *Store) record(ctx context.Context, actor string, l logs) written {
	var w written

	if l.activity != nil {
		a := *l.activity
		a.UserID = actor
		saved, err := s.remote.Activities.Create(ctx, a)
		if err != nil {
			s.logger.Warn("writing activity",
				"action", a.Action, "entity_type", a.EntityType, "entity_id", a.EntityID, "error", err)
			s.observer.ObserveSideEffectFailure("activity", a.EntityType)
		} else {
			w.activity = &saved
		}
	}

	entry := l.audit
	entry.UserID = actor
	saved, err := s.remote.Audit.Create(ctx, entry)
	if err != nil {
		s.logger.Warn("writing audit log",
			"action", entry.Action, "entity_type", entry.EntityType, "entity_id", entry.EntityID, "error", err)
		s.observer.ObserveSideEffectFailure("audit", entry.EntityType)
	} else {
		w.audit = &saved
	}

	return w
}

// appendLogs adds acknowledged entries to the capped feeds. Callers hold s.mu.
func (s *Store) appendLogs(w written) {
	if w.activity != nil {
		s.activities = upsertCapped(s.activities, *w.activity, activityKey, model.ActivityFeedLimit)
	}
	if w.audit != nil {
		s.auditLogs = upsertCapped(s.auditLogs, *w.audit, auditKey, model.AuditLogLimit)
	}
}

func activity(action model.ActivityAction, entity model.EntityType, id, name string) *model.Activity {
	return &model.Activity{Action: action, EntityType: entity, EntityID: id, EntityName: name}
}

func audit(action string, entity model.EntityType, id string, before, after model.Snapshot) model.AuditLog {
	return model.AuditLog{Action: action, EntityType: entity, EntityID: id, OldValue: before, NewValue: after}
}

// nilIfEmpty avoids storing a typed-nil snapshot for records the cache never had.
func nilIfEmpty(s model.Snapshot, ok bool) model.Snapshot {
	if !ok {
		return nil
	}
	return s
}

func propertySnapshot(p model.Property) model.PropertySnapshot {
	return model.PropertySnapshot{Title: &p.Title, Price: &p.Price, Status: &p.Status, Location: &p.Location}
}

func leadSnapshot(l model.Lead) model.LeadSnapshot {
	return model.LeadSnapshot{Name: &l.Name, Email: &l.Email, Status: &l.Status, AssignedTo: l.AssignedTo}
}

func dealSnapshot(d model.Deal) model.DealSnapshot {
	return model.DealSnapshot{
		PropertyID:       &d.PropertyID,
		DealValue:        &d.DealValue,
		CommissionAmount: &d.CommissionAmount,
		Status:           &d.Status,
	}
}

func userSnapshot(u model.User) model.UserSnapshot {
	return model.UserSnapshot{Email: &u.Email, FullName: &u.FullName, Role: &u.Role, Status: &u.Status}
}
