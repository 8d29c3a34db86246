package store

import (
	"context"
	"fmt"

	"github.com/evcraddock/estate-crm/internal/model"
)

// CreateLead creates a lead owned by the current user.
func (s *Store) CreateLead(ctx context.Context, l model.Lead) (model.Lead, error) {
	actor, err := s.actor()
	if err != nil {
		return model.Lead{}, err
	}
	if l.CreatedBy == "" {
		l.CreatedBy = actor
	}

	created, err := s.remote.Leads.Create(ctx, l)
	s.observer.ObserveMutation(model.EntityLead, AuditLeadAdded, err)
	if err != nil {
		return model.Lead{}, fmt.Errorf("creating lead: %w", err)
	}

	w := s.record(ctx, actor, logs{
		activity: activity(model.ActionLeadAdded, model.EntityLead, created.ID, created.Name),
		audit:    audit(AuditLeadAdded, model.EntityLead, created.ID, nil, leadSnapshot(created)),
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = upsert(s.leads, created, leadKey)
	s.appendLogs(w)
	return created, nil
}

// UpdateLead applies a partial update. Moving a lead into the archived
// status is recorded as an archive.
func (s *Store) UpdateLead(ctx context.Context, id string, patch model.LeadPatch) (model.Lead, error) {
	actor, err := s.actor()
	if err != nil {
		return model.Lead{}, err
	}
	prior, had := s.cachedLead(id)

	archiving := patch.Status != nil && *patch.Status == model.LeadStatusArchived &&
		(!had || prior.Status != model.LeadStatusArchived)
	action := AuditLeadUpdated
	if archiving {
		action = AuditLeadArchived
	}

	updated, err := s.remote.Leads.Update(ctx, id, patch)
	s.observer.ObserveMutation(model.EntityLead, action, err)
	if err != nil {
		return model.Lead{}, fmt.Errorf("updating lead %s: %w", id, err)
	}

	l := logs{audit: audit(action, model.EntityLead, id,
		nilIfEmpty(leadSnapshot(prior), had), leadSnapshot(updated))}
	if archiving {
		l.activity = activity(model.ActionLeadArchived, model.EntityLead, id, updated.Name)
	}
	w := s.record(ctx, actor, l)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = upsert(s.leads, updated, leadKey)
	s.appendLogs(w)
	return updated, nil
}

// ArchiveLead sets the lead's status to archived.
func (s *Store) ArchiveLead(ctx context.Context, id string) (model.Lead, error) {
	status := model.LeadStatusArchived
	return s.UpdateLead(ctx, id, model.LeadPatch{Status: &status})
}

// AssignLead hands a lead to another user and notifies them. The
// notification is best effort.
func (s *Store) AssignLead(ctx context.Context, id, assignee string) (model.Lead, error) {
	updated, err := s.UpdateLead(ctx, id, model.LeadPatch{AssignedTo: &assignee})
	if err != nil {
		return model.Lead{}, err
	}
	if assignee == "" || assignee == s.CurrentUserID() {
		return updated, nil
	}

	entity := model.EntityLead
	_, err = s.SendNotification(ctx, model.Notification{
		Type:        model.NotificationLeadAssigned,
		Title:       "New lead assigned",
		Message:     fmt.Sprintf("%s has been assigned to you", updated.Name),
		Priority:    model.PriorityMedium,
		RecipientID: assignee,
		EntityType:  &entity,
		EntityID:    &updated.ID,
	})
	if err != nil {
		s.logger.Warn("notifying lead assignee", "lead_id", id, "assignee", assignee, "error", err)
	}
	return updated, nil
}

// DeleteLead removes a lead from the remote and the cache.
func (s *Store) DeleteLead(ctx context.Context, id string) error {
	actor, err := s.actor()
	if err != nil {
		return err
	}
	prior, had := s.cachedLead(id)

	err = s.remote.Leads.Delete(ctx, id)
	s.observer.ObserveMutation(model.EntityLead, AuditLeadDeleted, err)
	if err != nil {
		return fmt.Errorf("deleting lead %s: %w", id, err)
	}

	w := s.record(ctx, actor, logs{audit: audit(AuditLeadDeleted, model.EntityLead, id,
		nilIfEmpty(leadSnapshot(prior), had), nil)})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = remove(s.leads, id, leadKey)
	s.appendLogs(w)
	return nil
}

func (s *Store) cachedLead(id string) (model.Lead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.leads, id, leadKey)
}
