package store

import (
	"context"
	"fmt"

	"github.com/evcraddock/estate-crm/internal/model"
)

// CreateDeal records a new deal. CommissionAmount is taken as given.
func (s *Store) CreateDeal(ctx context.Context, d model.Deal) (model.Deal, error) {
	actor, err := s.actor()
	if err != nil {
		return model.Deal{}, err
	}
	if d.CreatedBy == nil {
		d.CreatedBy = &actor
	}

	created, err := s.remote.Deals.Create(ctx, d)
	s.observer.ObserveMutation(model.EntityDeal, AuditDealCreated, err)
	if err != nil {
		return model.Deal{}, fmt.Errorf("creating deal: %w", err)
	}

	w := s.record(ctx, actor, logs{
		activity: activity(model.ActionDealCreated, model.EntityDeal, created.ID, s.dealName(created)),
		audit:    audit(AuditDealCreated, model.EntityDeal, created.ID, nil, dealSnapshot(created)),
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals = upsert(s.deals, created, dealKey)
	s.appendLogs(w)
	return created, nil
}

// UpdateDeal applies a partial update. Moving a deal into the closed status
// is recorded as a close and stamps closed_at when the patch leaves it unset.
func (s *Store) UpdateDeal(ctx context.Context, id string, patch model.DealPatch) (model.Deal, error) {
	prior, had := s.cachedDeal(id)

	closing := patch.Status != nil && *patch.Status == model.DealStatusClosed &&
		(!had || prior.Status != model.DealStatusClosed)
	action := AuditDealUpdated
	if closing {
		action = AuditDealClosed
		if patch.ClosedAt == nil {
			at := s.now().UTC()
			patch.ClosedAt = &at
		}
	}
	return s.updateDeal(ctx, id, patch, action, closing)
}

// CloseDeal marks a deal closed.
func (s *Store) CloseDeal(ctx context.Context, id string) (model.Deal, error) {
	status := model.DealStatusClosed
	return s.UpdateDeal(ctx, id, model.DealPatch{Status: &status})
}

// DeleteDeal cancels a deal. Deals are never removed, only invalidated.
func (s *Store) DeleteDeal(ctx context.Context, id string) (model.Deal, error) {
	status := model.DealStatusCancelled
	return s.updateDeal(ctx, id, model.DealPatch{Status: &status}, AuditDealDeleted, false)
}

func (s *Store) updateDeal(ctx context.Context, id string, patch model.DealPatch, action string, closing bool) (model.Deal, error) {
	actor, err := s.actor()
	if err != nil {
		return model.Deal{}, err
	}
	prior, had := s.cachedDeal(id)

	updated, err := s.remote.Deals.Update(ctx, id, patch)
	s.observer.ObserveMutation(model.EntityDeal, action, err)
	if err != nil {
		return model.Deal{}, fmt.Errorf("updating deal %s: %w", id, err)
	}

	l := logs{audit: audit(action, model.EntityDeal, id,
		nilIfEmpty(dealSnapshot(prior), had), dealSnapshot(updated))}
	if closing {
		l.activity = activity(model.ActionDealClosed, model.EntityDeal, id, s.dealName(updated))
	}
	w := s.record(ctx, actor, l)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals = upsert(s.deals, updated, dealKey)
	s.appendLogs(w)
	return updated, nil
}

func (s *Store) cachedDeal(id string) (model.Deal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.deals, id, dealKey)
}

// dealName labels a deal by its property's title when the property is cached.
func (s *Store) dealName(d model.Deal) string {
	if p, ok := s.cachedProperty(d.PropertyID); ok {
		return p.Title
	}
	return "Deal " + d.ID
}
