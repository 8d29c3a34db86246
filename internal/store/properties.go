package store

import (
	"context"
	"fmt"

	"github.com/evcraddock/estate-crm/internal/model"
)

// CreateProperty creates a property owned by the current user.
func (s *Store) CreateProperty(ctx context.Context, p model.Property) (model.Property, error) {
	actor, err := s.actor()
	if err != nil {
		return model.Property{}, err
	}
	if p.CreatedBy == "" {
		p.CreatedBy = actor
	}

	created, err := s.remote.Properties.Create(ctx, p)
	s.observer.ObserveMutation(model.EntityProperty, AuditPropertyAdded, err)
	if err != nil {
		return model.Property{}, fmt.Errorf("creating property: %w", err)
	}

	w := s.record(ctx, actor, logs{
		activity: activity(model.ActionPropertyAdded, model.EntityProperty, created.ID, created.Title),
		audit: audit(AuditPropertyAdded, model.EntityProperty, created.ID, nil, model.PropertySnapshot{
			Title:    &created.Title,
			Price:    &created.Price,
			Location: &created.Location,
		}),
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties = upsert(s.properties, created, propertyKey)
	s.appendLogs(w)
	return created, nil
}

// UpdateProperty applies a partial update. Moving a property into the
// archived status is recorded as an archive.
func (s *Store) UpdateProperty(ctx context.Context, id string, patch model.PropertyPatch) (model.Property, error) {
	actor, err := s.actor()
	if err != nil {
		return model.Property{}, err
	}
	prior, had := s.cachedProperty(id)

	archiving := patch.Status != nil && *patch.Status == model.PropertyStatusArchived &&
		(!had || prior.Status != model.PropertyStatusArchived)
	action := AuditPropertyUpdated
	if archiving {
		action = AuditPropertyArchived
	}

	updated, err := s.remote.Properties.Update(ctx, id, patch)
	s.observer.ObserveMutation(model.EntityProperty, action, err)
	if err != nil {
		return model.Property{}, fmt.Errorf("updating property %s: %w", id, err)
	}

	l := logs{audit: audit(action, model.EntityProperty, id,
		nilIfEmpty(propertySnapshot(prior), had), propertySnapshot(updated))}
	if archiving {
		l.activity = activity(model.ActionPropertyArchived, model.EntityProperty, id, updated.Title)
	}
	w := s.record(ctx, actor, l)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties = upsert(s.properties, updated, propertyKey)
	s.appendLogs(w)
	return updated, nil
}

// ArchiveProperty sets the property's status to archived.
func (s *Store) ArchiveProperty(ctx context.Context, id string) (model.Property, error) {
	status := model.PropertyStatusArchived
	return s.UpdateProperty(ctx, id, model.PropertyPatch{Status: &status})
}

// DeleteProperty removes a property from the remote and the cache.
func (s *Store) DeleteProperty(ctx context.Context, id string) error {
	actor, err := s.actor()
	if err != nil {
		return err
	}
	prior, had := s.cachedProperty(id)

	err = s.remote.Properties.Delete(ctx, id)
	s.observer.ObserveMutation(model.EntityProperty, AuditPropertyDeleted, err)
	if err != nil {
		return fmt.Errorf("deleting property %s: %w", id, err)
	}

	w := s.record(ctx, actor, logs{audit: audit(AuditPropertyDeleted, model.EntityProperty, id,
		nilIfEmpty(propertySnapshot(prior), had), nil)})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties = remove(s.properties, id, propertyKey)
	s.appendLogs(w)
	return nil
}

func (s *Store) cachedProperty(id string) (model.Property, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.properties, id, propertyKey)
}
