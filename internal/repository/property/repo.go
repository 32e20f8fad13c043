// Package property persists extracted properties as JSON documents in the
// key-value store.
package property

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/urbo-labs/casamatch/internal/db"
	"github.com/urbo-labs/casamatch/internal/domain"
)

const keyPrefix = "casamatch:property:"

// Repository stores and loads properties.
type Repository struct {
	store db.KVStore
}

// New creates a property repository over the given store.
func New(store db.KVStore) *Repository {
	return &Repository{store: store}
}

func key(id string) string { return keyPrefix + id }

// Upsert writes a property document, replacing any previous version.
func (r *Repository) Upsert(ctx context.Context, prop domain.Property) error {
	if prop.ID == "" {
		return fmt.Errorf("property upsert: %w", domain.ErrMalformedRecord)
	}
	raw, err := json.Marshal(prop)
	if err != nil {
		return fmt.Errorf("property marshal %q: %w", prop.ID, err)
	}
	if err := r.store.Set(ctx, key(prop.ID), raw); err != nil {
		return fmt.Errorf("property set %q: %w", prop.ID, err)
	}
	return nil
}

// UpsertBatch writes each property, stopping at the first store failure.
func (r *Repository) UpsertBatch(ctx context.Context, props []domain.Property) error {
	for _, p := range props {
		if err := r.Upsert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Get loads one property by ID.
func (r *Repository) Get(ctx context.Context, id string) (domain.Property, error) {
	raw, err := r.store.Get(ctx, key(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Property{}, fmt.Errorf("property %q: %w", id, domain.ErrPropertyNotFound)
		}
		return domain.Property{}, fmt.Errorf("property get %q: %w", id, err)
	}
	var prop domain.Property
	if err := json.Unmarshal(raw, &prop); err != nil {
		return domain.Property{}, fmt.Errorf("property decode %q: %w", id, err)
	}
	return prop, nil
}

// List loads every stored property. A document that fails to load or decode
// is skipped, not fatal; the recommender should not go down over one bad
// record.
func (r *Repository) List(ctx context.Context) ([]domain.Property, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("property scan: %w", err)
	}

	props := make([]domain.Property, 0, len(keys))
	for _, k := range keys {
		raw, err := r.store.Get(ctx, k)
		if err != nil {
			continue
		}
		var prop domain.Property
		if err := json.Unmarshal(raw, &prop); err != nil {
			continue
		}
		if prop.ID == "" {
			prop.ID = strings.TrimPrefix(k, keyPrefix)
		}
		props = append(props, prop)
	}
	return props, nil
}

// Delete removes a property document.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, key(id)); err != nil {
		return fmt.Errorf("property del %q: %w", id, err)
	}
	return nil
}

// Count returns the number of stored properties.
func (r *Repository) Count(ctx context.Context) (int, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("property scan: %w", err)
	}
	return len(keys), nil
}
