// Package profile persists preference profiles as JSON values in the
// key-value store. It backs both the memory and redis drivers.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/busantable/busantable/internal/db"
	"github.com/busantable/busantable/internal/domain"
	domprofile "github.com/busantable/busantable/internal/domain/profile"
)

const keyPrefix = "profile:"

// Repo implements usecase/recommend.Store over a db.KVStore.
type Repo struct {
	store   db.KVStore
	maxIdle time.Duration // 0 keeps profiles forever
}

// New creates a profile repository.
func New(store db.KVStore) *Repo {
	return &Repo{store: store}
}

// WithMaxIdle enables expiry: profiles untouched for longer than maxIdle
// are dropped by Sweep (and by the key TTL on backends that support it).
func (r *Repo) WithMaxIdle(maxIdle time.Duration) *Repo {
	r.maxIdle = maxIdle
	return r
}

func profileKey(userID string) string { return keyPrefix + userID }

// Get returns the profile for userID.
func (r *Repo) Get(ctx context.Context, userID string) (*domprofile.Profile, error) {
	raw, err := r.store.Get(ctx, profileKey(userID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}

	var p domprofile.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", userID, err)
	}
	normalize(&p)
	return &p, nil
}

// Put stores a profile, refreshing its TTL when expiry is enabled.
func (r *Repo) Put(ctx context.Context, p *domprofile.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", p.UserID, err)
	}

	key := profileKey(p.UserID)
	if r.maxIdle > 0 {
		if err := r.store.SetWithTTL(ctx, key, data, r.maxIdle); err != nil {
			return fmt.Errorf("set profile %s: %w", p.UserID, err)
		}
		return nil
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set profile %s: %w", p.UserID, err)
	}
	return nil
}

// Delete removes a profile.
func (r *Repo) Delete(ctx context.Context, userID string) error {
	if err := r.store.Del(ctx, profileKey(userID)); err != nil {
		return fmt.Errorf("delete profile %s: %w", userID, err)
	}
	return nil
}

// List returns all stored profiles. Entries that fail to decode are
// skipped rather than failing the whole listing.
func (r *Repo) List(ctx context.Context) ([]*domprofile.Profile, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan profiles: %w", err)
	}

	profiles := make([]*domprofile.Profile, 0, len(keys))
	for _, key := range keys {
		raw, err := r.store.Get(ctx, key)
		if err != nil {
			continue // expired between scan and get
		}
		var p domprofile.Profile
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		normalize(&p)
		profiles = append(profiles, &p)
	}
	return profiles, nil
}

// Sweep deletes profiles idle past the configured limit. A zero limit is
// a no-op.
func (r *Repo) Sweep(ctx context.Context) (int, error) {
	if r.maxIdle <= 0 {
		return 0, nil
	}

	profiles, err := r.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-r.maxIdle)
	removed := 0
	for _, p := range profiles {
		if p.UpdatedAt.Before(cutoff) {
			if err := r.store.Del(ctx, profileKey(p.UserID)); err != nil {
				return removed, fmt.Errorf("sweep profile %s: %w", p.UserID, err)
			}
			removed++
		}
	}
	return removed, nil
}

// normalize re-allocates the weight maps JSON may have left nil so that
// profile mutation never writes to a nil map.
func normalize(p *domprofile.Profile) {
	if p.FavoriteCategories == nil {
		p.FavoriteCategories = make(map[string]float64)
	}
	if p.FavoriteAreas == nil {
		p.FavoriteAreas = make(map[string]float64)
	}
	if p.PricePreference == nil {
		p.PricePreference = make(map[string]float64)
	}
}
