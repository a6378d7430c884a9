package recommend

import (
	"context"

	"github.com/busantable/busantable/internal/domain/profile"
)

// Store is the injectable profile store. Lifetime and persistence policy
// belong to the implementation: the memory store keeps profiles for the
// life of the process, the redis store survives restarts.
type Store interface {
	// Get returns the profile for userID or domain.ErrProfileNotFound.
	Get(ctx context.Context, userID string) (*profile.Profile, error)
	Put(ctx context.Context, p *profile.Profile) error
	Delete(ctx context.Context, userID string) error
	// List returns all known profiles.
	List(ctx context.Context) ([]*profile.Profile, error)
	// Sweep drops stale profiles and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
}
