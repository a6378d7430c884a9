package chat

import (
	"context"

	"github.com/busantable/busantable/internal/domain/restaurant"
	"github.com/busantable/busantable/internal/usecase/browse"
	"github.com/busantable/busantable/internal/usecase/recommend"
)

// Completer sends one prompt pair to the language model provider.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Browser filters the catalog for candidate records.
type Browser interface {
	Filter(ctx context.Context, q browse.Query) ([]restaurant.Restaurant, error)
}

// Ranker attaches preference scores and truncates to the top candidates.
type Ranker interface {
	Rank(ctx context.Context, userID string, records []restaurant.Restaurant, limit int) ([]recommend.Scored, error)
}

// SessionStore persists chat transcripts.
type SessionStore interface {
	// Get returns the session or domain.ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
