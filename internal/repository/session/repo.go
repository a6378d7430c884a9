// Package session persists chat transcripts as JSON values with a TTL.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/busantable/busantable/internal/db"
	"github.com/busantable/busantable/internal/domain"
	"github.com/busantable/busantable/internal/usecase/chat"
)

const keyPrefix = "chat:session:"

// defaultTTL bounds how long an idle transcript is kept.
const defaultTTL = 24 * time.Hour

// Repo implements usecase/chat.SessionStore over a db.KVStore.
type Repo struct {
	store db.KVStore
	ttl   time.Duration
}

// New creates a session repository with the default TTL.
func New(store db.KVStore) *Repo {
	return &Repo{store: store, ttl: defaultTTL}
}

// WithTTL overrides the transcript TTL.
func (r *Repo) WithTTL(ttl time.Duration) *Repo {
	r.ttl = ttl
	return r
}

func sessionKey(id string) string { return keyPrefix + id }

// Get returns the session by id.
func (r *Repo) Get(ctx context.Context, id string) (*chat.Session, error) {
	raw, err := r.store.Get(ctx, sessionKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	var s chat.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

// Put stores a session, refreshing its TTL.
func (r *Repo) Put(ctx context.Context, s *chat.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	if err := r.store.SetWithTTL(ctx, sessionKey(s.ID), data, r.ttl); err != nil {
		return fmt.Errorf("set session %s: %w", s.ID, err)
	}
	return nil
}

// Delete removes a session.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, sessionKey(id)); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
