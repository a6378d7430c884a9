// Package chat orchestrates one conversation turn: derive a filter from
// the user's text, rank candidates, consult the language model, and fall
// back to canned output when the provider fails.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/busantable/busantable/internal/domain"
	"github.com/busantable/busantable/internal/metrics"
	"github.com/busantable/busantable/internal/usecase/recommend"
)

// Defaults applied when Config fields are zero.
const (
	defaultTimeout       = 20 * time.Second
	defaultMaxCandidates = 8
	defaultHistoryLimit  = 20
)

// Config tunes the conversation service.
type Config struct {
	Timeout       time.Duration // bounded wait for the provider
	MaxCandidates int           // top-K records forwarded to the model
	HistoryLimit  int           // turns kept per session
}

// Reply is the outcome of one conversation turn.
type Reply struct {
	SessionID   string             `json:"session_id"`
	Message     string             `json:"message"`
	Restaurants []recommend.Scored `json:"restaurants,omitempty"`
	Fallback    bool               `json:"fallback,omitempty"`
}

// Service runs conversation turns. Provider failures are recoverable by
// design: the service always produces some ranked output.
type Service struct {
	browser  Browser
	ranker   Ranker
	llm      Completer
	sessions SessionStore
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// New creates a chat service.
func New(browser Browser, ranker Ranker, llm Completer, sessions SessionStore, cfg Config, logger *zap.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = defaultMaxCandidates
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	return &Service{
		browser:  browser,
		ranker:   ranker,
		llm:      llm,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Converse runs one turn. An empty sessionID starts a new session.
func (s *Service) Converse(ctx context.Context, userID, sessionID, text string) (Reply, error) {
	if text == "" {
		return Reply{}, fmt.Errorf("%w: message text is required", domain.ErrInvalidQuery)
	}

	session, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return Reply{}, err
	}

	candidates := s.selectCandidates(ctx, userID, text)

	session.Append(Turn{Role: RoleUser, Content: text, At: s.now()}, s.cfg.HistoryLimit)

	reply, usedFallback := s.complete(ctx, session, candidates)

	session.Append(Turn{Role: RoleAssistant, Content: reply.Reply, At: s.now()}, s.cfg.HistoryLimit)
	if err := s.sessions.Put(ctx, session); err != nil {
		// The transcript is best-effort; the turn itself succeeded.
		s.logger.Warn("failed to persist chat session",
			zap.String("session_id", session.ID), zap.Error(err))
	}

	return Reply{
		SessionID:   session.ID,
		Message:     reply.Reply,
		Restaurants: referenced(candidates, reply.RestaurantIDs),
		Fallback:    usedFallback,
	}, nil
}

func (s *Service) loadSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	if sessionID == "" {
		now := s.now()
		return &Session{ID: s.newID(), UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			now := s.now()
			return &Session{ID: sessionID, UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return session, nil
}

// selectCandidates derives a structural query from the text, filters the
// catalog, and ranks the matches. Failures degrade to fewer or zero
// candidates; the conversation still proceeds.
func (s *Service) selectCandidates(ctx context.Context, userID, text string) []recommend.Scored {
	q := deriveQuery(text)

	records, err := s.browser.Filter(ctx, q)
	if err != nil {
		s.logger.Warn("candidate selection failed", zap.Error(err))
		return nil
	}

	ranked, err := s.ranker.Rank(ctx, userID, records, s.cfg.MaxCandidates)
	if err != nil {
		s.logger.Warn("candidate ranking failed", zap.Error(err))
		// Serve unranked top-K rather than nothing.
		limit := min(len(records), s.cfg.MaxCandidates)
		ranked = make([]recommend.Scored, limit)
		for i := range ranked {
			ranked[i] = recommend.Scored{Restaurant: records[i]}
		}
	}
	return ranked
}

// complete calls the provider under the bounded wait and falls back to a
// canned reply on any failure, including timeout.
func (s *Service) complete(ctx context.Context, session *Session, candidates []recommend.Scored) (modelReply, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	lastTurn := session.Turns[len(session.Turns)-1]
	raw, err := s.llm.Complete(ctx, buildSystemPrompt(session, candidates), lastTurn.Content)
	if err != nil {
		s.logger.Warn("chat provider failed, serving fallback",
			zap.String("session_id", session.ID), zap.Error(err))
		metrics.ChatFallbacksTotal.Inc()
		return fallbackReply(candidates), true
	}
	return parseReply(raw), false
}

// referenced resolves the ids the model mentioned back to scored records,
// preserving candidate order. With no ids, all candidates are returned.
func referenced(candidates []recommend.Scored, ids []string) []recommend.Scored {
	if len(ids) == 0 {
		return candidates
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var out []recommend.Scored
	for _, c := range candidates {
		if _, ok := wanted[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}
