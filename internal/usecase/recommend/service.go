// Package recommend implements the preference scorer: profile mutation on
// user actions, 0-100 compatibility scoring, ranking, and user similarity.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/busantable/busantable/internal/domain"
	"github.com/busantable/busantable/internal/domain/profile"
	"github.com/busantable/busantable/internal/domain/restaurant"
)

// Component weights of the compatibility score.
const (
	weightCategory = 40.0
	weightArea     = 30.0
	weightPrice    = 20.0
	weightRating   = 10.0
)

// similarUsersLimit caps SimilarUsers results.
const similarUsersLimit = 5

// Scored is a record with its attached compatibility score.
type Scored struct {
	restaurant.Restaurant
	Score int `json:"score"`
}

// Neighbor is another user ranked by profile similarity.
type Neighbor struct {
	UserID     string  `json:"user_id"`
	Similarity float64 `json:"similarity"`
}

// Service owns the mutable profile map through its Store. RecordAction is
// serialized per user: the weight-map read-modify-write is not atomic.
type Service struct {
	store Store
	now   func() time.Time

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// New creates a recommend service.
func New(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		users: make(map[string]*sync.Mutex),
	}
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.users[userID]
	if !ok {
		l = &sync.Mutex{}
		s.users[userID] = l
	}
	return l
}

// RecordAction applies one user interaction to the user's profile,
// creating the profile on first contact.
func (s *Service) RecordAction(ctx context.Context, userID string, a profile.Action) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidAction)
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidAction, err)
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	p, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	at := s.now()
	switch a.Type {
	case profile.ActionSearch:
		p.RecordSearch(a.Keyword, a.Category, a.Area, at)
	case profile.ActionView:
		p.RecordView(a.Category, a.Area, a.PriceRange, at)
	case profile.ActionSave:
		p.RecordSave(restaurant.Summary{
			ID:       a.RestaurantID,
			Name:     a.RestaurantName,
			Category: a.Category,
			Area:     a.Area,
		}, at)
	case profile.ActionRate:
		p.RecordRate(a.Rating, at)
	}

	if err := s.store.Put(ctx, p); err != nil {
		return fmt.Errorf("store profile %s: %w", userID, err)
	}
	return nil
}

// Profile returns the stored profile, or a fresh default one if the user
// has no interactions yet. The fresh profile is not persisted.
func (s *Service) Profile(ctx context.Context, userID string) (*profile.Profile, error) {
	return s.load(ctx, userID)
}

func (s *Service) load(ctx context.Context, userID string) (*profile.Profile, error) {
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return profile.New(userID), nil
		}
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}
	return p, nil
}

// Score computes the 0-100 compatibility between the user's profile and a
// record. An unknown user scores against a default profile.
func (s *Service) Score(ctx context.Context, userID string, r restaurant.Restaurant) (int, error) {
	p, err := s.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	return scoreProfile(p, r), nil
}

// Rank attaches scores to the given records and returns the top limit by
// descending score, ties kept in input order. limit <= 0 returns all.
func (s *Service) Rank(ctx context.Context, userID string, records []restaurant.Restaurant, limit int) ([]Scored, error) {
	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	scored := make([]Scored, len(records))
	for i, r := range records {
		scored[i] = Scored{Restaurant: r, Score: scoreProfile(p, r)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// SimilarUsers ranks all other known profiles by similarity to userID and
// returns the closest five.
func (s *Service) SimilarUsers(ctx context.Context, userID string) ([]Neighbor, error) {
	target, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	neighbors := make([]Neighbor, 0, len(all))
	for _, other := range all {
		if other.UserID == userID {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			UserID:     other.UserID,
			Similarity: Similarity(target, other),
		})
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Similarity > neighbors[j].Similarity
	})

	if len(neighbors) > similarUsersLimit {
		neighbors = neighbors[:similarUsersLimit]
	}
	return neighbors, nil
}

// scoreProfile blends four max-normalized affinity components:
// category 40%, area 30%, price bucket 20%, rating closeness 10%.
func scoreProfile(p *profile.Profile, r restaurant.Restaurant) int {
	score := p.FavoriteCategories[r.Category] / profile.MaxWeight(p.FavoriteCategories) * weightCategory
	score += p.FavoriteAreas[r.Area] / profile.MaxWeight(p.FavoriteAreas) * weightArea

	bucket := string(restaurant.Level(r.PriceRange))
	score += p.PricePreference[bucket] / profile.MaxWeight(p.PricePreference) * weightPrice

	score += ratingCloseness(r.Rating, p.AverageRating) * weightRating

	return int(math.Round(score))
}

// ratingCloseness maps the rating gap onto [0,1].
func ratingCloseness(rating, preferred float64) float64 {
	c := 1 - math.Abs(rating-preferred)/5
	if c < 0 {
		return 0
	}
	return c
}

// Similarity is the pairwise collaborative-filtering signal: one binary
// term per shared nonzero category key and per shared nonzero area key,
// plus a rating-closeness term, averaged over the contributing terms.
// Returns 0 when nothing contributes.
func Similarity(a, b *profile.Profile) float64 {
	var sum float64
	terms := 0

	for k, w := range a.FavoriteCategories {
		if w > 0 && b.FavoriteCategories[k] > 0 {
			sum++
			terms++
		}
	}
	for k, w := range a.FavoriteAreas {
		if w > 0 && b.FavoriteAreas[k] > 0 {
			sum++
			terms++
		}
	}

	sum += ratingCloseness(a.AverageRating, b.AverageRating)
	terms++

	if terms == 0 {
		return 0
	}
	return sum / float64(terms)
}
