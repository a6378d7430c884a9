package sdk

import (
	"context"
	"fmt"

	"github.com/busantable/busantable/internal/domain/geo"
	"github.com/busantable/busantable/internal/usecase/browse"
	chatuc "github.com/busantable/busantable/internal/usecase/chat"
	"github.com/busantable/busantable/internal/usecase/quality"
	"github.com/busantable/busantable/internal/usecase/recommend"
)

// RestaurantService filters the catalog.
type RestaurantService struct {
	svc *browse.Service
}

// Filter returns the records matching every supplied predicate, ordered
// by descending rating.
func (s *RestaurantService) Filter(ctx context.Context, q Query) ([]Restaurant, error) {
	records, err := s.svc.Filter(ctx, toInternalQuery(q))
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	return fromInternalRecords(records), nil
}

// Near returns the records within radiusMeters of the given coordinates,
// ordered by distance. Records without coordinates are excluded.
func (s *RestaurantService) Near(ctx context.Context, lat, lng, radiusMeters float64) ([]Located, error) {
	located, err := s.svc.Near(ctx, geo.Point{Latitude: lat, Longitude: lng}, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("near: %w", err)
	}
	out := make([]Located, len(located))
	for i, l := range located {
		out[i] = Located{Restaurant: fromInternalRestaurant(l.Restaurant), DistanceMeters: l.DistanceMeters}
	}
	return out, nil
}

// UserService records interactions and serves personalized output.
type UserService struct {
	svc *recommend.Service
}

// RecordAction applies one interaction to the user's preference profile,
// creating the profile on first contact.
func (s *UserService) RecordAction(ctx context.Context, userID string, a Action) error {
	if err := s.svc.RecordAction(ctx, userID, toInternalAction(a)); err != nil {
		return fmt.Errorf("record action: %w", err)
	}
	return nil
}

// Score computes the 0-100 compatibility between the user and a record.
func (s *UserService) Score(ctx context.Context, userID string, r Restaurant) (int, error) {
	score, err := s.svc.Score(ctx, userID, toInternalRestaurant(r))
	if err != nil {
		return 0, fmt.Errorf("score: %w", err)
	}
	return score, nil
}

// Rank scores the given records for the user and returns the top limit.
// limit <= 0 returns all.
func (s *UserService) Rank(ctx context.Context, userID string, records []Restaurant, limit int) ([]Scored, error) {
	ranked, err := s.svc.Rank(ctx, userID, toInternalRecords(records), limit)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}
	return fromInternalScored(ranked), nil
}

// SimilarUsers returns up to five users closest to userID by preference.
func (s *UserService) SimilarUsers(ctx context.Context, userID string) ([]Neighbor, error) {
	neighbors, err := s.svc.SimilarUsers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("similar users: %w", err)
	}
	out := make([]Neighbor, len(neighbors))
	for i, n := range neighbors {
		out[i] = Neighbor{UserID: n.UserID, Similarity: n.Similarity}
	}
	return out, nil
}

// QualityService runs batch analysis over raw record collections.
type QualityService struct {
	engine *quality.Engine
}

// Analyze partitions records into duplicates, corrupted, and clean.
func (s *QualityService) Analyze(records []Restaurant) Report {
	return fromInternalReport(s.engine.Analyze(toInternalRecords(records)))
}

// Cleaned produces the deduplicated collection with re-assigned
// sequential identifiers.
func (s *QualityService) Cleaned(records []Restaurant) []Restaurant {
	return fromInternalRecords(s.engine.BuildCleaned(toInternalRecords(records)))
}

// ChatService runs conversation turns.
type ChatService struct {
	svc *chatuc.Service
}

// Converse runs one turn. An empty sessionID starts a new session; reuse
// the returned SessionID to continue the conversation.
func (s *ChatService) Converse(ctx context.Context, userID, sessionID, text string) (Reply, error) {
	reply, err := s.svc.Converse(ctx, userID, sessionID, text)
	if err != nil {
		return Reply{}, fmt.Errorf("converse: %w", err)
	}
	return Reply{
		SessionID:   reply.SessionID,
		Message:     reply.Message,
		Restaurants: fromInternalScored(reply.Restaurants),
		Fallback:    reply.Fallback,
	}, nil
}
