// Package browse implements the structural filter engine over the catalog.
package browse

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/busantable/busantable/internal/domain"
	"github.com/busantable/busantable/internal/domain/geo"
	"github.com/busantable/busantable/internal/domain/restaurant"
)

// Bucket is a coarse price tier used as a filter predicate. It is a wider
// grouping than restaurant.PriceLevel: filtering only distinguishes three
// tiers, while profile weighting keeps four.
type Bucket string

const (
	BucketLow    Bucket = "low"
	BucketMedium Bucket = "medium"
	BucketHigh   Bucket = "high"
)

// Inclusive KRW ranges per filter bucket.
var bucketRanges = map[Bucket][2]int{
	BucketLow:    {0, 15000},
	BucketMedium: {15000, 30000},
	BucketHigh:   {30000, 100000},
}

// Query is a conjunction of optional structural predicates. Zero values
// mean "no predicate".
type Query struct {
	Keyword   string
	Area      string
	Category  string
	Price     Bucket
	MinRating float64
}

// Validate rejects unknown price buckets. An out-of-scale MinRating is
// allowed and simply matches nothing.
func (q Query) Validate() error {
	if q.Price == "" {
		return nil
	}
	if _, ok := bucketRanges[q.Price]; !ok {
		return fmt.Errorf("%w: unknown price bucket %q", domain.ErrInvalidQuery, q.Price)
	}
	return nil
}

// Located pairs a record with its distance from a query origin.
type Located struct {
	restaurant.Restaurant
	DistanceMeters float64 `json:"distance_meters"`
}

// Service filters the catalog. It holds no state beyond the catalog handle.
type Service struct {
	catalog Catalog
}

// New creates a browse service.
func New(catalog Catalog) *Service {
	return &Service{catalog: catalog}
}

// Filter returns the records matching every supplied predicate, ordered by
// descending rating with ties kept in input order.
func (s *Service) Filter(ctx context.Context, q Query) ([]restaurant.Restaurant, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	records, err := s.catalog.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	matched := make([]restaurant.Restaurant, 0, len(records))
	for _, r := range records {
		if matches(r, q) {
			matched = append(matched, r)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Rating > matched[j].Rating
	})
	return matched, nil
}

// Near returns the records within maxMeters of origin, ordered by distance.
// Records without coordinates are excluded.
func (s *Service) Near(ctx context.Context, origin geo.Point, maxMeters float64) ([]Located, error) {
	if !origin.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidQuery)
	}
	if maxMeters <= 0 {
		return nil, fmt.Errorf("%w: max distance must be positive", domain.ErrInvalidQuery)
	}

	records, err := s.catalog.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	var nearby []Located
	for _, r := range records {
		if !r.HasLocation() {
			continue
		}
		d := geo.Haversine(origin, geo.Point{
			Latitude:  r.Location.Latitude,
			Longitude: r.Location.Longitude,
		})
		if d <= maxMeters {
			nearby = append(nearby, Located{Restaurant: r, DistanceMeters: d})
		}
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceMeters < nearby[j].DistanceMeters
	})
	return nearby, nil
}

func matches(r restaurant.Restaurant, q Query) bool {
	if q.Keyword != "" && !matchesKeyword(r, q.Keyword) {
		return false
	}
	if q.Area != "" && r.Area != q.Area {
		return false
	}
	if q.Category != "" && r.Category != q.Category {
		return false
	}
	if q.Price != "" && !matchesBucket(r.PriceRange, q.Price) {
		return false
	}
	if q.MinRating > 0 && r.Rating < q.MinRating {
		return false
	}
	return true
}

// matchesKeyword checks name, specialty tags, and feature tags with a
// case-insensitive substring match (logical OR across fields).
func matchesKeyword(r restaurant.Restaurant, keyword string) bool {
	kw := strings.ToLower(keyword)
	if strings.Contains(strings.ToLower(r.Name), kw) {
		return true
	}
	for _, s := range r.Specialties {
		if strings.Contains(strings.ToLower(s), kw) {
			return true
		}
	}
	for _, f := range r.Features {
		if strings.Contains(strings.ToLower(f), kw) {
			return true
		}
	}
	return false
}

// matchesBucket tests the first embedded price number against the bucket's
// inclusive range. Unparsable price text passes through: the record stays
// in the result set rather than being dropped on bad data.
func matchesBucket(priceText string, b Bucket) bool {
	n, ok := restaurant.FirstAmount(priceText)
	if !ok {
		return true
	}
	rng := bucketRanges[b]
	return n >= rng[0] && n <= rng[1]
}
