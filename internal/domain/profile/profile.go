// Package profile holds the per-user preference profile and the action
// events that mutate it. Profiles are owned by the recommend service;
// callers must not mutate a profile concurrently.
package profile

import (
	"time"

	"github.com/busantable/busantable/internal/domain/restaurant"
)

// DefaultAverageRating seeds a fresh profile before any rate action.
const DefaultAverageRating = 4.0

// HistoryLimit caps the search history; the oldest entry is evicted first.
const HistoryLimit = 100

// Profile accumulates preference weights for one user.
type Profile struct {
	UserID             string               `json:"user_id"`
	FavoriteCategories map[string]float64   `json:"favorite_categories"`
	FavoriteAreas      map[string]float64   `json:"favorite_areas"`
	PricePreference    map[string]float64   `json:"price_preference"`
	AverageRating      float64              `json:"average_rating"`
	History            []HistoryEntry       `json:"history"`
	Saved              []restaurant.Summary `json:"saved"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// HistoryEntry is one recorded search.
type HistoryEntry struct {
	Keyword  string    `json:"keyword,omitempty"`
	Category string    `json:"category,omitempty"`
	Area     string    `json:"area,omitempty"`
	At       time.Time `json:"at"`
}

// New creates an empty profile with the default average rating.
func New(userID string) *Profile {
	return &Profile{
		UserID:             userID,
		FavoriteCategories: make(map[string]float64),
		FavoriteAreas:      make(map[string]float64),
		PricePreference:    make(map[string]float64),
		AverageRating:      DefaultAverageRating,
	}
}

// RecordSearch appends a capped history entry and bumps category/area
// weights by 1 for the dimensions present in the query.
func (p *Profile) RecordSearch(keyword, category, area string, at time.Time) {
	p.History = append(p.History, HistoryEntry{Keyword: keyword, Category: category, Area: area, At: at})
	if len(p.History) > HistoryLimit {
		p.History = p.History[len(p.History)-HistoryLimit:]
	}
	if category != "" {
		p.FavoriteCategories[category]++
	}
	if area != "" {
		p.FavoriteAreas[area]++
	}
	p.UpdatedAt = at
}

// RecordView bumps category/area weights by 0.5 and the viewed record's
// price bucket by 0.5.
func (p *Profile) RecordView(category, area, priceText string, at time.Time) {
	if category != "" {
		p.FavoriteCategories[category] += 0.5
	}
	if area != "" {
		p.FavoriteAreas[area] += 0.5
	}
	p.PricePreference[string(restaurant.Level(priceText))] += 0.5
	p.UpdatedAt = at
}

// RecordSave bumps category/area weights by 2 and appends the record to the
// saved list unless it is already present (dedup by identifier).
func (p *Profile) RecordSave(sum restaurant.Summary, at time.Time) {
	if sum.Category != "" {
		p.FavoriteCategories[sum.Category] += 2
	}
	if sum.Area != "" {
		p.FavoriteAreas[sum.Area] += 2
	}
	for _, s := range p.Saved {
		if s.ID == sum.ID {
			p.UpdatedAt = at
			return
		}
	}
	p.Saved = append(p.Saved, sum)
	p.UpdatedAt = at
}

// RecordRate folds a rating into the running average. The divisor is the
// current history length (1 when empty), which matches the long-standing
// behavior of the original analyzer rather than a true incremental mean.
func (p *Profile) RecordRate(rating float64, at time.Time) {
	n := len(p.History)
	if n == 0 {
		n = 1
	}
	p.AverageRating = (p.AverageRating*float64(n) + rating) / float64(n+1)
	p.UpdatedAt = at
}

// MaxWeight returns the largest weight in m, floored at 1 so that score
// normalization never divides by zero.
func MaxWeight(m map[string]float64) float64 {
	max := 1.0
	for _, w := range m {
		if w > max {
			max = w
		}
	}
	return max
}
