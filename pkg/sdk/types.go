package sdk

import (
	"github.com/busantable/busantable/internal/domain/profile"
	"github.com/busantable/busantable/internal/domain/restaurant"
	"github.com/busantable/busantable/internal/usecase/browse"
	"github.com/busantable/busantable/internal/usecase/quality"
	"github.com/busantable/busantable/internal/usecase/recommend"
)

// Coordinates is a WGS84 position in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Restaurant is one catalog record.
type Restaurant struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Address     string       `json:"address"`
	Category    string       `json:"category"`
	Area        string       `json:"area"`
	PriceRange  string       `json:"price_range"`
	Rating      float64      `json:"rating"`
	Phone       string       `json:"phone,omitempty"`
	Location    *Coordinates `json:"location,omitempty"`
	Features    []string     `json:"features,omitempty"`
	Specialties []string     `json:"specialties,omitempty"`
	Verified    bool         `json:"verified,omitempty"`
}

// Price buckets accepted by Query.Price.
const (
	PriceLow    = "low"
	PriceMedium = "medium"
	PriceHigh   = "high"
)

// Query is a conjunction of optional filter predicates.
type Query struct {
	Keyword   string
	Area      string
	Category  string
	Price     string
	MinRating float64
}

// Located pairs a record with its distance from a query origin.
type Located struct {
	Restaurant
	DistanceMeters float64 `json:"distance_meters"`
}

// Scored pairs a record with its 0-100 compatibility score.
type Scored struct {
	Restaurant
	Score int `json:"score"`
}

// Neighbor is another user ranked by preference similarity.
type Neighbor struct {
	UserID     string  `json:"user_id"`
	Similarity float64 `json:"similarity"`
}

// Action types accepted by Users().RecordAction.
const (
	ActionSearch = "search"
	ActionView   = "view"
	ActionSave   = "save"
	ActionRate   = "rate"
)

// Action is one user interaction event. Only the fields relevant to the
// action type need to be set.
type Action struct {
	Type           string  `json:"type"`
	Keyword        string  `json:"keyword,omitempty"`
	Category       string  `json:"category,omitempty"`
	Area           string  `json:"area,omitempty"`
	PriceRange     string  `json:"price_range,omitempty"`
	Rating         float64 `json:"rating,omitempty"`
	RestaurantID   string  `json:"restaurant_id,omitempty"`
	RestaurantName string  `json:"restaurant_name,omitempty"`
}

// DuplicateFlag marks a record colliding with an earlier one.
type DuplicateFlag struct {
	Index   int        `json:"index"`
	Record  Restaurant `json:"record"`
	Key     string     `json:"key"`
	Reasons []string   `json:"reasons"`
}

// CorruptRecord marks a structurally invalid record.
type CorruptRecord struct {
	Index   int        `json:"index"`
	Record  Restaurant `json:"record"`
	Reasons []string   `json:"reasons"`
}

// Report partitions a raw collection into duplicates, corrupted, and clean.
type Report struct {
	Duplicates []DuplicateFlag `json:"duplicates"`
	Corrupted  []CorruptRecord `json:"corrupted"`
	Clean      []Restaurant    `json:"clean"`
}

// Reply is the outcome of one conversation turn.
type Reply struct {
	SessionID   string   `json:"session_id"`
	Message     string   `json:"message"`
	Restaurants []Scored `json:"restaurants,omitempty"`
	Fallback    bool     `json:"fallback,omitempty"`
}

// --- Converters between the public and internal shapes ---

func toInternalRestaurant(r Restaurant) restaurant.Restaurant {
	out := restaurant.Restaurant{
		ID:          r.ID,
		Name:        r.Name,
		Address:     r.Address,
		Category:    r.Category,
		Area:        r.Area,
		PriceRange:  r.PriceRange,
		Rating:      r.Rating,
		Phone:       r.Phone,
		Features:    r.Features,
		Specialties: r.Specialties,
		Verified:    r.Verified,
	}
	if r.Location != nil {
		out.Location = &restaurant.Coordinates{
			Latitude:  r.Location.Latitude,
			Longitude: r.Location.Longitude,
		}
	}
	return out
}

func fromInternalRestaurant(r restaurant.Restaurant) Restaurant {
	out := Restaurant{
		ID:          r.ID,
		Name:        r.Name,
		Address:     r.Address,
		Category:    r.Category,
		Area:        r.Area,
		PriceRange:  r.PriceRange,
		Rating:      r.Rating,
		Phone:       r.Phone,
		Features:    r.Features,
		Specialties: r.Specialties,
		Verified:    r.Verified,
	}
	if r.Location != nil {
		out.Location = &Coordinates{
			Latitude:  r.Location.Latitude,
			Longitude: r.Location.Longitude,
		}
	}
	return out
}

func toInternalRecords(records []Restaurant) []restaurant.Restaurant {
	out := make([]restaurant.Restaurant, len(records))
	for i, r := range records {
		out[i] = toInternalRestaurant(r)
	}
	return out
}

func fromInternalRecords(records []restaurant.Restaurant) []Restaurant {
	out := make([]Restaurant, len(records))
	for i, r := range records {
		out[i] = fromInternalRestaurant(r)
	}
	return out
}

func toInternalQuery(q Query) browse.Query {
	return browse.Query{
		Keyword:   q.Keyword,
		Area:      q.Area,
		Category:  q.Category,
		Price:     browse.Bucket(q.Price),
		MinRating: q.MinRating,
	}
}

func toInternalAction(a Action) profile.Action {
	return profile.Action{
		Type:           profile.ActionType(a.Type),
		Keyword:        a.Keyword,
		Category:       a.Category,
		Area:           a.Area,
		PriceRange:     a.PriceRange,
		Rating:         a.Rating,
		RestaurantID:   a.RestaurantID,
		RestaurantName: a.RestaurantName,
	}
}

func fromInternalScored(scored []recommend.Scored) []Scored {
	out := make([]Scored, len(scored))
	for i, s := range scored {
		out[i] = Scored{Restaurant: fromInternalRestaurant(s.Restaurant), Score: s.Score}
	}
	return out
}

func fromInternalReport(r quality.Report) Report {
	out := Report{Clean: fromInternalRecords(r.Clean)}
	for _, f := range r.Duplicates {
		out.Duplicates = append(out.Duplicates, DuplicateFlag{
			Index:   f.Index,
			Record:  fromInternalRestaurant(f.Record),
			Key:     f.Key,
			Reasons: f.Reasons,
		})
	}
	for _, c := range r.Corrupted {
		out.Corrupted = append(out.Corrupted, CorruptRecord{
			Index:   c.Index,
			Record:  fromInternalRestaurant(c.Record),
			Reasons: c.Reasons,
		})
	}
	return out
}
