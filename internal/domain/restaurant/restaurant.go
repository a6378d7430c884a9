// Package restaurant defines the restaurant record and its price-text semantics.
package restaurant

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Restaurant is a single catalog record. Records are treated as read-only
// once loaded; identifiers are unique only within a cleaned collection.
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

// HasLocation reports whether the record carries usable coordinates.
func (r *Restaurant) HasLocation() bool {
	return r.Location != nil
}

// Summary is the condensed form kept in saved-lists and chat prompts.
type Summary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Area     string  `json:"area"`
	Rating   float64 `json:"rating"`
}

// Summarize projects a record to its summary form.
func (r *Restaurant) Summarize() Summary {
	return Summary{
		ID:       r.ID,
		Name:     r.Name,
		Category: r.Category,
		Area:     r.Area,
		Rating:   r.Rating,
	}
}
