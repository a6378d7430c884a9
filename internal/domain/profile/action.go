package profile

import "fmt"

// ActionType enumerates the recordable user interactions.
type ActionType string

const (
	ActionSearch ActionType = "search"
	ActionView   ActionType = "view"
	ActionSave   ActionType = "save"
	ActionRate   ActionType = "rate"
)

// Action is one user interaction event pushed by a caller after the fact.
// Only the fields relevant to the action type need to be set.
type Action struct {
	Type           ActionType `json:"type"`
	Keyword        string     `json:"keyword,omitempty"`
	Category       string     `json:"category,omitempty"`
	Area           string     `json:"area,omitempty"`
	PriceRange     string     `json:"price_range,omitempty"`
	Rating         float64    `json:"rating,omitempty"`
	RestaurantID   string     `json:"restaurant_id,omitempty"`
	RestaurantName string     `json:"restaurant_name,omitempty"`
}

// Validate checks the action shape before it is applied.
func (a Action) Validate() error {
	switch a.Type {
	case ActionSearch, ActionView:
		return nil
	case ActionSave:
		if a.RestaurantID == "" {
			return fmt.Errorf("save action requires restaurant_id")
		}
		return nil
	case ActionRate:
		if a.Rating < 0 || a.Rating > 5 {
			return fmt.Errorf("rating must be in [0,5], got %g", a.Rating)
		}
		return nil
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
}
