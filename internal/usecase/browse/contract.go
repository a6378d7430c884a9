package browse

import (
	"context"

	"github.com/busantable/busantable/internal/domain/restaurant"
)

// Catalog supplies the read-only restaurant collection.
type Catalog interface {
	All(ctx context.Context) ([]restaurant.Restaurant, error)
}
