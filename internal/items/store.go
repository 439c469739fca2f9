package items

import (
	"context"

	"github.com/cobalthq/cobalt/pkg/pagination"
)

// Repository defines the data access contract for items.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	FindByID(ctx context.Context, id string) (*Item, error)

	// List returns a page of items, optionally narrowed to a single
	// lifecycle status. A zero-value status means no filter.
	List(ctx context.Context, status Status, params pagination.Params) ([]*Item, int, error)

	ListByOwner(ctx context.Context, ownerID string, params pagination.Params) ([]*Item, int, error)

	// Search returns up to limit items whose title contains the query,
	// case-insensitively, newest first.
	Search(ctx context.Context, query string, limit int) ([]*Item, error)

	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id string) error
}
