package items

import (
	"context"
	"fmt"

	"github.com/cobalthq/cobalt/internal/platform/apperr"
	"github.com/cobalthq/cobalt/internal/platform/sec"
	"github.com/cobalthq/cobalt/pkg/pagination"
	"github.com/cobalthq/cobalt/pkg/uuid"
)

// SearchLimitDefault and SearchLimitMax bound the /search result size.
const (
	SearchLimitDefault = 50
	SearchLimitMax     = 100
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (service *Service) List(ctx context.Context, status Status, params pagination.Params) ([]*Item, int, error) {
	return service.repo.List(ctx, status, params)
}

func (service *Service) ListMine(ctx context.Context, ownerID string, params pagination.Params) ([]*Item, int, error) {
	return service.repo.ListByOwner(ctx, ownerID, params)
}

func (service *Service) Get(ctx context.Context, id string) (*Item, error) {
	return service.repo.FindByID(ctx, id)
}

// Search returns items whose title contains the query, case-insensitively.
// The limit is clamped to [1, SearchLimitMax]; zero means the default.
func (service *Service) Search(ctx context.Context, query string, limit int) ([]*Item, error) {
	if limit <= 0 {
		limit = SearchLimitDefault
	}
	if limit > SearchLimitMax {
		limit = SearchLimitMax
	}
	return service.repo.Search(ctx, query, limit)
}

type CreateInput struct {
	Title       string
	Description string
}

func (service *Service) Create(ctx context.Context, ownerID string, input CreateInput) (*Item, error) {
	item := &Item{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       input.Title,
		Description: input.Description,
		Status:      StatusDraft,
	}

	if err := service.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("items_service_create_failed: %w", err)
	}
	return item, nil
}

type UpdateInput struct {
	Title       *string
	Description *string
}

func (service *Service) Update(ctx context.Context, actor *sec.AuthClaims, id string, input UpdateInput) (*Item, error) {
	item, err := service.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := service.authorizeWrite(actor, item); err != nil {
		return nil, err
	}

	if input.Title != nil {
		item.Title = *input.Title
	}
	if input.Description != nil {
		item.Description = *input.Description
	}

	if err := service.repo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("items_service_update_failed: %w", err)
	}
	return item, nil
}

// Activate publishes a draft (or re-publishes an archived item).
func (service *Service) Activate(ctx context.Context, actor *sec.AuthClaims, id string) (*Item, error) {
	return service.transition(ctx, actor, id, StatusActive)
}

// Archive retires an item without deleting it; archived items stay readable.
func (service *Service) Archive(ctx context.Context, actor *sec.AuthClaims, id string) (*Item, error) {
	return service.transition(ctx, actor, id, StatusArchived)
}

func (service *Service) transition(ctx context.Context, actor *sec.AuthClaims, id string, status Status) (*Item, error) {
	item, err := service.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := service.authorizeWrite(actor, item); err != nil {
		return nil, err
	}

	item.Status = status
	if err := service.repo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("items_service_transition_failed: %w", err)
	}
	return item, nil
}

func (service *Service) Delete(ctx context.Context, actor *sec.AuthClaims, id string) error {
	item, err := service.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := service.authorizeDelete(actor, item); err != nil {
		return err
	}

	if err := service.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("items_service_delete_failed: %w", err)
	}
	return nil
}

// authorizeWrite allows the owner, admins, and super admins to mutate an item.
func (service *Service) authorizeWrite(actor *sec.AuthClaims, item *Item) error {
	if actor == nil {
		return apperr.Unauthorized("Authentication required")
	}
	if actor.IsSuperAdmin || actor.Role == sec.RoleAdmin || actor.UserID() == item.OwnerID {
		return nil
	}
	return apperr.Forbidden("You do not own this item")
}

// authorizeDelete allows the owner; anyone else needs the items:delete grant,
// which only the admin roles carry.
func (service *Service) authorizeDelete(actor *sec.AuthClaims, item *Item) error {
	if actor == nil {
		return apperr.Unauthorized("Authentication required")
	}
	if actor.UserID() == item.OwnerID || actor.HasPermission(sec.PermItemsDelete) {
		return nil
	}
	return apperr.Forbidden("You do not own this item")
}
