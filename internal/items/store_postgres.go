package items

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cobalthq/cobalt/internal/platform/apperr"
	"github.com/cobalthq/cobalt/pkg/pagination"
)

// PostgresRepository implements the Repository interface using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (repository *PostgresRepository) Create(ctx context.Context, item *Item) error {
	const query = `
		INSERT INTO content.item (id, ownerid, title, description, status, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := repository.pool.Exec(ctx, query,
		item.ID,
		item.OwnerID,
		item.Title,
		item.Description,
		item.Status,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_item_repo_create_failed: %w", err)
	}
	return nil
}

func (repository *PostgresRepository) FindByID(ctx context.Context, id string) (*Item, error) {
	const query = `
		SELECT id, ownerid, title, description, status, createdat, updatedat
		FROM content.item
		WHERE id = $1`

	item := &Item{}
	err := repository.pool.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.OwnerID,
		&item.Title,
		&item.Description,
		&item.Status,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Item")
		}
		return nil, fmt.Errorf("postgres_item_repo_find_failed: %w", err)
	}
	return item, nil
}

func (repository *PostgresRepository) List(ctx context.Context, status Status, params pagination.Params) ([]*Item, int, error) {
	if status == "" {
		const countQuery = "SELECT COUNT(*) FROM content.item"
		const listQuery = `
			SELECT id, ownerid, title, description, status, createdat, updatedat
			FROM content.item
			ORDER BY createdat DESC
			LIMIT $1 OFFSET $2`

		return repository.page(ctx, countQuery, listQuery, nil, params)
	}

	const countQuery = "SELECT COUNT(*) FROM content.item WHERE status = $1"
	const listQuery = `
		SELECT id, ownerid, title, description, status, createdat, updatedat
		FROM content.item
		WHERE status = $3
		ORDER BY createdat DESC
		LIMIT $1 OFFSET $2`

	filter := string(status)
	return repository.page(ctx, countQuery, listQuery, &filter, params)
}

func (repository *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, params pagination.Params) ([]*Item, int, error) {
	const countQuery = "SELECT COUNT(*) FROM content.item WHERE ownerid = $1"
	const listQuery = `
		SELECT id, ownerid, title, description, status, createdat, updatedat
		FROM content.item
		WHERE ownerid = $3
		ORDER BY createdat DESC
		LIMIT $1 OFFSET $2`

	return repository.page(ctx, countQuery, listQuery, &ownerID, params)
}

func (repository *PostgresRepository) Search(ctx context.Context, query string, limit int) ([]*Item, error) {
	const searchQuery = `
		SELECT id, ownerid, title, description, status, createdat, updatedat
		FROM content.item
		WHERE title ILIKE '%' || $1 || '%'
		ORDER BY createdat DESC
		LIMIT $2`

	rows, err := repository.pool.Query(ctx, searchQuery, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres_item_repo_search_failed: %w", err)
	}
	defer rows.Close()

	return scanItems(rows, limit)
}

// page runs the shared count-then-list sequence. The optional filter binds
// as the single extra query argument (owner id or status).
func (repository *PostgresRepository) page(ctx context.Context, countQuery, listQuery string, filter *string, params pagination.Params) ([]*Item, int, error) {
	var total int
	var err error

	if filter != nil {
		err = repository.pool.QueryRow(ctx, countQuery, *filter).Scan(&total)
	} else {
		err = repository.pool.QueryRow(ctx, countQuery).Scan(&total)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_item_repo_count_failed: %w", err)
	}

	var rows pgx.Rows
	if filter != nil {
		rows, err = repository.pool.Query(ctx, listQuery, params.Limit, params.Offset(), *filter)
	} else {
		rows, err = repository.pool.Query(ctx, listQuery, params.Limit, params.Offset())
	}
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_item_repo_list_failed: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows, params.Limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// scanItems drains a result set of full item rows.
func scanItems(rows pgx.Rows, capacityHint int) ([]*Item, error) {
	items := make([]*Item, 0, capacityHint)
	for rows.Next() {
		item := &Item{}
		if err := rows.Scan(
			&item.ID,
			&item.OwnerID,
			&item.Title,
			&item.Description,
			&item.Status,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_item_repo_scan_failed: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_item_repo_rows_failed: %w", err)
	}
	return items, nil
}

func (repository *PostgresRepository) Update(ctx context.Context, item *Item) error {
	const query = `
		UPDATE content.item
		SET title = $2, description = $3, status = $4, updatedat = $5
		WHERE id = $1`

	item.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(ctx, query, item.ID, item.Title, item.Description, item.Status, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres_item_repo_update_failed: %w", err)
	}
	return nil
}

func (repository *PostgresRepository) Delete(ctx context.Context, id string) error {
	const query = "DELETE FROM content.item WHERE id = $1"
	_, err := repository.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres_item_repo_delete_failed: %w", err)
	}
	return nil
}
