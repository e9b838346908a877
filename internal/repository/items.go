package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"civitai/harvester/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createItemsTable = `
CREATE TABLE IF NOT EXISTS civitai_items (
	id          BIGINT PRIMARY KEY,
	base_model  TEXT,
	nsfw_level  TEXT,
	like_score  BIGINT NOT NULL DEFAULT 0,
	created_at  TEXT,
	data        JSONB NOT NULL
)`

const upsertItem = `
INSERT INTO civitai_items (id, base_model, nsfw_level, like_score, created_at, data)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id)
DO UPDATE SET base_model = $2, nsfw_level = $3, like_score = $4, created_at = $5, data = $6`

// ItemRepository exports harvested items to Postgres.
type ItemRepository interface {
	EnsureSchema(ctx context.Context) error
	SaveItems(ctx context.Context, items []domain.Item) (int, error)
}

type itemRepository struct {
	db *pgxpool.Pool
}

func NewItemRepository(db *pgxpool.Pool) ItemRepository {
	return &itemRepository{
		db: db,
	}
}

func (r *itemRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createItemsTable); err != nil {
		return fmt.Errorf("failed to create civitai_items table: %w", err)
	}
	return nil
}

// SaveItems upserts items in one batch and returns how many were written.
func (r *itemRepository) SaveItems(ctx context.Context, items []domain.Item) (int, error) {
	batch := &pgx.Batch{}
	for _, item := range items {
		row, err := itemRow(item)
		if err != nil {
			return 0, err
		}
		batch.Queue(upsertItem, row...)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for _, item := range items {
		if _, err := results.Exec(); err != nil {
			return 0, fmt.Errorf("failed to save item %d: %w", item.ID, err)
		}
	}

	return len(items), nil
}

// itemRow maps an item onto the civitai_items columns. Null fields stay SQL NULL.
func itemRow(item domain.Item) ([]any, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode item %d: %w", item.ID, err)
	}

	return []any{
		item.ID,
		nullable(item.BaseModel),
		nullable(item.NSFWLevel),
		item.LikeScore(),
		nullable(domain.Field{Value: item.CreatedAt, Valid: item.CreatedAt != ""}),
		data,
	}, nil
}

func nullable(f domain.Field) *string {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}
