package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jwalitptl/odontogram-api/internal/model"
	"github.com/jwalitptl/odontogram-api/internal/repository"
)

type conditionRepository struct {
	BaseRepository
}

func NewConditionRepository(base BaseRepository) repository.ConditionRepository {
	return &conditionRepository{base}
}

const conditionColumns = `code, display_name, category, priority, is_terminal, allows_reversion, color`

func (r *conditionRepository) List(ctx context.Context) ([]model.ConditionCatalogEntry, error) {
	query := `SELECT ` + conditionColumns + ` FROM condition_catalog ORDER BY priority DESC, code ASC`

	var entries []model.ConditionCatalogEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("failed to list conditions: %w", err)
	}
	return entries, nil
}

func (r *conditionRepository) Get(ctx context.Context, code string) (*model.ConditionCatalogEntry, error) {
	query := `SELECT ` + conditionColumns + ` FROM condition_catalog WHERE code = $1`

	var entry model.ConditionCatalogEntry
	if err := r.db.GetContext(ctx, &entry, query, strings.ToLower(code)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get condition: %w", err)
	}
	return &entry, nil
}

func (r *conditionRepository) Upsert(ctx context.Context, entry *model.ConditionCatalogEntry) error {
	if entry == nil {
		return fmt.Errorf("condition cannot be nil")
	}
	entry.Code = strings.ToLower(strings.TrimSpace(entry.Code))

	query := `
		INSERT INTO condition_catalog (` + conditionColumns + `)
		VALUES (:code, :display_name, :category, :priority, :is_terminal, :allows_reversion, :color)
		ON CONFLICT (code) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			category = EXCLUDED.category,
			priority = EXCLUDED.priority,
			is_terminal = EXCLUDED.is_terminal,
			allows_reversion = EXCLUDED.allows_reversion,
			color = EXCLUDED.color
	`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to upsert condition: %w", err)
	}
	return nil
}
