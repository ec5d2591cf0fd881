package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/odontogram-api/internal/model"
	"github.com/jwalitptl/odontogram-api/internal/repository"
)

var conditionFields = []string{"code", "display_name", "category", "priority", "is_terminal", "allows_reversion", "color"}

func TestConditionRepository_List(t *testing.T) {
	base, mock := newMock(t)
	repo := NewConditionRepository(base)

	mock.ExpectQuery("SELECT (.+) FROM condition_catalog ORDER BY priority DESC").
		WillReturnRows(sqlmock.NewRows(conditionFields).
			AddRow("ausente", "Ausente", "estado", 10, true, false, "#000000").
			AddRow("caries", "Caries", "patologia", 8, false, true, "#F44336"))

	entries, err := repo.List(context.Background())

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ausente", entries[0].Code)
	assert.True(t, entries[0].IsTerminal)
	assert.Equal(t, 8, entries[1].Priority)
}

func TestConditionRepository_GetNotFound(t *testing.T) {
	base, mock := newMock(t)
	repo := NewConditionRepository(base)

	mock.ExpectQuery("SELECT (.+) FROM condition_catalog WHERE code = ").
		WithArgs("caries").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "Caries")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConditionRepository_Upsert(t *testing.T) {
	base, mock := newMock(t)
	repo := NewConditionRepository(base)

	mock.ExpectExec("INSERT INTO condition_catalog (.+) ON CONFLICT \\(code\\) DO UPDATE").
		WithArgs("fractura", "Fractura", "patologia", 7, false, true, "#FF5722").
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &model.ConditionCatalogEntry{
		Code: " Fractura ", DisplayName: "Fractura", Category: "patologia",
		Priority: 7, AllowsReversion: true, Color: "#FF5722",
	}
	require.NoError(t, repo.Upsert(context.Background(), entry))
	assert.Equal(t, "fractura", entry.Code)
}
