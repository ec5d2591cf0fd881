package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/odontogram-api/internal/model"
	"github.com/jwalitptl/odontogram-api/internal/repository"
	"github.com/jwalitptl/odontogram-api/pkg/security"
)

var snapshotFields = []string{"patient_id", "version", "modified_at", "created_by", "payload", "encrypted"}

func testSnapshot() *model.OdontogramSnapshot {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	return &model.OdontogramSnapshot{
		PatientID:  uuid.MustParse("0b5c6a3e-6f0a-4a59-8f0e-0a7f3b1f2c11"),
		Version:    3,
		ModifiedAt: now,
		CreatedBy:  uuid.MustParse("9f3a1e55-2c54-4f66-9d0f-2f0c0c6f7a22"),
		Teeth: map[int]model.ToothChart{
			26: {
				Number: 26,
				Whole:  model.ToothSurfaceState{Condition: "sano", UpdatedAt: now},
				Surfaces: map[model.Surface]model.ToothSurfaceState{
					model.SurfaceMesial: {Condition: "caries", Severity: "leve", UpdatedAt: now},
				},
			},
		},
	}
}

func TestOdontogramRepository_CreateWithEvent(t *testing.T) {
	base, mock := newMock(t)
	repo := NewOdontogramRepository(base, nil)
	s := testSnapshot()
	event := &model.OutboxEvent{EventType: model.EventOdontogramUpdated, Payload: json.RawMessage(`{"version":3}`)}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO odontogram_snapshots").
		WithArgs(s.PatientID, 3, s.ModifiedAt, s.CreatedBy, sqlmock.AnyArg(), false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(sqlmock.AnyArg(), model.EventOdontogramUpdated, []byte(`{"version":3}`), "pending", 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), s, event))
	assert.NotEqual(t, uuid.Nil, event.ID)
}

func TestOdontogramRepository_CreateVersionConflict(t *testing.T) {
	base, mock := newMock(t)
	repo := NewOdontogramRepository(base, nil)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO odontogram_snapshots").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), testSnapshot(), nil)

	assert.ErrorIs(t, err, repository.ErrVersionConflict)
}

func TestOdontogramRepository_LatestNotFound(t *testing.T) {
	base, mock := newMock(t)
	repo := NewOdontogramRepository(base, nil)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM odontogram_snapshots WHERE patient_id = \\$1 ORDER BY version DESC").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Latest(context.Background(), id)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOdontogramRepository_EncryptedRoundTrip(t *testing.T) {
	enc, err := security.NewDerivedEncryptor(bytes.Repeat([]byte("s"), 32), nil, "odontogram-snapshot")
	require.NoError(t, err)

	base, mock := newMock(t)
	repo := NewOdontogramRepository(base, enc).(*odontogramRepository)
	s := testSnapshot()

	row, err := repo.toRow(s)
	require.NoError(t, err)
	assert.True(t, row.Encrypted)
	assert.NotContains(t, string(row.Payload), "caries")

	mock.ExpectQuery("SELECT (.+) FROM odontogram_snapshots WHERE patient_id = \\$1 AND version = \\$2").
		WithArgs(s.PatientID, 3).
		WillReturnRows(sqlmock.NewRows(snapshotFields).
			AddRow(s.PatientID.String(), 3, s.ModifiedAt, s.CreatedBy.String(), row.Payload, true))

	got, err := repo.GetVersion(context.Background(), s.PatientID, 3)

	require.NoError(t, err)
	assert.Equal(t, s.PatientID, got.PatientID)
	assert.Equal(t, "caries", got.Teeth[26].Surfaces[model.SurfaceMesial].Condition)
	assert.True(t, s.ModifiedAt.Equal(got.Teeth[26].Whole.UpdatedAt))
}

func TestOdontogramRepository_EncryptedWithoutKey(t *testing.T) {
	repo := &odontogramRepository{}

	_, err := repo.fromRow(snapshotRow{PatientID: uuid.New(), Version: 1, Payload: []byte("sealed"), Encrypted: true})

	assert.Error(t, err)
}

func TestOdontogramRepository_ListVersions(t *testing.T) {
	base, mock := newMock(t)
	repo := NewOdontogramRepository(base, nil)
	id := uuid.New()
	by := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT patient_id, version, modified_at, created_by FROM odontogram_snapshots").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"patient_id", "version", "modified_at", "created_by"}).
			AddRow(id.String(), 0, now, by.String()).
			AddRow(id.String(), 1, now, by.String()))

	versions, err := repo.ListVersions(context.Background(), id)

	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[1].Version)
	assert.Equal(t, by, versions[0].CreatedBy)
}
