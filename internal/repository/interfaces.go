package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/odontogram-api/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when another writer already stored the
	// same chart version.
	ErrVersionConflict = errors.New("odontogram version already exists")
)

// All repository interfaces in one file
type (
	// ConditionRepository stores the condition catalog
	ConditionRepository interface {
		List(ctx context.Context) ([]model.ConditionCatalogEntry, error)
		Get(ctx context.Context, code string) (*model.ConditionCatalogEntry, error)
		Upsert(ctx context.Context, entry *model.ConditionCatalogEntry) error
	}

	// OdontogramRepository stores chart snapshots. Snapshots are never
	// updated; every visit adds a version.
	OdontogramRepository interface {
		// Create stores snapshot and, in the same transaction, event when it
		// is not nil.
		Create(ctx context.Context, snapshot *model.OdontogramSnapshot, event *model.OutboxEvent) error
		Latest(ctx context.Context, patientID uuid.UUID) (*model.OdontogramSnapshot, error)
		GetVersion(ctx context.Context, patientID uuid.UUID, version int) (*model.OdontogramSnapshot, error)
		ListVersions(ctx context.Context, patientID uuid.UUID) ([]model.SnapshotSummary, error)
	}

	PatientRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
)
