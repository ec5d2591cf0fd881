package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/odontogram-api/internal/model"
	"github.com/jwalitptl/odontogram-api/internal/repository"
	"github.com/jwalitptl/odontogram-api/pkg/security"
)

type odontogramRepository struct {
	BaseRepository
	encryptor security.Encryptor
}

// NewOdontogramRepository stores snapshots in odontogram_snapshots. When
// encryptor is not nil the cell payload is sealed at rest.
func NewOdontogramRepository(base BaseRepository, encryptor security.Encryptor) repository.OdontogramRepository {
	return &odontogramRepository{BaseRepository: base, encryptor: encryptor}
}

type snapshotRow struct {
	PatientID  uuid.UUID `db:"patient_id"`
	Version    int       `db:"version"`
	ModifiedAt time.Time `db:"modified_at"`
	CreatedBy  uuid.UUID `db:"created_by"`
	Payload    []byte    `db:"payload"`
	Encrypted  bool      `db:"encrypted"`
}

const snapshotColumns = `patient_id, version, modified_at, created_by, payload, encrypted`

func (r *odontogramRepository) Create(ctx context.Context, snapshot *model.OdontogramSnapshot, event *model.OutboxEvent) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	row, err := r.toRow(snapshot)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO odontogram_snapshots (` + snapshotColumns + `)
		VALUES (:patient_id, :version, :modified_at, :created_by, :payload, :encrypted)
	`

	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return err
		}
		if event != nil {
			return insertOutboxEvent(ctx, tx, event)
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: patient %s version %d", repository.ErrVersionConflict, snapshot.PatientID, snapshot.Version)
		}
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

func (r *odontogramRepository) Latest(ctx context.Context, patientID uuid.UUID) (*model.OdontogramSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM odontogram_snapshots
		WHERE patient_id = $1
		ORDER BY version DESC
		LIMIT 1
	`
	return r.get(ctx, query, patientID)
}

func (r *odontogramRepository) GetVersion(ctx context.Context, patientID uuid.UUID, version int) (*model.OdontogramSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM odontogram_snapshots
		WHERE patient_id = $1 AND version = $2
	`
	return r.get(ctx, query, patientID, version)
}

func (r *odontogramRepository) ListVersions(ctx context.Context, patientID uuid.UUID) ([]model.SnapshotSummary, error) {
	query := `
		SELECT patient_id, version, modified_at, created_by
		FROM odontogram_snapshots
		WHERE patient_id = $1
		ORDER BY version ASC
	`
	var versions []model.SnapshotSummary
	if err := r.db.SelectContext(ctx, &versions, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list snapshot versions: %w", err)
	}
	return versions, nil
}

func (r *odontogramRepository) get(ctx context.Context, query string, args ...interface{}) (*model.OdontogramSnapshot, error) {
	var row snapshotRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return r.fromRow(row)
}

func (r *odontogramRepository) toRow(s *model.OdontogramSnapshot) (snapshotRow, error) {
	payload, err := json.Marshal(s.Teeth)
	if err != nil {
		return snapshotRow{}, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	row := snapshotRow{
		PatientID:  s.PatientID,
		Version:    s.Version,
		ModifiedAt: s.ModifiedAt,
		CreatedBy:  s.CreatedBy,
		Payload:    payload,
	}
	if r.encryptor != nil {
		sealed, err := r.encryptor.Encrypt(payload, associatedData(s.PatientID, s.Version))
		if err != nil {
			return snapshotRow{}, fmt.Errorf("failed to encrypt snapshot: %w", err)
		}
		row.Payload = sealed
		row.Encrypted = true
	}
	return row, nil
}

func (r *odontogramRepository) fromRow(row snapshotRow) (*model.OdontogramSnapshot, error) {
	payload := row.Payload
	if row.Encrypted {
		if r.encryptor == nil {
			return nil, fmt.Errorf("snapshot %s/%d is encrypted but no key is configured", row.PatientID, row.Version)
		}
		plain, err := r.encryptor.Decrypt(payload, associatedData(row.PatientID, row.Version))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt snapshot: %w", err)
		}
		payload = plain
	}

	s := &model.OdontogramSnapshot{
		PatientID:  row.PatientID,
		Version:    row.Version,
		ModifiedAt: row.ModifiedAt,
		CreatedBy:  row.CreatedBy,
	}
	if err := json.Unmarshal(payload, &s.Teeth); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return s, nil
}

// associatedData binds a sealed payload to its row so it cannot be replayed
// under another patient or version.
func associatedData(patientID uuid.UUID, version int) []byte {
	return []byte(fmt.Sprintf("%s:%d", patientID, version))
}
