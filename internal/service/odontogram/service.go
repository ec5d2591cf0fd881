package odontogram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/odontogram-api/internal/dental"
	"github.com/jwalitptl/odontogram-api/internal/model"
	"github.com/jwalitptl/odontogram-api/internal/repository"
	"github.com/jwalitptl/odontogram-api/internal/service/audit"
	apperrors "github.com/jwalitptl/odontogram-api/pkg/errors"
	"github.com/jwalitptl/odontogram-api/pkg/logger"
	"github.com/jwalitptl/odontogram-api/pkg/metrics"
)

type Service struct {
	repo      repository.OdontogramRepository
	patients  repository.PatientRepository
	resolver  *dental.Resolver
	validator *dental.RecordValidator
	audit     *audit.Service
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(
	repo repository.OdontogramRepository,
	patients repository.PatientRepository,
	resolver *dental.Resolver,
	auditSvc *audit.Service,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Service{
		repo:      repo,
		patients:  patients,
		resolver:  resolver,
		validator: dental.NewRecordValidator(),
		audit:     auditSvc,
		logger:    log,
		metrics:   m,
		now:       time.Now,
	}
}

// FinalizeVisit commits the services recorded during a visit as the
// patient's next chart version.
//
// Entries are normalized, validated, and resolved against the condition
// catalog before being applied. If the catalog is unavailable the entries
// are applied unresolved and a warning is returned with the result. A
// concurrent commit of the same version yields a conflict error; callers
// retry the whole call.
func (s *Service) FinalizeVisit(ctx context.Context, patientID, userID uuid.UUID, entries []json.RawMessage) (*model.VisitResult, error) {
	if err := s.checkPatient(ctx, patientID); err != nil {
		return nil, err
	}

	records := make([]model.CanonicalServiceRecord, len(entries))
	var invalid []model.EntryError
	for i, raw := range entries {
		records[i] = dental.Normalize(dental.DecodeRawService(raw))
		if errs := s.validator.Validate(i, records[i]); len(errs) > 0 {
			invalid = append(invalid, errs...)
			s.metrics.ValidationResults.WithLabelValues("fail").Inc()
			continue
		}
		s.metrics.ValidationResults.WithLabelValues("pass").Inc()
	}
	if len(invalid) > 0 {
		return nil, apperrors.BadRequest("invalid service entries", nil).WithDetails(invalid)
	}

	var warnings []string
	resolved, err := s.resolver.Resolve(ctx, records)
	if err != nil {
		if !errors.Is(err, dental.ErrCatalogUnavailable) {
			return nil, apperrors.Internal(err)
		}
		warnings = append(warnings, "condition catalog unavailable; entries were applied without conflict resolution")
	}

	current, err := s.latest(ctx, patientID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	next := dental.Apply(*current, resolved, now)
	next.CreatedBy = userID
	changes := dental.Diff(*current, next)

	event, err := updatedEvent(next, len(changes))
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.repo.Create(ctx, &next, event); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.Conflict("odontogram was updated concurrently, retry the visit", err)
		}
		return nil, apperrors.Internal(err)
	}
	s.metrics.SnapshotsCommitted.Inc()

	if s.audit != nil {
		if err := s.audit.Log(ctx, userID, model.AuditActionCreate, model.AuditEntityOdontogram, patientID, &audit.LogOptions{
			Changes:  changes,
			Metadata: map[string]interface{}{"version": next.Version, "entries": len(entries)},
		}); err != nil {
			s.logger.Error(err, "failed to audit visit", "patient_id", patientID.String())
		}
	}

	s.logger.Info("odontogram version committed",
		"patient_id", patientID.String(),
		"version", next.Version,
		"changes", len(changes))

	return &model.VisitResult{
		Snapshot:  &next,
		Applied:   resolved,
		Discarded: dental.CountClaims(records) - dental.CountClaims(resolved),
		Warnings:  warnings,
	}, nil
}

// Current returns the latest chart, or a blank version 0 chart when the
// patient has none yet.
func (s *Service) Current(ctx context.Context, patientID uuid.UUID) (*model.OdontogramSnapshot, error) {
	if err := s.checkPatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.latest(ctx, patientID)
}

// Version returns one stored chart version. Version 0 is the blank chart.
func (s *Service) Version(ctx context.Context, patientID uuid.UUID, version int) (*model.OdontogramSnapshot, error) {
	if version < 0 {
		return nil, apperrors.BadRequest("version must not be negative", nil)
	}
	if err := s.checkPatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.version(ctx, patientID, version)
}

func (s *Service) version(ctx context.Context, patientID uuid.UUID, version int) (*model.OdontogramSnapshot, error) {
	snapshot, err := s.repo.GetVersion(ctx, patientID, version)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if version == 0 {
				blank := dental.NewOdontogram(patientID, time.Time{})
				return &blank, nil
			}
			return nil, apperrors.NotFound("odontogram version", err)
		}
		return nil, apperrors.Internal(err)
	}
	return snapshot, nil
}

// History lists the stored versions of a patient's chart, oldest first.
func (s *Service) History(ctx context.Context, patientID uuid.UUID) ([]model.SnapshotSummary, error) {
	if err := s.checkPatient(ctx, patientID); err != nil {
		return nil, err
	}
	versions, err := s.repo.ListVersions(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if versions == nil {
		versions = []model.SnapshotSummary{}
	}
	return versions, nil
}

// Diff compares two versions of a patient's chart cell by cell.
func (s *Service) Diff(ctx context.Context, patientID uuid.UUID, from, to int) ([]model.CellChange, error) {
	if from < 0 || to < 0 {
		return nil, apperrors.BadRequest("version must not be negative", nil)
	}
	if err := s.checkPatient(ctx, patientID); err != nil {
		return nil, err
	}
	before, err := s.version(ctx, patientID, from)
	if err != nil {
		return nil, err
	}
	after, err := s.version(ctx, patientID, to)
	if err != nil {
		return nil, err
	}
	changes := dental.Diff(*before, *after)
	if changes == nil {
		changes = []model.CellChange{}
	}
	return changes, nil
}

func (s *Service) checkPatient(ctx context.Context, patientID uuid.UUID) error {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("patient", err)
		}
		return apperrors.Internal(err)
	}
	if !patient.IsActive() {
		return apperrors.BadRequest("patient is not active", nil)
	}
	return nil
}

func (s *Service) latest(ctx context.Context, patientID uuid.UUID) (*model.OdontogramSnapshot, error) {
	current, err := s.repo.Latest(ctx, patientID)
	if err == nil {
		return current, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		blank := dental.NewOdontogram(patientID, s.now().UTC())
		return &blank, nil
	}
	return nil, apperrors.Internal(err)
}

func updatedEvent(s model.OdontogramSnapshot, changes int) (*model.OutboxEvent, error) {
	payload, err := json.Marshal(model.OdontogramUpdatedPayload{
		PatientID: s.PatientID,
		Version:   s.Version,
		Changes:   changes,
		CreatedBy: s.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: model.EventOdontogramUpdated,
		Payload:   payload,
	}, nil
}
