// Package mocks provides testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/odontogram-api/internal/model"
	"github.com/jwalitptl/odontogram-api/internal/repository"
)

var (
	_ repository.ConditionRepository  = (*ConditionRepository)(nil)
	_ repository.OdontogramRepository = (*OdontogramRepository)(nil)
	_ repository.PatientRepository    = (*PatientRepository)(nil)
	_ repository.OutboxRepository     = (*OutboxRepository)(nil)
	_ repository.AuditRepository      = (*AuditRepository)(nil)
)

type ConditionRepository struct {
	mock.Mock
}

func (m *ConditionRepository) List(ctx context.Context) ([]model.ConditionCatalogEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ConditionCatalogEntry), args.Error(1)
}

func (m *ConditionRepository) Get(ctx context.Context, code string) (*model.ConditionCatalogEntry, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConditionCatalogEntry), args.Error(1)
}

func (m *ConditionRepository) Upsert(ctx context.Context, entry *model.ConditionCatalogEntry) error {
	return m.Called(ctx, entry).Error(0)
}

type OdontogramRepository struct {
	mock.Mock
}

func (m *OdontogramRepository) Create(ctx context.Context, snapshot *model.OdontogramSnapshot, event *model.OutboxEvent) error {
	return m.Called(ctx, snapshot, event).Error(0)
}

func (m *OdontogramRepository) Latest(ctx context.Context, patientID uuid.UUID) (*model.OdontogramSnapshot, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OdontogramSnapshot), args.Error(1)
}

func (m *OdontogramRepository) GetVersion(ctx context.Context, patientID uuid.UUID, version int) (*model.OdontogramSnapshot, error) {
	args := m.Called(ctx, patientID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OdontogramSnapshot), args.Error(1)
}

func (m *OdontogramRepository) ListVersions(ctx context.Context, patientID uuid.UUID) ([]model.SnapshotSummary, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SnapshotSummary), args.Error(1)
}

type PatientRepository struct {
	mock.Mock
}

func (m *PatientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Patient), args.Error(1)
}

type OutboxRepository struct {
	mock.Mock
}

func (m *OutboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *OutboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OutboxEvent), args.Error(1)
}

func (m *OutboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	return m.Called(ctx, id, status, errMsg).Error(0)
}

func (m *OutboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type AuditRepository struct {
	mock.Mock
}

func (m *AuditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *AuditRepository) List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AuditLog), args.Error(1)
}

func (m *AuditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
