package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/odontogram-api/internal/model"
	"github.com/jwalitptl/odontogram-api/internal/repository"
)

type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

type LogOptions struct {
	Changes   interface{}
	Metadata  interface{}
	IPAddress string
	UserAgent string
}

type clientKey struct{}

type client struct {
	ip        string
	userAgent string
}

// WithClient records the caller's address and user agent on ctx so audit
// entries written further down the call chain carry them.
func WithClient(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, client{ip: ip, userAgent: userAgent})
}

// Log creates an audit log entry
func (s *Service) Log(ctx context.Context, userID uuid.UUID, action, entityType string, entityID uuid.UUID, opts *LogOptions) error {
	if opts == nil {
		opts = &LogOptions{}
	}

	var changes, metadata json.RawMessage
	var err error
	if opts.Changes != nil {
		if changes, err = json.Marshal(opts.Changes); err != nil {
			return fmt.Errorf("failed to marshal audit changes: %w", err)
		}
	}
	if opts.Metadata != nil {
		if metadata, err = json.Marshal(opts.Metadata); err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
	}

	ipAddress, userAgent := opts.IPAddress, opts.UserAgent
	if c, ok := ctx.Value(clientKey{}).(client); ok && ipAddress == "" {
		ipAddress, userAgent = c.ip, c.userAgent
	}

	log := &model.AuditLog{
		ID:         uuid.New(),
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
		Metadata:   metadata,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		CreatedAt:  time.Now(),
	}

	return s.repo.Create(ctx, log)
}

func (s *Service) List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	return s.repo.DeleteBefore(ctx, before)
}
