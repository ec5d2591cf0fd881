package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/odontogram-api/internal/dental"
	"github.com/jwalitptl/odontogram-api/internal/model"
	"github.com/jwalitptl/odontogram-api/internal/repository"
	"github.com/jwalitptl/odontogram-api/internal/service/audit"
	"github.com/jwalitptl/odontogram-api/pkg/cache"
	apperrors "github.com/jwalitptl/odontogram-api/pkg/errors"
	"github.com/jwalitptl/odontogram-api/pkg/logger"
	"github.com/jwalitptl/odontogram-api/pkg/messaging"
)

// CategoryConditions is the cache category holding the condition catalog.
const CategoryConditions = "conditions"

const allKey = "all"

// InvalidationPayload is broadcast when an instance drops a cache category.
type InvalidationPayload struct {
	Category string    `json:"category"`
	Origin   uuid.UUID `json:"origin"`
}

// RepositorySource adapts a ConditionRepository to dental.CatalogSource.
type RepositorySource struct {
	Repo repository.ConditionRepository
}

func (s RepositorySource) Conditions(ctx context.Context) ([]model.ConditionCatalogEntry, error) {
	return s.Repo.List(ctx)
}

type Config struct {
	TTL     time.Duration
	Channel string
}

// Service serves the condition catalog through the cache. It implements
// dental.CatalogSource.
type Service struct {
	source   dental.CatalogSource
	repo     repository.ConditionRepository
	cache    *cache.Manager
	broker   messaging.Broker
	audit    *audit.Service
	config   Config
	logger   *logger.Logger
	instance uuid.UUID
}

// NewService builds the catalog service. repo may be nil when the catalog is
// read-only, and broker may be nil for a single instance.
func NewService(
	source dental.CatalogSource,
	repo repository.ConditionRepository,
	cache *cache.Manager,
	broker messaging.Broker,
	auditSvc *audit.Service,
	config Config,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		source:   source,
		repo:     repo,
		cache:    cache,
		broker:   broker,
		audit:    auditSvc,
		config:   config,
		logger:   log,
		instance: uuid.New(),
	}
}

// Conditions returns the catalog, loading it from the source on a cache miss.
// Failed loads are not cached.
func (s *Service) Conditions(ctx context.Context) ([]model.ConditionCatalogEntry, error) {
	if v, ok := s.cache.Get(CategoryConditions, allKey); ok {
		return copyEntries(v.([]model.ConditionCatalogEntry)), nil
	}

	entries, err := s.source.Conditions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load conditions: %w", err)
	}

	s.cache.Set(CategoryConditions, allKey, copyEntries(entries), s.config.TTL)
	return entries, nil
}

// List returns the validated catalog, highest priority first.
func (s *Service) List(ctx context.Context) ([]model.ConditionCatalogEntry, error) {
	entries, err := s.Conditions(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	c, err := dental.NewCatalog(entries)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("catalog is malformed: %w", err))
	}
	return c.Entries(), nil
}

// Invalidate drops category locally and tells the other instances to do the
// same. It returns how many local entries were removed.
func (s *Service) Invalidate(ctx context.Context, userID uuid.UUID, category string) (int, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		category = CategoryConditions
	}

	removed := s.cache.Invalidate(category)
	s.logger.Info("cache category invalidated", "category", category, "entries", removed)

	if err := s.broadcast(ctx, category); err != nil {
		s.logger.Warn(err, "failed to broadcast invalidation", "category", category)
	}
	if s.audit != nil {
		if err := s.audit.Log(ctx, userID, model.AuditActionInvalidate, model.AuditEntityCondition, uuid.Nil, &audit.LogOptions{
			Metadata: map[string]interface{}{"category": category, "entries": removed},
		}); err != nil {
			s.logger.Error(err, "failed to audit invalidation")
		}
	}
	return removed, nil
}

// Upsert stores a catalog entry and invalidates cached copies everywhere.
func (s *Service) Upsert(ctx context.Context, userID uuid.UUID, entry *model.ConditionCatalogEntry) error {
	if s.repo == nil {
		return apperrors.BadRequest("condition catalog is read-only in this deployment", nil)
	}
	if entry.Priority < 0 {
		return apperrors.BadRequest("priority must not be negative", nil)
	}
	if err := s.checkUpsert(ctx, entry); err != nil {
		return err
	}

	if err := s.repo.Upsert(ctx, entry); err != nil {
		return apperrors.Internal(err)
	}

	s.cache.Invalidate(CategoryConditions)
	if err := s.broadcast(ctx, CategoryConditions); err != nil {
		s.logger.Warn(err, "failed to broadcast invalidation", "category", CategoryConditions)
	}

	if s.audit != nil {
		if err := s.audit.Log(ctx, userID, model.AuditActionUpdate, model.AuditEntityCondition, uuid.Nil, &audit.LogOptions{
			Changes: entry,
		}); err != nil {
			s.logger.Error(err, "failed to audit catalog update", "code", entry.Code)
		}
	}
	return nil
}

// checkUpsert validates the catalog that would result from storing entry.
func (s *Service) checkUpsert(ctx context.Context, entry *model.ConditionCatalogEntry) error {
	current, err := s.repo.List(ctx)
	if err != nil {
		return apperrors.Internal(err)
	}

	code := strings.ToLower(strings.TrimSpace(entry.Code))
	merged := make([]model.ConditionCatalogEntry, 0, len(current)+1)
	for _, e := range current {
		if strings.ToLower(strings.TrimSpace(e.Code)) != code {
			merged = append(merged, e)
		}
	}
	merged = append(merged, *entry)

	if _, err := dental.NewCatalog(merged); err != nil {
		return apperrors.BadRequest("condition would break the catalog", err).WithDetails(err.Error())
	}
	return nil
}

// Listen applies invalidations broadcast by other instances until ctx ends.
func (s *Service) Listen(ctx context.Context) error {
	if s.broker == nil {
		return nil
	}
	return messaging.Listen(ctx, s.broker, s.config.Channel, model.EventCatalogInvalidated,
		func(_ context.Context, msg messaging.Message) error {
			var p InvalidationPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return err
			}
			if p.Origin == s.instance {
				return nil
			}
			removed := s.cache.Invalidate(p.Category)
			s.logger.Debug("applied remote invalidation", "category", p.Category, "entries", removed)
			return nil
		}, s.logger)
}

func (s *Service) broadcast(ctx context.Context, category string) error {
	if s.broker == nil {
		return nil
	}
	payload, err := json.Marshal(InvalidationPayload{Category: category, Origin: s.instance})
	if err != nil {
		return err
	}
	msg, err := messaging.Encode(model.EventCatalogInvalidated, payload)
	if err != nil {
		return err
	}
	return s.broker.Publish(ctx, s.config.Channel, msg)
}

func copyEntries(in []model.ConditionCatalogEntry) []model.ConditionCatalogEntry {
	out := make([]model.ConditionCatalogEntry, len(in))
	copy(out, in)
	return out
}
