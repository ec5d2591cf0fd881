package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

const (
	EventOdontogramUpdated  = "ODONTOGRAM_UPDATED"
	EventCatalogInvalidated = "CATALOG_INVALIDATED"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       string          `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
}

// OdontogramUpdatedPayload is published after a new chart version is committed.
type OdontogramUpdatedPayload struct {
	PatientID uuid.UUID `json:"patient_id"`
	Version   int       `json:"version"`
	Changes   int       `json:"changes"`
	CreatedBy uuid.UUID `json:"created_by"`
}
