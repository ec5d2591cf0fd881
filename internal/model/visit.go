package model

import (
	"encoding/json"
)

// FinalizeVisitRequest carries the service entries recorded during a visit.
type FinalizeVisitRequest struct {
	Entries []json.RawMessage `json:"entries" binding:"required,min=1,max=200"`
}

// VisitResult is the outcome of committing a visit to the chart.
type VisitResult struct {
	Snapshot  *OdontogramSnapshot      `json:"snapshot"`
	Applied   []CanonicalServiceRecord `json:"applied"`
	Discarded int                      `json:"discarded"`
	Warnings  []string                 `json:"warnings,omitempty"`
}

// EntryError reports why a normalized entry was rejected.
type EntryError struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}
