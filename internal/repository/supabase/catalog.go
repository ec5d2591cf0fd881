// Package supabase reads the condition catalog from a hosted Supabase
// project through its PostgREST endpoint.
package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jwalitptl/odontogram-api/internal/config"
	"github.com/jwalitptl/odontogram-api/internal/model"
)

// conditionRow is the column layout of the hosted catalog table.
type conditionRow struct {
	Code            string `json:"codigo"`
	DisplayName     string `json:"nombre"`
	Category        string `json:"categoria"`
	Priority        int    `json:"prioridad"`
	IsTerminal      bool   `json:"es_terminal"`
	AllowsReversion bool   `json:"permite_reversion"`
	Color           string `json:"color"`
}

const selectColumns = "codigo,nombre,categoria,prioridad,es_terminal,permite_reversion,color"

// CatalogSource implements dental.CatalogSource over PostgREST.
type CatalogSource struct {
	httpClient *resty.Client
	table      string
}

func NewCatalogSource(cfg config.SupabaseConfig) *CatalogSource {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("apikey", cfg.Key).
		SetAuthToken(cfg.Key).
		SetHeader("Accept", "application/json")

	return &CatalogSource{httpClient: client, table: cfg.Table}
}

func (s *CatalogSource) Conditions(ctx context.Context) ([]model.ConditionCatalogEntry, error) {
	var rows []conditionRow
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select": selectColumns,
			"order":  "prioridad.desc",
		}).
		SetPathParam("table", s.table).
		SetResult(&rows).
		Get("/rest/v1/{table}")
	if err != nil {
		return nil, fmt.Errorf("failed to call supabase: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("supabase returned %d: %s", resp.StatusCode(), resp.String())
	}

	entries := make([]model.ConditionCatalogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, model.ConditionCatalogEntry{
			Code:            row.Code,
			DisplayName:     row.DisplayName,
			Category:        row.Category,
			Priority:        row.Priority,
			IsTerminal:      row.IsTerminal,
			AllowsReversion: row.AllowsReversion,
			Color:           row.Color,
		})
	}
	return entries, nil
}
