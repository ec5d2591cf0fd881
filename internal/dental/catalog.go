// Package dental holds the odontogram rules: the condition catalog, service
// normalization, surface conflict resolution and the versioned chart.
package dental

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jwalitptl/odontogram-api/internal/model"
)

// ErrCatalogUnavailable is reported when the condition catalog cannot be read.
var ErrCatalogUnavailable = errors.New("condition catalog unavailable")

// CatalogSource loads the condition catalog.
type CatalogSource interface {
	Conditions(ctx context.Context) ([]model.ConditionCatalogEntry, error)
}

// Catalog is a read-only lookup of conditions by code.
type Catalog struct {
	entries map[string]model.ConditionCatalogEntry
}

// NewCatalog indexes entries by code. Codes are compared lower-cased.
// When "ausente" is present it must outrank every other entry.
func NewCatalog(entries []model.ConditionCatalogEntry) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]model.ConditionCatalogEntry, len(entries))}
	for _, e := range entries {
		code := strings.ToLower(strings.TrimSpace(e.Code))
		if code == "" {
			return nil, fmt.Errorf("catalog entry %q has an empty code", e.DisplayName)
		}
		if e.Priority < 0 {
			return nil, fmt.Errorf("catalog entry %q has negative priority %d", code, e.Priority)
		}
		if _, dup := c.entries[code]; dup {
			return nil, fmt.Errorf("duplicate catalog code %q", code)
		}
		e.Code = code
		c.entries[code] = e
	}

	if missing, ok := c.entries[model.ConditionMissing]; ok {
		for code, e := range c.entries {
			if code != model.ConditionMissing && e.Priority >= missing.Priority {
				return nil, fmt.Errorf("catalog entry %q has priority %d, %q must rank strictly highest (%d)",
					code, e.Priority, model.ConditionMissing, missing.Priority)
			}
		}
	}
	return c, nil
}

// Priority returns the conflict priority of code. Unknown codes rank 0.
func (c *Catalog) Priority(code string) int {
	e, _ := c.Entry(code)
	return e.Priority
}

func (c *Catalog) Entry(code string) (model.ConditionCatalogEntry, bool) {
	if c == nil {
		return model.ConditionCatalogEntry{}, false
	}
	e, ok := c.entries[strings.ToLower(strings.TrimSpace(code))]
	return e, ok
}

// Entries returns all entries, highest priority first.
func (c *Catalog) Entries() []model.ConditionCatalogEntry {
	out := make([]model.ConditionCatalogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Code < out[j].Code
	})
	return out
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// DefaultConditions is the seed catalog. "ausente" ranks highest so an
// extraction always wins.
func DefaultConditions() []model.ConditionCatalogEntry {
	return []model.ConditionCatalogEntry{
		{Code: "sano", DisplayName: "Sano", Category: "estado", Priority: 1, AllowsReversion: true, Color: "#FFFFFF"},
		{Code: "sellante", DisplayName: "Sellante", Category: "preventivo", Priority: 2, AllowsReversion: true, Color: "#8BC34A"},
		{Code: "corona", DisplayName: "Corona", Category: "restauracion", Priority: 4, Color: "#FFC107"},
		{Code: "obturacion", DisplayName: "Obturación", Category: "restauracion", Priority: 5, AllowsReversion: true, Color: "#2196F3"},
		{Code: "endodoncia", DisplayName: "Endodoncia", Category: "tratamiento", Priority: 6, Color: "#9C27B0"},
		{Code: "fractura", DisplayName: "Fractura", Category: "patologia", Priority: 7, AllowsReversion: true, Color: "#FF5722"},
		{Code: "caries", DisplayName: "Caries", Category: "patologia", Priority: 8, AllowsReversion: true, Color: "#F44336"},
		{Code: "implante", DisplayName: "Implante", Category: "protesis", Priority: 9, IsTerminal: true, Color: "#607D8B"},
		{Code: "ausente", DisplayName: "Ausente", Category: "estado", Priority: 10, IsTerminal: true, Color: "#000000"},
	}
}

// StaticSource serves a fixed list of conditions.
type StaticSource []model.ConditionCatalogEntry

func (s StaticSource) Conditions(context.Context) ([]model.ConditionCatalogEntry, error) {
	out := make([]model.ConditionCatalogEntry, len(s))
	copy(out, s)
	return out, nil
}
