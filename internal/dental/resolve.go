package dental

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/odontogram-api/internal/model"
	"github.com/jwalitptl/odontogram-api/pkg/logger"
	"github.com/jwalitptl/odontogram-api/pkg/metrics"
)

// cellKey identifies one cell of the chart. Surface is SurfaceWhole for
// whole-tooth claims.
type cellKey struct {
	tooth   int
	surface model.Surface
}

// claim is one (tooth, surface) a record wants to set.
type claim struct {
	record   int
	priority int
}

// Resolver settles conflicting service entries against the condition catalog.
type Resolver struct {
	source  CatalogSource
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewResolver(source CatalogSource, log *logger.Logger, m *metrics.Metrics) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Resolver{source: source, logger: log, metrics: m}
}

// Resolve keeps, for every (tooth, surface), only the entry whose condition
// has the highest catalog priority.
//
// The returned records are always usable. When the catalog cannot be read
// the input is returned unchanged together with an error wrapping
// ErrCatalogUnavailable, which callers should treat as a warning.
func (r *Resolver) Resolve(ctx context.Context, records []model.CanonicalServiceRecord) ([]model.CanonicalServiceRecord, error) {
	start := time.Now()
	defer func() {
		r.metrics.ResolutionDuration.Observe(time.Since(start).Seconds())
	}()

	if !hasClaims(records) {
		r.metrics.Resolutions.WithLabelValues("trivial").Inc()
		return passThrough(records), nil
	}

	entries, err := r.source.Conditions(ctx)
	if err != nil {
		r.metrics.Resolutions.WithLabelValues("fail_open").Inc()
		r.logger.Warn(err, "condition catalog unavailable, keeping unresolved entries", "entries", len(records))
		return records, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	catalog, err := NewCatalog(entries)
	if err != nil {
		r.metrics.Resolutions.WithLabelValues("fail_open").Inc()
		r.logger.Warn(err, "condition catalog is malformed, keeping unresolved entries", "entries", len(records))
		return records, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	resolved, discarded := resolve(catalog, records)
	r.metrics.Resolutions.WithLabelValues("resolved").Inc()
	r.metrics.DiscardedClaims.Add(float64(discarded))
	if discarded > 0 {
		r.logger.Debug("resolved surface conflicts", "entries", len(records), "discarded_claims", discarded)
	}
	return resolved, nil
}

// ResolveWith resolves records against an already loaded catalog.
func ResolveWith(catalog *Catalog, records []model.CanonicalServiceRecord) []model.CanonicalServiceRecord {
	out, _ := resolve(catalog, records)
	return out
}

func hasClaims(records []model.CanonicalServiceRecord) bool {
	for _, rec := range records {
		if claims(rec) {
			return true
		}
	}
	return false
}

// claims reports whether a record competes for chart cells. Preventive
// entries and entries without a tooth are passed through untouched.
func claims(rec model.CanonicalServiceRecord) bool {
	return !rec.IsPreventive() && rec.ToothNumber != nil
}

func passThrough(records []model.CanonicalServiceRecord) []model.CanonicalServiceRecord {
	out := make([]model.CanonicalServiceRecord, len(records))
	copy(out, records)
	return out
}

func keysOf(rec model.CanonicalServiceRecord) []cellKey {
	tooth := *rec.ToothNumber
	if len(rec.Surfaces) == 0 {
		return []cellKey{{tooth: tooth, surface: model.SurfaceWhole}}
	}
	keys := make([]cellKey, len(rec.Surfaces))
	for i, s := range rec.Surfaces {
		keys[i] = cellKey{tooth: tooth, surface: s}
	}
	return keys
}

func resolve(catalog *Catalog, records []model.CanonicalServiceRecord) ([]model.CanonicalServiceRecord, int) {
	winners := make(map[cellKey]claim)
	total := 0

	for i, rec := range records {
		if !claims(rec) {
			continue
		}
		p := catalog.Priority(rec.ResultingCondition)
		for _, k := range keysOf(rec) {
			total++
			// Strictly greater only: on ties the earlier entry keeps the cell.
			if best, ok := winners[k]; !ok || p > best.priority {
				winners[k] = claim{record: i, priority: p}
			}
		}
	}

	out := make([]model.CanonicalServiceRecord, 0, len(records))
	var rest []model.CanonicalServiceRecord

	for i, rec := range records {
		if !claims(rec) {
			rest = append(rest, rec)
			continue
		}

		keys := keysOf(rec)
		won := make([]cellKey, 0, len(keys))
		for _, k := range keys {
			if winners[k].record == i {
				won = append(won, k)
			}
		}

		switch {
		case len(won) == 0:
		case len(won) == len(keys):
			out = append(out, rec)
		default:
			// Partial winners are split so each retained surface stands alone.
			for _, k := range won {
				part := rec
				part.Surfaces = model.SurfaceSet{k.surface}
				out = append(out, part)
			}
		}
	}

	return append(out, rest...), total - len(winners)
}

// CountClaims returns how many chart cells the records claim in total.
func CountClaims(records []model.CanonicalServiceRecord) int {
	n := 0
	for _, rec := range records {
		if claims(rec) {
			n += len(keysOf(rec))
		}
	}
	return n
}
