package dental

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/jwalitptl/odontogram-api/internal/model"
)

// Record keys accepted by the generic shape.
const (
	keyName            = "nombre_servicio"
	keyCondition       = "condicion_resultante"
	keyLegacyCondition = "nueva_condicion"
	keyTooth           = "diente_numero"
	keySurfaces        = "superficies"
	keySurface         = "superficie"
	keyMaterial        = "material"
	keyLegacyMaterial  = "material_utilizado"
	keyNotes           = "observaciones"
	keySeverity        = "severidad"
)

// Normalize converts any supported service shape into a canonical record.
// It never fails: nil or unsupported input yields an empty record.
func Normalize(raw model.RawService) model.CanonicalServiceRecord {
	switch v := raw.(type) {
	case model.ServiceRecord:
		return normalizeRecord(v)
	case *model.ServiceModel:
		if v == nil {
			return emptyRecord()
		}
		return normalizeModel(v)
	case *model.LegacyService:
		if v == nil {
			return emptyRecord()
		}
		return normalizeLegacy(v)
	default:
		return emptyRecord()
	}
}

// NormalizeAll normalizes a batch, keeping input order.
func NormalizeAll(raws []model.RawService) []model.CanonicalServiceRecord {
	out := make([]model.CanonicalServiceRecord, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Normalize(raw))
	}
	return out
}

// DecodeRawService classifies a JSON entry. Objects become a ServiceRecord;
// anything else is kept as UnknownService.
func DecodeRawService(data json.RawMessage) model.RawService {
	var fields map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return model.UnknownService{Value: string(data)}
	}
	return model.ServiceRecord(fields)
}

func emptyRecord() model.CanonicalServiceRecord {
	return model.CanonicalServiceRecord{Surfaces: model.SurfaceSet{}}
}

func normalizeRecord(r model.ServiceRecord) model.CanonicalServiceRecord {
	surfaces := surfacesFrom(r[keySurfaces])
	if len(surfaces) == 0 {
		surfaces = surfacesFrom(r[keySurface])
	}

	return model.CanonicalServiceRecord{
		Name:               firstNonBlank(stringFrom(r[keyName])),
		ResultingCondition: condition(stringFrom(r[keyCondition]), stringFrom(r[keyLegacyCondition])),
		ToothNumber:        toothFrom(r[keyTooth]),
		Surfaces:           model.NewSurfaceSet(surfaces...),
		Material:           firstNonBlank(stringFrom(r[keyMaterial]), stringFrom(r[keyLegacyMaterial])),
		Notes:              strings.TrimSpace(stringFrom(r[keyNotes])),
		Severity:           strings.ToLower(strings.TrimSpace(stringFrom(r[keySeverity]))),
	}
}

func normalizeModel(m *model.ServiceModel) model.CanonicalServiceRecord {
	var tooth *int
	if m.ToothNumber != nil {
		n := *m.ToothNumber
		tooth = &n
	}

	return model.CanonicalServiceRecord{
		Name:               strings.TrimSpace(m.Name),
		ResultingCondition: condition(m.ResultingCondition, m.LegacyCondition),
		ToothNumber:        tooth,
		Surfaces:           model.NewSurfaceSet(surfacesFrom(m.Surfaces)...),
		Material:           strings.TrimSpace(m.Material),
		Notes:              strings.TrimSpace(m.Notes),
		Severity:           strings.ToLower(strings.TrimSpace(m.Severity)),
	}
}

func normalizeLegacy(l *model.LegacyService) model.CanonicalServiceRecord {
	return model.CanonicalServiceRecord{
		Name:               strings.TrimSpace(l.Name),
		ResultingCondition: condition(l.NewCondition),
		ToothNumber:        toothFrom(l.ToothNumber),
		Surfaces:           model.NewSurfaceSet(splitSurfaces(l.Surface)...),
		Material:           strings.TrimSpace(l.Material),
	}
}

// condition picks the first non-blank candidate; the explicit field is
// passed first. An empty result means a preventive service.
func condition(candidates ...string) string {
	return strings.ToLower(firstNonBlank(candidates...))
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func stringFrom(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

func toothFrom(v interface{}) *int {
	var n int
	switch t := v.(type) {
	case int:
		n = t
	case int32:
		n = int(t)
	case int64:
		n = int(t)
	case *int:
		if t == nil {
			return nil
		}
		n = *t
	case float64:
		if !isIntegral(t) {
			return nil
		}
		n = int(t)
	case float32:
		if !isIntegral(float64(t)) {
			return nil
		}
		n = int(t)
	case json.Number:
		return toothFrom(t.String())
	case string:
		s := strings.TrimSpace(t)
		if i, err := strconv.Atoi(s); err == nil {
			n = i
			break
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || !isIntegral(f) {
			return nil
		}
		n = int(f)
	default:
		return nil
	}
	return &n
}

func isIntegral(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f) && math.Abs(f) < math.MaxInt32
}

func surfacesFrom(v interface{}) []string {
	switch s := v.(type) {
	case string:
		return splitSurfaces(s)
	case []string:
		var out []string
		for _, item := range s {
			out = append(out, splitSurfaces(item)...)
		}
		return out
	case []interface{}:
		var out []string
		for _, item := range s {
			out = append(out, splitSurfaces(stringFrom(item))...)
		}
		return out
	default:
		return nil
	}
}

// splitSurfaces splits on commas and whitespace, dropping empty tokens.
func splitSurfaces(s string) []string {
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}
	return tokens
}
