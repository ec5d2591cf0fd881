package dental

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/odontogram-api/internal/model"
)

// NewOdontogram returns version 0 of a patient chart: every permanent tooth
// healthy on all five surfaces and on its whole-tooth cell.
func NewOdontogram(patientID uuid.UUID, now time.Time) model.OdontogramSnapshot {
	healthy := model.ToothSurfaceState{Condition: model.ConditionHealthy, UpdatedAt: now}

	teeth := make(map[int]model.ToothChart, len(model.PermanentTeeth))
	for _, n := range model.PermanentTeeth {
		surfaces := make(map[model.Surface]model.ToothSurfaceState, len(model.Surfaces))
		for _, s := range model.Surfaces {
			surfaces[s] = healthy
		}
		teeth[n] = model.ToothChart{Number: n, Whole: healthy, Surfaces: surfaces}
	}

	return model.OdontogramSnapshot{
		PatientID:  patientID,
		Version:    0,
		ModifiedAt: now,
		Teeth:      teeth,
	}
}

// Apply writes the winning records onto a copy of current and returns it as
// the next version. current is left untouched.
//
// Preventive records do not change the chart. Records naming teeth or
// surfaces outside the chart are skipped; they are rejected earlier by
// RecordValidator.
func Apply(current model.OdontogramSnapshot, winners []model.CanonicalServiceRecord, now time.Time) model.OdontogramSnapshot {
	next := clone(current)
	next.Version = current.Version + 1
	next.ModifiedAt = now

	for _, rec := range winners {
		if !claims(rec) {
			continue
		}
		tooth, ok := next.Teeth[*rec.ToothNumber]
		if !ok {
			continue
		}

		state := model.ToothSurfaceState{
			Condition: rec.ResultingCondition,
			Severity:  rec.Severity,
			Notes:     rec.Notes,
			Material:  rec.Material,
			Service:   rec.Name,
			UpdatedAt: now,
		}
		if state.Severity == "" {
			state.Severity = model.SeverityMild
		}

		if rec.IsWholeTooth() {
			tooth.Whole = state
		}
		for _, s := range rec.Surfaces {
			if _, known := tooth.Surfaces[s]; known {
				tooth.Surfaces[s] = state
			}
		}
		next.Teeth[tooth.Number] = tooth
	}

	return next
}

func clone(s model.OdontogramSnapshot) model.OdontogramSnapshot {
	out := s
	out.Teeth = make(map[int]model.ToothChart, len(s.Teeth))
	for n, tooth := range s.Teeth {
		surfaces := make(map[model.Surface]model.ToothSurfaceState, len(tooth.Surfaces))
		for k, v := range tooth.Surfaces {
			surfaces[k] = v
		}
		tooth.Surfaces = surfaces
		out.Teeth[n] = tooth
	}
	return out
}
