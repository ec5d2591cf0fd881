package dental_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/odontogram-api/internal/dental"
	"github.com/jwalitptl/odontogram-api/internal/model"
)

var (
	patientID = uuid.MustParse("6f1c1f7e-5d8e-4c38-9a57-3f0f2a3f4e10")
	t0        = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
)

func TestNewOdontogram(t *testing.T) {
	chart := dental.NewOdontogram(patientID, t0)

	assert.Equal(t, 0, chart.Version)
	assert.Equal(t, patientID, chart.PatientID)
	require.Len(t, chart.Teeth, 32)
	for _, n := range model.PermanentTeeth {
		tooth := chart.Teeth[n]
		assert.Equal(t, n, tooth.Number)
		assert.Equal(t, model.ConditionHealthy, tooth.Whole.Condition)
		require.Len(t, tooth.Surfaces, 5)
		for _, s := range model.Surfaces {
			assert.Equal(t, model.ConditionHealthy, tooth.Surfaces[s].Condition, "tooth %d %s", n, s)
		}
	}
}

func TestApply(t *testing.T) {
	base := dental.NewOdontogram(patientID, t0)
	t1 := t0.Add(time.Hour)

	caries := rec("diagnostico", 26, "caries", "mesial")
	caries.Severity = model.SeverityModerate
	filling := rec("resina", 26, "obturacion", "oclusal")
	filling.Material = "resina"
	extraction := rec("extraccion", 48, "ausente")
	cleaning := model.CanonicalServiceRecord{Name: "limpieza", Surfaces: model.SurfaceSet{}}

	next := dental.Apply(base, []model.CanonicalServiceRecord{caries, filling, extraction, cleaning}, t1)

	assert.Equal(t, 1, next.Version)
	assert.Equal(t, t1, next.ModifiedAt)

	mesial := next.Teeth[26].Surfaces[model.SurfaceMesial]
	assert.Equal(t, "caries", mesial.Condition)
	assert.Equal(t, model.SeverityModerate, mesial.Severity)
	assert.Equal(t, "diagnostico", mesial.Service)
	assert.Equal(t, t1, mesial.UpdatedAt)

	oclusal := next.Teeth[26].Surfaces[model.SurfaceOclusal]
	assert.Equal(t, "obturacion", oclusal.Condition)
	assert.Equal(t, model.SeverityMild, oclusal.Severity)
	assert.Equal(t, "resina", oclusal.Material)

	assert.Equal(t, model.ConditionHealthy, next.Teeth[26].Whole.Condition)
	assert.Equal(t, "ausente", next.Teeth[48].Whole.Condition)
	assert.Equal(t, model.ConditionHealthy, next.Teeth[48].Surfaces[model.SurfaceOclusal].Condition)

	// current is not modified
	assert.Equal(t, 0, base.Version)
	assert.Equal(t, model.ConditionHealthy, base.Teeth[26].Surfaces[model.SurfaceMesial].Condition)
	assert.Equal(t, model.ConditionHealthy, base.Teeth[48].Whole.Condition)
}

func TestApply_SkipsCellsOutsideChart(t *testing.T) {
	base := dental.NewOdontogram(patientID, t0)

	next := dental.Apply(base, []model.CanonicalServiceRecord{
		rec("x", 55, "caries", "oclusal"),
		rec("y", 11, "caries", "palatina"),
	}, t0)

	assert.Empty(t, dental.Diff(base, next))
	assert.NotContains(t, next.Teeth[11].Surfaces, model.Surface("palatina"))
}

func TestHistory(t *testing.T) {
	var h dental.History
	_, ok := h.Latest()
	assert.False(t, ok)

	v0 := dental.NewOdontogram(patientID, t0)
	require.NoError(t, h.Append(v0))
	v1 := dental.Apply(v0, []model.CanonicalServiceRecord{rec("a", 11, "caries", "oclusal")}, t0.Add(time.Hour))
	require.NoError(t, h.Append(v1))

	assert.Error(t, h.Append(v0), "versions must follow one another")
	other := v1
	other.Version = 2
	other.PatientID = uuid.New()
	assert.Error(t, h.Append(other))

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, 1, latest.Version)
	assert.Equal(t, 2, h.Len())

	got, ok := h.Version(0)
	require.True(t, ok)
	assert.Equal(t, model.ConditionHealthy, got.Teeth[11].Surfaces[model.SurfaceOclusal].Condition)

	_, ok = h.Version(5)
	assert.False(t, ok)
}

func TestDiff(t *testing.T) {
	v0 := dental.NewOdontogram(patientID, t0)
	v1 := dental.Apply(v0, []model.CanonicalServiceRecord{
		rec("b", 36, "caries", "oclusal", "distal"),
		rec("a", 11, "ausente"),
	}, t0.Add(time.Hour))

	changes := dental.Diff(v0, v1)

	require.Len(t, changes, 3)
	assert.Equal(t, 11, changes[0].Tooth)
	assert.Equal(t, model.SurfaceWhole, changes[0].Surface)
	assert.Equal(t, "ausente", changes[0].To.Condition)
	assert.Equal(t, model.Surface("oclusal"), changes[1].Surface)
	assert.Equal(t, model.Surface("distal"), changes[2].Surface)
	assert.Equal(t, model.ConditionHealthy, changes[2].From.Condition)

	assert.Empty(t, dental.Diff(v1, v1))
}

func TestDiff_IgnoresTimestamps(t *testing.T) {
	v0 := dental.NewOdontogram(patientID, t0)
	later := dental.NewOdontogram(patientID, t0.Add(24*time.Hour))

	assert.Empty(t, dental.Diff(v0, later))
}
