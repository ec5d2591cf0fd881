package dental_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/odontogram-api/internal/dental"
	"github.com/jwalitptl/odontogram-api/internal/model"
)

func TestNormalize_ServiceRecord(t *testing.T) {
	tests := []struct {
		name string
		raw  model.ServiceRecord
		want model.CanonicalServiceRecord
	}{
		{
			name: "explicit condition and surface list",
			raw: model.ServiceRecord{
				"nombre_servicio":      "Resina",
				"condicion_resultante": "Obturacion",
				"diente_numero":        26,
				"superficies":          []interface{}{"Mesial", "oclusal", "mesial"},
				"material":             "resina",
			},
			want: model.CanonicalServiceRecord{
				Name:               "Resina",
				ResultingCondition: "obturacion",
				ToothNumber:        tooth(26),
				Surfaces:           model.SurfaceSet{model.SurfaceOclusal, model.SurfaceMesial},
				Material:           "resina",
			},
		},
		{
			name: "legacy condition key when explicit one is blank",
			raw: model.ServiceRecord{
				"nombre_servicio":      "Diagnostico",
				"condicion_resultante": "  ",
				"nueva_condicion":      "caries",
				"diente_numero":        "36",
				"superficie":           "oclusal, distal",
			},
			want: model.CanonicalServiceRecord{
				Name:               "Diagnostico",
				ResultingCondition: "caries",
				ToothNumber:        tooth(36),
				Surfaces:           model.SurfaceSet{model.SurfaceOclusal, model.SurfaceDistal},
			},
		},
		{
			name: "explicit condition wins over legacy",
			raw: model.ServiceRecord{
				"condicion_resultante": "endodoncia",
				"nueva_condicion":      "caries",
				"diente_numero":        json.Number("11"),
			},
			want: model.CanonicalServiceRecord{
				ResultingCondition: "endodoncia",
				ToothNumber:        tooth(11),
				Surfaces:           model.SurfaceSet{},
			},
		},
		{
			name: "preventive without condition",
			raw: model.ServiceRecord{
				"nombre_servicio":    "Limpieza",
				"material_utilizado": "pasta",
				"severidad":          "LEVE",
				"observaciones":      " sin hallazgos ",
			},
			want: model.CanonicalServiceRecord{
				Name:     "Limpieza",
				Surfaces: model.SurfaceSet{},
				Material: "pasta",
				Notes:    "sin hallazgos",
				Severity: "leve",
			},
		},
		{
			name: "non numeric tooth is dropped",
			raw: model.ServiceRecord{
				"condicion_resultante": "caries",
				"diente_numero":        "once",
			},
			want: model.CanonicalServiceRecord{
				ResultingCondition: "caries",
				Surfaces:           model.SurfaceSet{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dental.Normalize(tt.raw))
		})
	}
}

func TestNormalize_ServiceModel(t *testing.T) {
	n := 14
	got := dental.Normalize(&model.ServiceModel{
		Name:            " Corona ",
		LegacyCondition: "Corona",
		ToothNumber:     &n,
		Surfaces:        []string{"lingual", "vestibular,oclusal"},
		Severity:        "Moderada",
	})

	assert.Equal(t, model.CanonicalServiceRecord{
		Name:               "Corona",
		ResultingCondition: "corona",
		ToothNumber:        tooth(14),
		Surfaces:           model.SurfaceSet{model.SurfaceOclusal, model.SurfaceVestibular, model.SurfaceLingual},
		Severity:           "moderada",
	}, got)

	n = 99
	assert.Equal(t, 14, *got.ToothNumber, "tooth number is copied")
}

func TestNormalize_LegacyService(t *testing.T) {
	got := dental.Normalize(&model.LegacyService{
		Name:         "Obturacion",
		NewCondition: "OBTURACION",
		ToothNumber:  "46",
		Surface:      "mesial distal,,oclusal",
		Material:     "amalgama",
	})

	assert.Equal(t, model.CanonicalServiceRecord{
		Name:               "Obturacion",
		ResultingCondition: "obturacion",
		ToothNumber:        tooth(46),
		Surfaces:           model.SurfaceSet{model.SurfaceOclusal, model.SurfaceMesial, model.SurfaceDistal},
		Material:           "amalgama",
	}, got)
}

func TestNormalize_UnsupportedInput(t *testing.T) {
	empty := model.CanonicalServiceRecord{Surfaces: model.SurfaceSet{}}

	assert.Equal(t, empty, dental.Normalize(nil))
	assert.Equal(t, empty, dental.Normalize(model.UnknownService{Value: 42}))
	assert.Equal(t, empty, dental.Normalize((*model.ServiceModel)(nil)))
	assert.Equal(t, empty, dental.Normalize((*model.LegacyService)(nil)))
}

func TestNormalize_ShapesAgree(t *testing.T) {
	n := 36
	shapes := []model.RawService{
		model.ServiceRecord{"nombre_servicio": "x", "condicion_resultante": "caries", "diente_numero": 36.0, "superficies": "oclusal"},
		&model.ServiceModel{Name: "x", ResultingCondition: "caries", ToothNumber: &n, Surfaces: []string{"oclusal"}},
		&model.LegacyService{Name: "x", NewCondition: "caries", ToothNumber: "36", Surface: "oclusal"},
	}

	out := dental.NormalizeAll(shapes)

	require.Len(t, out, 3)
	assert.Equal(t, out[0], out[1])
	assert.Equal(t, out[1], out[2])
}

func TestDecodeRawService(t *testing.T) {
	raw := dental.DecodeRawService(json.RawMessage(`{"nombre_servicio":"Resina","diente_numero":26,"superficies":["mesial"],"nueva_condicion":"obturacion"}`))
	rec, ok := raw.(model.ServiceRecord)
	require.True(t, ok)

	got := dental.Normalize(rec)
	assert.Equal(t, 26, *got.ToothNumber)
	assert.Equal(t, "obturacion", got.ResultingCondition)
	assert.Equal(t, model.SurfaceSet{model.SurfaceMesial}, got.Surfaces)

	for _, input := range []string{`[1,2]`, `"texto"`, `null`, `{broken`} {
		_, unknown := dental.DecodeRawService(json.RawMessage(input)).(model.UnknownService)
		assert.True(t, unknown, input)
	}
}
