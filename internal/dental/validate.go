package dental

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/odontogram-api/internal/model"
)

// checkedRecord mirrors CanonicalServiceRecord with the boundary rules.
type checkedRecord struct {
	Name      string   `validate:"max=200"`
	Condition string   `validate:"omitempty,max=64"`
	Tooth     *int     `validate:"required_with=Condition,omitempty,fdi"`
	Surfaces  []string `validate:"max=5,dive,surface"`
	Material  string   `validate:"max=200"`
	Notes     string   `validate:"max=2000"`
	Severity  string   `validate:"omitempty,oneof=leve moderada severa"`
}

var fieldNames = map[string]string{
	"Name":      "nombre_servicio",
	"Condition": "condicion_resultante",
	"Tooth":     "diente_numero",
	"Surfaces":  "superficies",
	"Material":  "material",
	"Notes":     "observaciones",
	"Severity":  "severidad",
}

// RecordValidator rejects canonical records the chart cannot hold: unknown
// surfaces, teeth outside FDI permanent numbering, oversized text.
type RecordValidator struct {
	validate *validator.Validate
}

func NewRecordValidator() *RecordValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails on an empty tag or a nil func.
	_ = v.RegisterValidation("fdi", func(fl validator.FieldLevel) bool {
		return model.IsPermanentTooth(int(fl.Field().Int()))
	})
	_ = v.RegisterValidation("surface", func(fl validator.FieldLevel) bool {
		return model.Surface(fl.Field().String()).Valid()
	})
	return &RecordValidator{validate: v}
}

// Validate returns one EntryError per failed rule, tagged with index.
func (v *RecordValidator) Validate(index int, r model.CanonicalServiceRecord) []model.EntryError {
	surfaces := make([]string, len(r.Surfaces))
	for i, s := range r.Surfaces {
		surfaces[i] = string(s)
	}

	err := v.validate.Struct(checkedRecord{
		Name:      r.Name,
		Condition: r.ResultingCondition,
		Tooth:     r.ToothNumber,
		Surfaces:  surfaces,
		Material:  r.Material,
		Notes:     r.Notes,
		Severity:  r.Severity,
	})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []model.EntryError{{Index: index, Message: err.Error()}}
	}

	out := make([]model.EntryError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, model.EntryError{
			Index:   index,
			Field:   fieldName(fe.StructField()),
			Message: describe(fe),
		})
	}
	return out
}

// fieldName maps "Surfaces[2]" style names back to the input key.
func fieldName(structField string) string {
	name, _, _ := strings.Cut(structField, "[")
	return fieldNames[name]
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "fdi":
		return fmt.Sprintf("%v is not an FDI permanent tooth number", fe.Value())
	case "surface":
		return fmt.Sprintf("unknown surface %q", fe.Value())
	case "required_with":
		return "a tooth number is required when a condition is set"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s", fe.Param())
	default:
		return fe.Error()
	}
}
