package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Surface is one of the clinically distinguished faces of a tooth.
type Surface string

const (
	SurfaceOclusal    Surface = "oclusal"
	SurfaceMesial     Surface = "mesial"
	SurfaceDistal     Surface = "distal"
	SurfaceVestibular Surface = "vestibular"
	SurfaceLingual    Surface = "lingual"

	// SurfaceWhole addresses the whole-tooth cell, used by conditions that are
	// not surface-local such as an extraction.
	SurfaceWhole Surface = ""
)

// Surfaces lists the named surfaces in canonical clinical order.
var Surfaces = []Surface{SurfaceOclusal, SurfaceMesial, SurfaceDistal, SurfaceVestibular, SurfaceLingual}

func (s Surface) Valid() bool {
	return s.rank() < len(Surfaces)
}

func (s Surface) rank() int {
	for i, named := range Surfaces {
		if s == named {
			return i
		}
	}
	return len(Surfaces)
}

// SurfaceSet is an ordered set of surfaces without duplicates.
type SurfaceSet []Surface

// NewSurfaceSet builds a set from raw tokens. Tokens are expected to be
// trimmed and lower-cased already; empty tokens and duplicates are dropped.
func NewSurfaceSet(tokens ...string) SurfaceSet {
	seen := make(map[Surface]struct{}, len(tokens))
	set := make(SurfaceSet, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		s := Surface(t)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		set = append(set, s)
	}
	sort.SliceStable(set, func(i, j int) bool {
		ri, rj := set[i].rank(), set[j].rank()
		if ri != rj {
			return ri < rj
		}
		return set[i] < set[j]
	})
	return set
}

func (s SurfaceSet) Contains(surface Surface) bool {
	for _, x := range s {
		if x == surface {
			return true
		}
	}
	return false
}

// FDI permanent dentition, quadrant by quadrant.
var PermanentTeeth = func() []int {
	teeth := make([]int, 0, 32)
	for quadrant := 1; quadrant <= 4; quadrant++ {
		for position := 1; position <= 8; position++ {
			teeth = append(teeth, quadrant*10+position)
		}
	}
	return teeth
}()

// IsPermanentTooth reports whether n is a valid FDI permanent tooth number.
func IsPermanentTooth(n int) bool {
	quadrant, position := n/10, n%10
	return quadrant >= 1 && quadrant <= 4 && position >= 1 && position <= 8
}

const (
	SeverityMild     = "leve"
	SeverityModerate = "moderada"
	SeveritySevere   = "severa"

	ConditionHealthy = "sano"
	ConditionMissing = "ausente"
)

// ToothSurfaceState is the current state of one cell of the chart.
type ToothSurfaceState struct {
	Condition string    `json:"condition"`
	Severity  string    `json:"severity,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Material  string    `json:"material,omitempty"`
	Service   string    `json:"service,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToothChart holds the five named surfaces of a tooth plus its whole-tooth cell.
type ToothChart struct {
	Number   int                           `json:"number"`
	Whole    ToothSurfaceState             `json:"whole"`
	Surfaces map[Surface]ToothSurfaceState `json:"surfaces"`
}

// Cell returns the state stored for the given surface, SurfaceWhole included.
func (t ToothChart) Cell(s Surface) (ToothSurfaceState, bool) {
	if s == SurfaceWhole {
		return t.Whole, true
	}
	state, ok := t.Surfaces[s]
	return state, ok
}

// OdontogramSnapshot is an immutable, versioned whole-mouth chart.
type OdontogramSnapshot struct {
	PatientID  uuid.UUID          `json:"patient_id"`
	Version    int                `json:"version"`
	ModifiedAt time.Time          `json:"modified_at"`
	CreatedBy  uuid.UUID          `json:"created_by"`
	Teeth      map[int]ToothChart `json:"teeth"`
}

// SnapshotSummary describes a stored version without its cells.
type SnapshotSummary struct {
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	Version    int       `db:"version" json:"version"`
	ModifiedAt time.Time `db:"modified_at" json:"modified_at"`
	CreatedBy  uuid.UUID `db:"created_by" json:"created_by"`
}

// CellChange is one cell that differs between two snapshots.
type CellChange struct {
	Tooth   int               `json:"tooth"`
	Surface Surface           `json:"surface"`
	From    ToothSurfaceState `json:"from"`
	To      ToothSurfaceState `json:"to"`
}
