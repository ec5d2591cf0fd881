package dental

import (
	"sort"

	"github.com/jwalitptl/odontogram-api/internal/model"
)

// Diff lists the cells whose condition, severity, notes or material differ
// between two snapshots, ordered by tooth then surface. Timestamps alone do
// not count as a change.
func Diff(from, to model.OdontogramSnapshot) []model.CellChange {
	teeth := make([]int, 0, len(to.Teeth))
	seen := make(map[int]struct{}, len(to.Teeth))
	for n := range to.Teeth {
		teeth = append(teeth, n)
		seen[n] = struct{}{}
	}
	for n := range from.Teeth {
		if _, ok := seen[n]; !ok {
			teeth = append(teeth, n)
		}
	}
	sort.Ints(teeth)

	cells := append([]model.Surface{model.SurfaceWhole}, model.Surfaces...)

	var changes []model.CellChange
	for _, n := range teeth {
		before, after := from.Teeth[n], to.Teeth[n]
		for _, s := range cells {
			a, _ := before.Cell(s)
			b, _ := after.Cell(s)
			if sameState(a, b) {
				continue
			}
			changes = append(changes, model.CellChange{Tooth: n, Surface: s, From: a, To: b})
		}
	}
	return changes
}

func sameState(a, b model.ToothSurfaceState) bool {
	return a.Condition == b.Condition &&
		a.Severity == b.Severity &&
		a.Notes == b.Notes &&
		a.Material == b.Material
}
