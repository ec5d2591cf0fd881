package dental

import (
	"fmt"
	"sort"

	"github.com/jwalitptl/odontogram-api/internal/model"
)

// History is the append-only list of a patient's chart versions.
type History struct {
	snapshots []model.OdontogramSnapshot
}

// Append adds s as the newest version. Versions must follow one another.
func (h *History) Append(s model.OdontogramSnapshot) error {
	if n := len(h.snapshots); n > 0 {
		latest := h.snapshots[n-1]
		if s.PatientID != latest.PatientID {
			return fmt.Errorf("snapshot belongs to patient %s, history to %s", s.PatientID, latest.PatientID)
		}
		if s.Version != latest.Version+1 {
			return fmt.Errorf("snapshot version %d does not follow %d", s.Version, latest.Version)
		}
	}
	h.snapshots = append(h.snapshots, s)
	return nil
}

func (h *History) Latest() (model.OdontogramSnapshot, bool) {
	if len(h.snapshots) == 0 {
		return model.OdontogramSnapshot{}, false
	}
	return h.snapshots[len(h.snapshots)-1], true
}

func (h *History) Version(v int) (model.OdontogramSnapshot, bool) {
	i := sort.Search(len(h.snapshots), func(i int) bool {
		return h.snapshots[i].Version >= v
	})
	if i < len(h.snapshots) && h.snapshots[i].Version == v {
		return h.snapshots[i], true
	}
	return model.OdontogramSnapshot{}, false
}

func (h *History) Len() int {
	return len(h.snapshots)
}
