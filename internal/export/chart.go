// Package export renders odontogram snapshots as spreadsheets.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jwalitptl/odontogram-api/internal/model"
)

const (
	ChartSheet     = "Odontograma"
	ConditionSheet = "Condiciones"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ChartHeader is the first row of the chart sheet. Columns after "Diente"
// follow the whole-tooth cell and then the surfaces in clinical order.
var ChartHeader = func() []string {
	header := []string{"Diente", "Completo"}
	for _, s := range model.Surfaces {
		header = append(header, strings.ToUpper(string(s[:1]))+string(s[1:]))
	}
	return header
}()

var conditionHeader = []string{"Código", "Nombre", "Categoría", "Prioridad", "Terminal", "Color"}

// Chart builds an xlsx workbook with one row per tooth. Cells are filled with
// the catalog color of their condition; conditions missing from the catalog
// are written without a fill.
func Chart(snapshot model.OdontogramSnapshot, catalog []model.ConditionCatalogEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(ChartSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeHeader(f, ChartSheet, ChartHeader, headerStyle); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(ChartSheet, "A", "A", 10); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(len(ChartHeader))
	if err := f.SetColWidth(ChartSheet, "B", last, 16); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	styles := newConditionStyles(f, catalog)
	cells := append([]model.Surface{model.SurfaceWhole}, model.Surfaces...)

	row := 2
	for _, number := range model.PermanentTeeth {
		tooth, ok := snapshot.Teeth[number]
		if !ok {
			continue
		}
		if err := setCell(f, ChartSheet, 1, row, number, 0); err != nil {
			return nil, err
		}
		for i, s := range cells {
			state, ok := tooth.Cell(s)
			if !ok {
				continue
			}
			style, err := styles.get(state.Condition)
			if err != nil {
				return nil, err
			}
			if err := setCell(f, ChartSheet, i+2, row, state.Condition, style); err != nil {
				return nil, err
			}
		}
		row++
	}

	if err := writeCatalog(f, catalog, headerStyle); err != nil {
		return nil, err
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       fmt.Sprintf("Odontograma %s v%d", snapshot.PatientID, snapshot.Version),
		Description: fmt.Sprintf("Modified %s", snapshot.ModifiedAt.UTC().Format("2006-01-02 15:04:05")),
	}); err != nil {
		return nil, fmt.Errorf("failed to set document properties: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeCatalog(f *excelize.File, catalog []model.ConditionCatalogEntry, headerStyle int) error {
	if _, err := f.NewSheet(ConditionSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeHeader(f, ConditionSheet, conditionHeader, headerStyle); err != nil {
		return err
	}
	for i, e := range catalog {
		terminal := "No"
		if e.IsTerminal {
			terminal = "Sí"
		}
		values := []interface{}{e.Code, e.DisplayName, e.Category, e.Priority, terminal, e.Color}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(ConditionSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write catalog row %d: %w", i+2, err)
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, header []string, style int) error {
	for col, title := range header {
		if err := setCell(f, sheet, col+1, 1, title, style); err != nil {
			return err
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	if style == 0 {
		return nil
	}
	if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
		return fmt.Errorf("failed to set style of %s: %w", cell, err)
	}
	return nil
}

// conditionStyles creates one fill style per catalog color on first use.
type conditionStyles struct {
	f      *excelize.File
	colors map[string]string
	ids    map[string]int
}

func newConditionStyles(f *excelize.File, catalog []model.ConditionCatalogEntry) *conditionStyles {
	colors := make(map[string]string, len(catalog))
	for _, e := range catalog {
		if e.Color != "" {
			colors[strings.ToLower(e.Code)] = e.Color
		}
	}
	return &conditionStyles{f: f, colors: colors, ids: make(map[string]int)}
}

func (s *conditionStyles) get(condition string) (int, error) {
	color, ok := s.colors[condition]
	if !ok {
		return 0, nil
	}
	if id, ok := s.ids[color]; ok {
		return id, nil
	}
	id, err := s.f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Font:      &excelize.Font{Color: contrast(color)},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create style for %s: %w", condition, err)
	}
	s.ids[color] = id
	return id, nil
}

// contrast picks black or white text for a "#RRGGBB" fill.
func contrast(color string) string {
	var r, g, b int
	if _, err := fmt.Sscanf(strings.TrimPrefix(color, "#"), "%02x%02x%02x", &r, &g, &b); err != nil {
		return "#000000"
	}
	if r*299+g*587+b*114 < 128000 {
		return "#FFFFFF"
	}
	return "#000000"
}
