package report

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/MarcoCnrqz/labconriquez/internal/domain/analysis"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/patient"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/refrange"
)

const sheetName = "Results"

var resultHeader = []string{"Property", "Value", "Unit", "Reference range", "Evaluation"}

// Document is everything an exported report shows.
type Document struct {
	Report        *Report
	Analysis      *analysis.Analysis
	Patient       *patient.Patient
	TemplateTitle string
	Results       []*analysis.ClassifiedResult
}

// headerRows is the number of rows above the result table header.
const headerRows = 6

// RenderXLSX writes doc as a single-sheet workbook. Out-of-range values are
// highlighted red and in-range values green.
func RenderXLSX(doc *Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheetName); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	index, err := f.GetSheetIndex(sheetName)
	if err != nil {
		return nil, fmt.Errorf("locate sheet: %w", err)
	}
	f.SetActiveSheet(index)

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	info := [][2]string{
		{"Patient", doc.Patient.Name},
		{"Age", strconv.Itoa(doc.Patient.Age)},
		{"Sex", string(doc.Patient.Sex)},
		{"Template", doc.TemplateTitle},
		{"Generated", doc.Report.GeneratedAt.Format("2006-01-02 15:04")},
	}
	for i, kv := range info {
		row := i + 1
		if err := setRow(f, row, kv[0], kv[1]); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheetName, cellName(1, row), cellName(1, row), styles.label); err != nil {
			return nil, fmt.Errorf("style label: %w", err)
		}
	}

	headerRow := headerRows + 1
	cells := make([]interface{}, len(resultHeader))
	for i, h := range resultHeader {
		cells[i] = h
	}
	if err := f.SetSheetRow(sheetName, cellName(1, headerRow), &cells); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(sheetName, cellName(1, headerRow), cellName(len(resultHeader), headerRow), styles.header); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, r := range doc.Results {
		row := headerRow + 1 + i
		if err := setRow(f, row, r.PropertyName, r.Value, r.UnitString(), r.Range, string(r.Evaluation)); err != nil {
			return nil, err
		}
		if style, ok := styles.evaluation[r.Evaluation]; ok {
			if err := f.SetCellStyle(sheetName, cellName(2, row), cellName(2, row), style); err != nil {
				return nil, fmt.Errorf("style value: %w", err)
			}
		}
	}

	for i, w := range []float64{28, 14, 12, 22, 16} {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type sheetStyles struct {
	label      int
	header     int
	evaluation map[refrange.Evaluation]int
}

func newStyles(f *excelize.File) (*sheetStyles, error) {
	label, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create label style: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	out, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Color: "C00000"}})
	if err != nil {
		return nil, fmt.Errorf("create out-of-range style: %w", err)
	}
	in, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "2E7D32"}})
	if err != nil {
		return nil, fmt.Errorf("create in-range style: %w", err)
	}
	return &sheetStyles{
		label:  label,
		header: header,
		evaluation: map[refrange.Evaluation]int{
			refrange.OutOfRange: out,
			refrange.InRange:    in,
		},
	}, nil
}

func setRow(f *excelize.File, row int, values ...string) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheetName, cellName(1, row), &cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
