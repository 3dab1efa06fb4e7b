// Package export renders resolved month calendars as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet name used for a month, e.g. "2025-02"
func SheetName(year int, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// CellText joins the short labels of a cell's states with "/"
func CellText(res *models.ResolvedDay) string {
	if res == nil || res.Empty() {
		return ""
	}
	labels := make([]string, len(res.States))
	for i, s := range res.States {
		labels[i] = s.State.Label()
	}
	return strings.Join(labels, "/")
}

// Month builds a workbook with one row per person and one column per day.
// Each filled cell takes the colors of its first state.
func Month(cal *models.MonthCalendar) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := SheetName(cal.Year, int(cal.Month))
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetCellValue(sheet, "A1", "Persona"); err != nil {
		f.Close()
		return nil, err
	}
	for i, d := range cal.Dates {
		cell, _ := excelize.CoordinatesToCellName(i+2, 1)
		if err := f.SetCellValue(sheet, cell, d.Day()); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set cell value: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(cal.Dates)+1, 1)
	_ = f.SetCellStyle(sheet, "A1", last, header)
	_ = f.SetColWidth(sheet, "A", "A", 32)

	styles := make(map[[2]string]int)
	styleFor := func(st models.State) (int, error) {
		key := [2]string{st.Color, st.BackgroundColor}
		if id, ok := styles[key]; ok {
			return id, nil
		}
		s := &excelize.Style{Alignment: &excelize.Alignment{Horizontal: "center"}}
		if st.BackgroundColor != "" {
			s.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{st.BackgroundColor}}
		}
		if st.Color != "" {
			s.Font = &excelize.Font{Color: st.Color}
		}
		id, err := f.NewStyle(s)
		if err != nil {
			return 0, err
		}
		styles[key] = id
		return id, nil
	}

	for r, p := range cal.People {
		row := r + 2
		nameCell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(sheet, nameCell, p.FullName()); err != nil {
			f.Close()
			return nil, err
		}
		for c, d := range cal.Dates {
			res := cal.Cell(p.ID, d.Day())
			if res == nil || res.Empty() {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+2, row)
			if err := f.SetCellValue(sheet, cell, CellText(res)); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value: %w", err)
			}
			style, err := styleFor(res.States[0].State)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to create style for %s: %w", res.States[0].State.Name, err)
			}
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				f.Close()
				return nil, err
			}
		}
	}
	return f, nil
}

// WriteMonth writes the month workbook to w
func WriteMonth(w io.Writer, cal *models.MonthCalendar) error {
	f, err := Month(cal)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
