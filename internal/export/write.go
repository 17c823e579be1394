package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// WriteCSV writes a single table: header then rows.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := writeRows(cw, t); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteSectionedCSV writes several tables into one file, each under an
// "=== NAME ===" banner, preceded by a commented title block.
func WriteSectionedCSV(w io.Writer, title string, now time.Time, tables []Table) error {
	if _, err := fmt.Fprintf(w, "# %s\n# Generated: %s\n\n", title, now.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	for i, t := range tables {
		banner := t.Banner
		if banner == "" {
			banner = strings.ToUpper(t.Name)
		}
		if _, err := fmt.Fprintf(w, "=== %s ===\n", banner); err != nil {
			return err
		}
		cw := csv.NewWriter(w)
		if err := writeRows(cw, t); err != nil {
			return err
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		if i < len(tables)-1 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeRows(cw *csv.Writer, t Table) error {
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	rec := make([]string, len(t.Header))
	for _, row := range t.Rows {
		rec = rec[:0]
		for _, v := range row {
			rec = append(rec, cellString(v))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// WriteXLSX writes one sheet per table with a bold, frozen header row.
func WriteXLSX(w io.Writer, tables []Table) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, t := range tables {
		name := sheetName(t.Name, i)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("sheet %s: %w", name, err)
		}

		hdr := make([]any, len(t.Header))
		for j, h := range t.Header {
			hdr[j] = h
		}
		if err := f.SetSheetRow(name, "A1", &hdr); err != nil {
			return err
		}
		last, _ := excelize.CoordinatesToCellName(max(len(t.Header), 1), 1)
		if err := f.SetCellStyle(name, "A1", last, header); err != nil {
			return err
		}
		for r, row := range t.Rows {
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			vals := append([]any(nil), row...)
			if err := f.SetSheetRow(name, cell, &vals); err != nil {
				return fmt.Errorf("sheet %s row %d: %w", name, r+2, err)
			}
		}
		if err := f.SetPanes(name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)
	_, err = f.WriteTo(w)
	return err
}

// sheetName trims to excel's 31 character limit and strips forbidden runes.
func sheetName(name string, i int) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return -1
		}
		return r
	}, name)
	if clean == "" {
		clean = fmt.Sprintf("Sheet%d", i+1)
	}
	if len(clean) > 31 {
		clean = clean[:31]
	}
	return clean
}
