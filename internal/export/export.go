// Package export renders stored results as spreadsheet, CSV or JSON downloads.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/IshaanNene/MapGoat/internal/types"
)

// Format is an export file format.
type Format string

const (
	XLSX Format = "xlsx"
	CSV  Format = "csv"
	JSON Format = "json"
)

// SheetName is the worksheet holding exported results.
const SheetName = "Sheet1"

// ByName resolves a format name. An empty name selects XLSX.
func ByName(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return XLSX, nil
	case XLSX, CSV, JSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", name)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case JSON:
		return "application/json"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Filename returns the download name for a task's export.
func Filename(taskID string, f Format) string {
	return fmt.Sprintf("results_%s.%s", taskID, f.Extension())
}

// Write renders records in format f. Only the place columns are exported.
func Write(w io.Writer, f Format, records []types.Record) error {
	switch f {
	case XLSX:
		return writeXLSX(w, records)
	case CSV:
		return writeCSV(w, records)
	case JSON:
		return writeJSON(w, records)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

func writeXLSX(w io.Writer, records []types.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("xlsx stream: %w", err)
	}

	header := make([]any, 0, 6)
	for _, name := range types.FieldNames() {
		header = append(header, name)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		fields := r.Place.Fields()
		row := make([]any, len(fields))
		for j, v := range fields {
			row[j] = v
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx flush: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, records []types.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(types.FieldNames()); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.Place.Fields()); err != nil {
			return fmt.Errorf("csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, records []types.Record) error {
	places := make([]types.Place, len(records))
	for i, r := range records {
		places[i] = r.Place
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(places); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}
