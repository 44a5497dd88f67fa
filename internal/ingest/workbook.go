package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ecobalance/impact-balance/internal/models"
)

// Row is one spreadsheet row keyed by normalized header.
type Row map[string]string

// Get returns the first non-empty cell among the given header aliases.
func (r Row) Get(aliases ...string) string {
	for _, a := range aliases {
		if v, ok := r[a]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// ReadWorkbook parses the first sheet of an xlsx workbook into rows keyed
// by normalized header. Empty rows are dropped.
func ReadWorkbook(reader io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rawRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rawRows) == 0 {
		return nil, fmt.Errorf("workbook is empty")
	}

	headers := make([]string, len(rawRows[0]))
	for i, h := range rawRows[0] {
		headers[i] = normalizeHeader(h)
	}

	rows := make([]Row, 0, len(rawRows)-1)
	for _, rawRow := range rawRows[1:] {
		row := make(Row, len(headers))
		empty := true
		for i, header := range headers {
			if header == "" {
				continue
			}
			var value string
			if i < len(rawRow) {
				value = rawRow[i]
			}
			if strings.TrimSpace(value) != "" {
				empty = false
			}
			row[header] = value
		}
		if !empty {
			rows = append(rows, row)
		}
	}

	return rows, nil
}

// ReadCSV parses CSV input into the same row shape as ReadWorkbook.
func ReadCSV(reader io.Reader) ([]Row, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1 // Allow variable number of fields

	headerRow, err := csvReader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("CSV file is empty")
		}
		return nil, fmt.Errorf("failed to read CSV headers: %v", err)
	}

	headers := make([]string, len(headerRow))
	for i, h := range headerRow {
		headers[i] = normalizeHeader(h)
	}

	var rows []Row
	for {
		record, err := csvReader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to read CSV row: %v", err)
		}

		row := make(Row, len(headers))
		empty := true
		for i, header := range headers {
			if header == "" {
				continue
			}
			var value string
			if i < len(record) {
				value = record[i]
			}
			if strings.TrimSpace(value) != "" {
				empty = false
			}
			row[header] = value
		}
		if !empty {
			rows = append(rows, row)
		}
	}

	return rows, nil
}

// exportHeaders is the fixed column order of event exports.
var exportHeaders = []string{
	"id", "date", "event", "client", "total_participants",
	"total_ucs", "total_cost", "archived",
}

// WriteEventsWorkbook renders event records to an xlsx workbook with a
// fixed header order.
func WriteEventsWorkbook(w io.Writer, records []models.EventRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Events"
	f.SetSheetName("Sheet1", sheet)

	for i, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for rowIdx, rec := range records {
		values := []any{
			rec.ID.String(),
			time.UnixMilli(rec.Timestamp).Format("2006-01-02 15:04:05"),
			rec.FormData.EventName,
			rec.FormData.ClientName,
			rec.Results.TotalParticipants,
			rec.Results.TotalUCS,
			strconv.FormatFloat(rec.Results.TotalCost, 'f', 2, 64),
			rec.Archived,
		}
		for colIdx, value := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("write row %d: %w", rowIdx+1, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
