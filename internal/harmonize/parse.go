package harmonize

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// requiredColumns are the headers every input table must carry. Extra
// columns are ignored; order does not matter.
var requiredColumns = []string{"device_id", "timestamp", "item_id", "qty", "unit_price", "store"}

// timestampLayouts are tried in order when parsing row timestamps.
// Layouts without a zone are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// isoOffset renders timestamps as ISO-8601 with an explicit numeric offset
// ("+00:00" for UTC rather than "Z"), matching the artifact schema.
const isoOffset = "2006-01-02T15:04:05-07:00"

type rawRow struct {
	deviceID  string
	ts        time.Time
	itemID    string
	qty       int
	unitPrice float64
	store     string
	revenue   float64
}

// parseRows decodes the raw CSV into typed rows. A header-only input
// returns zero rows and no error; the caller decides what empty means.
func parseRows(raw []byte) ([]rawRow, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", ErrMalformedInput)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []rawRow
	line := 1
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", line, err, ErrMalformedInput)
		}
		row, err := parseRow(fields, cols, line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// mapColumns resolves header names to field indexes. Every required column
// must be present or the table is malformed.
func mapColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q in header: %w", name, ErrMalformedInput)
		}
	}
	return cols, nil
}

func parseRow(fields []string, cols map[string]int, line int) (rawRow, error) {
	get := func(name string) (string, bool) {
		idx := cols[name]
		if idx >= len(fields) {
			return "", false
		}
		return strings.TrimSpace(fields[idx]), true
	}

	for _, name := range requiredColumns {
		if _, ok := get(name); !ok {
			return rawRow{}, fmt.Errorf("line %d: too few fields: %w", line, ErrMalformedInput)
		}
	}

	tsRaw, _ := get("timestamp")
	ts, err := parseTimestamp(tsRaw)
	if err != nil {
		return rawRow{}, fmt.Errorf("line %d: timestamp %q: %w", line, tsRaw, ErrTimestampParse)
	}

	qtyRaw, _ := get("qty")
	qty, err := strconv.Atoi(qtyRaw)
	if err != nil {
		return rawRow{}, fmt.Errorf("line %d: qty %q: %w", line, qtyRaw, ErrNumericConversion)
	}

	priceRaw, _ := get("unit_price")
	price, err := strconv.ParseFloat(priceRaw, 64)
	if err != nil {
		return rawRow{}, fmt.Errorf("line %d: unit_price %q: %w", line, priceRaw, ErrNumericConversion)
	}

	deviceID, _ := get("device_id")
	itemID, _ := get("item_id")
	store, _ := get("store")

	return rawRow{
		deviceID:  deviceID,
		ts:        ts,
		itemID:    itemID,
		qty:       qty,
		unitPrice: price,
		store:     store,
		revenue:   float64(qty) * price,
	}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no layout matched %q", value)
}
