package harmonize

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Config controls artifact naming. Zero values fall back to the standard
// prefixes.
type Config struct {
	LatestPrefix  string `yaml:"latest_prefix"`
	HistoryPrefix string `yaml:"history_prefix"`
}

// Harmonizer turns raw CSV batches into per-device artifact pairs.
type Harmonizer struct {
	latestPrefix  string
	historyPrefix string
}

func New(cfg Config) *Harmonizer {
	if cfg.LatestPrefix == "" {
		cfg.LatestPrefix = "latest"
	}
	if cfg.HistoryPrefix == "" {
		cfg.HistoryPrefix = "by-timestamp"
	}
	return &Harmonizer{
		latestPrefix:  cfg.LatestPrefix,
		historyPrefix: cfg.HistoryPrefix,
	}
}

// Harmonize parses the raw CSV and produces two artifacts per device: the
// latest snapshot and the history entry for this run. runTS is the run
// timestamp in Unix milliseconds; reruns with the same runTS produce
// byte-identical artifacts. Any bad row fails the whole batch.
func (h *Harmonizer) Harmonize(raw []byte, runTS int64) ([]Artifact, error) {
	rows, err := parseRows(raw)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}

	// The time window is a batch-level property: the min/max across all
	// rows, shared by every device's record.
	minTS, maxTS := rows[0].ts, rows[0].ts
	for _, row := range rows[1:] {
		if row.ts.Before(minTS) {
			minTS = row.ts
		}
		if row.ts.After(maxTS) {
			maxTS = row.ts
		}
	}
	window := minTS.Format(isoOffset) + "/" + maxTS.Format(isoOffset)

	runTime := time.UnixMilli(runTS).UTC()
	generationTS := runTime.Format(isoOffset)
	historyFolder := runTime.Format("20060102150405")

	groups := make(map[string][]rawRow)
	var order []string
	for _, row := range rows {
		if _, seen := groups[row.deviceID]; !seen {
			order = append(order, row.deviceID)
		}
		groups[row.deviceID] = append(groups[row.deviceID], row)
	}

	artifacts := make([]Artifact, 0, 2*len(order))
	for _, deviceID := range order {
		deviceRows := groups[deviceID]

		var totalRevenue float64
		var totalItems int
		records := make([]RowRecord, 0, len(deviceRows))
		for _, row := range deviceRows {
			totalRevenue += row.revenue
			totalItems += row.qty
			records = append(records, RowRecord{
				Timestamp: row.ts.Format(isoOffset),
				ItemID:    row.itemID,
				Qty:       row.qty,
				UnitPrice: row.unitPrice,
				Revenue:   row.revenue,
				Store:     row.store,
			})
		}

		rec := Record{
			DeviceID:            deviceID,
			GenerationTimestamp: generationTS,
			TimeWindow:          window,
			Summary: Summary{
				TotalRevenue:   round2(totalRevenue),
				TotalItemsSold: totalItems,
				RecordCount:    len(deviceRows),
			},
			Records: records,
		}

		content, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode device %s: %w", deviceID, err)
		}

		artifacts = append(artifacts,
			Artifact{Name: fmt.Sprintf("%s/device-%s.json", h.latestPrefix, deviceID), Content: content},
			Artifact{Name: fmt.Sprintf("%s/%s/device-%s.json", h.historyPrefix, historyFolder, deviceID), Content: content},
		)
	}
	return artifacts, nil
}

// round2 rounds to two decimal places, halves away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
