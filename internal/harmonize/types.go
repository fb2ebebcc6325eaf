package harmonize

// RowRecord is one transaction line as it appears in a harmonized record.
// Revenue is qty * unit_price, carried unrounded; rounding happens only at
// the summary level.
type RowRecord struct {
	Timestamp string  `json:"timestamp"`
	ItemID    string  `json:"item_id"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
	Revenue   float64 `json:"revenue"`
	Store     string  `json:"store"`
}

// Summary holds the per-device aggregates for one run.
type Summary struct {
	TotalRevenue   float64 `json:"total_revenue"`
	TotalItemsSold int     `json:"total_items_sold"`
	RecordCount    int     `json:"record_count"`
}

// Record is the harmonized output for one device in one run. This is the
// schema contract the validator enforces downstream.
type Record struct {
	DeviceID            string      `json:"device_id"`
	GenerationTimestamp string      `json:"generation_timestamp"`
	TimeWindow          string      `json:"time_window"`
	Summary             Summary     `json:"summary"`
	Records             []RowRecord `json:"records"`
}

// Artifact is a named output blob. The engine emits two per device: a
// stable "latest" name overwritten each run, and a per-run history name
// that never collides across distinct run timestamps. Both carry
// byte-identical content.
type Artifact struct {
	Name    string
	Content []byte
}
