// Package validate enforces the harmonized artifact schema on candidates
// arriving from the processed store. Validation never errors: every input,
// however broken, yields a Verdict suitable for reporting.
package validate

import "encoding/json"

// Reason explains why a candidate was rejected.
type Reason string

const (
	ReasonNotAnObject        Reason = "payload is not a JSON object"
	ReasonMissingCoreKeys    Reason = "missing required top-level keys"
	ReasonMissingSummaryKeys Reason = "summary is missing required keys"
	ReasonZeroActivity       Reason = "record shows zero revenue or zero records"
)

// coreKeys must all be present at the top level of a harmonized record.
var coreKeys = []string{"device_id", "generation_timestamp", "time_window", "summary", "records"}

// Verdict is the outcome of validating one candidate. DeviceID and Revenue
// are best-effort facts extracted even from rejected payloads so reports
// can still identify the source.
type Verdict struct {
	Valid    bool    `json:"-"`
	DeviceID string  `json:"device_id"`
	Revenue  float64 `json:"revenue"`
	Reason   Reason  `json:"reason,omitempty"`
}

// Status renders the verdict for logs and notifications.
func (v Verdict) Status() string {
	if v.Valid {
		return "valid"
	}
	return "invalid"
}

// ValidateJSON decodes raw bytes and validates the result. Undecodable
// input is treated as a non-object payload.
func ValidateJSON(raw []byte) Verdict {
	var candidate any
	if err := json.Unmarshal(raw, &candidate); err != nil {
		return Verdict{DeviceID: "Unknown", Reason: ReasonNotAnObject}
	}
	return Validate(candidate)
}

// Validate checks a decoded candidate against the harmonized record schema.
// A structurally sound record with zero revenue or zero record count is
// rejected: silent-device artifacts must not pass as healthy.
func Validate(candidate any) Verdict {
	obj, ok := candidate.(map[string]any)
	if !ok {
		return Verdict{DeviceID: "Unknown", Reason: ReasonNotAnObject}
	}

	// Pull out identifying facts first so rejection verdicts still carry
	// whatever the payload had.
	verdict := Verdict{DeviceID: "Unknown"}
	if id, ok := obj["device_id"].(string); ok && id != "" {
		verdict.DeviceID = id
	}
	summary, _ := obj["summary"].(map[string]any)
	if summary != nil {
		verdict.Revenue = numeric(summary["total_revenue"])
	}

	for _, key := range coreKeys {
		if _, ok := obj[key]; !ok {
			verdict.Reason = ReasonMissingCoreKeys
			return verdict
		}
	}

	if summary == nil {
		verdict.Reason = ReasonMissingSummaryKeys
		return verdict
	}
	if _, ok := summary["total_revenue"]; !ok {
		verdict.Reason = ReasonMissingSummaryKeys
		return verdict
	}
	if _, ok := summary["record_count"]; !ok {
		verdict.Reason = ReasonMissingSummaryKeys
		return verdict
	}

	if numeric(summary["record_count"]) <= 0 || verdict.Revenue <= 0 {
		verdict.Reason = ReasonZeroActivity
		return verdict
	}

	verdict.Valid = true
	return verdict
}

func numeric(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}
