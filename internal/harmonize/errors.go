package harmonize

import "errors"

// Sentinel errors for the harmonization engine. Any of these aborts the
// whole run: either every device's artifact pair is produced or none is.
var (
	ErrMalformedInput    = errors.New("malformed input table")
	ErrEmptyInput        = errors.New("input contains no rows")
	ErrTimestampParse    = errors.New("unparseable timestamp")
	ErrNumericConversion = errors.New("non-numeric qty or unit_price")
)
