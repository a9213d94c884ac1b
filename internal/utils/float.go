package utils

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToFloat64 converts a value scanned from the database or decoded from JSON to float64.
// Returns the converted value and true if successful, or 0 and false otherwise.
//
// Besides Go numeric types it accepts the textual forms drivers use for
// DECIMAL results (string, []byte) and json.Number. NaN and ±Inf are rejected.
func ToFloat64(v interface{}) (float64, bool) {
	var f float64

	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = val
	case float32:
		f = float64(val)
	case *float64:
		if val == nil {
			return 0, false
		}
		f = *val
	case int:
		f = float64(val)
	case int8:
		f = float64(val)
	case int16:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint8:
		f = float64(val)
	case uint16:
		f = float64(val)
	case uint32:
		f = float64(val)
	case uint64:
		f = float64(val)
	case bool:
		if val {
			f = 1
		}
	case json.Number:
		return parseFloat(string(val))
	case string:
		return parseFloat(val)
	case []byte:
		return parseFloat(string(val))
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// MustToFloat64 converts a value to float64, returning 0 if conversion fails.
func MustToFloat64(v interface{}) float64 {
	f, _ := ToFloat64(v)
	return f
}
