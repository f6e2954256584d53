package common

import (
	"strconv"
	"strings"
)

// ParseInt64OrZero coerces a raw form field to int64, treating blank or
// non-numeric input as zero. Fractional input is truncated toward zero.
func ParseInt64OrZero(value string) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return int64(f)
	}
	return 0
}

// ParseFloatOrZero coerces a raw form field to float64, treating blank or
// non-numeric input as zero.
func ParseFloatOrZero(value string) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0
	}
	return f
}
