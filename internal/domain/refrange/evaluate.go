package refrange

import (
	"math"
	"strconv"
	"strings"
)

// Evaluation classifies a recorded value against its reference interval.
type Evaluation string

const (
	InRange      Evaluation = "IN_RANGE"
	OutOfRange   Evaluation = "OUT_OF_RANGE"
	NonEvaluable Evaluation = "NON_EVALUABLE"
)

// Evaluate classifies raw against iv. Values that do not parse as a finite
// number, and any value without an interval, are NonEvaluable.
func Evaluate(raw string, iv *Interval) Evaluation {
	if iv == nil {
		return NonEvaluable
	}
	v, ok := ParseValue(raw)
	if !ok {
		return NonEvaluable
	}
	if iv.Contains(v) {
		return InRange
	}
	return OutOfRange
}

// ParseValue reads an operator-entered value as a plain decimal number.
// Commas, hex notation and non-finite values are rejected.
func ParseValue(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	digits := strings.TrimLeft(s, "+-")
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatRange renders iv as "min - max unit", or "-" when iv is nil.
func FormatRange(iv *Interval, unit string) string {
	if iv == nil {
		return "-"
	}
	s := formatNumber(iv.Min) + " - " + formatNumber(iv.Max)
	if u := strings.TrimSpace(unit); u != "" {
		s += " " + u
	}
	return s
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
