package model

import (
	"math"
	"time"
)

// RawRow is one calendar day of the pivoted price export.
type RawRow struct {
	Line        int      // source line, for error reporting
	PublishDate string   // MM-DD-YYYY
	Hours       []string // hour 1..24, optionally followed by the extra DST column
}

// ObservedPoint is a single hourly price observation.
type ObservedPoint struct {
	Time  time.Time
	Value float64
}

// SmoothedSeries holds a centered moving average parallel to the observed series.
// Undefined positions are NaN.
type SmoothedSeries struct {
	Window int
	Values []float64
}

// Defined reports whether position i carries a value.
func (s SmoothedSeries) Defined(i int) bool {
	return i >= 0 && i < len(s.Values) && !math.IsNaN(s.Values[i])
}

// ValidRange returns the half-open index range of the first contiguous run of
// defined values. start == end when nothing is defined.
func (s SmoothedSeries) ValidRange() (start, end int) {
	return ValidRange(s.Values)
}

// ValidRange returns the first contiguous non-NaN run in values.
func ValidRange(values []float64) (start, end int) {
	start = 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	end = start
	for end < len(values) && !math.IsNaN(values[end]) {
		end++
	}
	return start, end
}

// Values extracts the price column of a point sequence.
func Values(points []ObservedPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
