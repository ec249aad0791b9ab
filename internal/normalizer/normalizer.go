package normalizer

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"LMPSentinel/internal/model"
)

const (
	// DefaultDateLayout matches the MM-DD-YYYY publish date of the export.
	DefaultDateLayout = "01-02-2006"

	// PrimaryHours is the number of meaningful hour columns per day.
	PrimaryHours = 24

	// GapHourLabel is the hour-ending label skipped on spring-forward dates (clock 02:00).
	GapHourLabel = 3
)

// Options controls normalization.
type Options struct {
	DateLayout string
	// SpringForward maps a publish date to the literal value used for the
	// hour-3 cell on that date.
	SpringForward map[string]float64
}

type day struct {
	line   int
	raw    string
	date   time.Time
	values [PrimaryHours]float64
}

// Normalize converts one-row-per-day records into a strictly increasing
// hourly sequence. Hour label h becomes clock hour h-1. The extra fall-back
// column is dropped and spring-forward gaps are filled from opts.SpringForward.
// Any bad row fails the whole run.
func Normalize(rows []model.RawRow, opts Options) ([]model.ObservedPoint, error) {
	layout := opts.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}
	gaps, err := parseGapTable(opts.SpringForward, layout)
	if err != nil {
		return nil, err
	}

	days := make([]day, 0, len(rows))
	for _, r := range rows {
		d, err := parseRow(r, layout, gaps)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}

	sort.SliceStable(days, func(i, j int) bool { return days[i].date.Before(days[j].date) })
	for i := 1; i < len(days); i++ {
		prev, cur := days[i-1], days[i]
		if cur.date.Equal(prev.date) {
			return nil, &model.RowError{Line: cur.line, Date: cur.raw, Reason: fmt.Sprintf("duplicate date (also on line %d)", prev.line)}
		}
		if !cur.date.Equal(prev.date.AddDate(0, 0, 1)) {
			return nil, &model.RowError{Line: cur.line, Date: cur.raw, Reason: fmt.Sprintf("missing day(s) after %s", prev.raw)}
		}
	}

	out := make([]model.ObservedPoint, 0, len(days)*PrimaryHours)
	for _, d := range days {
		for h := 0; h < PrimaryHours; h++ {
			out = append(out, model.ObservedPoint{
				Time:  d.date.Add(time.Duration(h) * time.Hour),
				Value: d.values[h],
			})
		}
	}
	return out, nil
}

// ParseDate parses a publish date into a naive (UTC) midnight.
func ParseDate(s, layout string) (time.Time, error) {
	if layout == "" {
		layout = DefaultDateLayout
	}
	t, err := time.Parse(layout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func parseGapTable(table map[string]float64, layout string) (map[time.Time]float64, error) {
	gaps := make(map[time.Time]float64, len(table))
	for k, v := range table {
		t, err := ParseDate(k, layout)
		if err != nil {
			return nil, fmt.Errorf("%w: spring-forward date %q: %v", model.ErrConfiguration, k, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: spring-forward value for %q is not finite", model.ErrConfiguration, k)
		}
		gaps[t] = v
	}
	return gaps, nil
}

func parseRow(r model.RawRow, layout string, gaps map[time.Time]float64) (day, error) {
	d := day{line: r.Line, raw: strings.TrimSpace(r.PublishDate)}

	date, err := ParseDate(r.PublishDate, layout)
	if err != nil {
		return d, &model.RowError{Line: r.Line, Date: d.raw, Reason: "unparseable date"}
	}
	d.date = date

	if n := len(r.Hours); n != PrimaryHours && n != PrimaryHours+1 {
		return d, &model.RowError{Line: r.Line, Date: d.raw, Reason: fmt.Sprintf("expected %d or %d hour columns, got %d", PrimaryHours, PrimaryHours+1, n)}
	}

	replacement, isGapDate := gaps[date]
	for h := 1; h <= PrimaryHours; h++ {
		if isGapDate && h == GapHourLabel {
			d.values[h-1] = replacement
			continue
		}
		v, ok := parseCell(r.Hours[h-1])
		if !ok {
			return d, &model.RowError{Line: r.Line, Date: d.raw, Column: h, Reason: fmt.Sprintf("non-numeric value %q", r.Hours[h-1])}
		}
		d.values[h-1] = v
	}
	// The 25th column (repeated fall-back hour) is ignored.
	return d, nil
}

func parseCell(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
