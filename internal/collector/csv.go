package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"LMPSentinel/internal/model"
)

// ParseCSV reads a wide price table: a publish date column followed by the
// hour columns. Column counts are checked later by the normalizer so that
// every row problem is reported with its line number in one place.
func ParseCSV(r io.Reader, header bool) ([]model.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []model.RawRow
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &model.RowError{Line: perr.StartLine, Reason: perr.Err.Error()}
			}
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if first {
			first = false
			if header {
				continue
			}
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		rows = append(rows, model.RawRow{
			Line:        line,
			PublishDate: strings.TrimSpace(rec[0]),
			Hours:       rec[1:],
		})
	}
	return rows, nil
}

// CSVSource reads the table from a local file.
type CSVSource struct {
	Path   string
	Header bool
}

func (s *CSVSource) Name() string { return "file:" + s.Path }

func (s *CSVSource) Fetch(ctx context.Context) ([]model.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return ParseCSV(f, s.Header)
}
