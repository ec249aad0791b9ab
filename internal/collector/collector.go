package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"LMPSentinel/internal/model"
)

// MockSource returns fixed rows for development and testing.
type MockSource struct {
	Rows []model.RawRow
	Err  error
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Fetch(_ context.Context) ([]model.RawRow, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Rows, nil
}

// NewSource picks the HTTP source when url is set, otherwise the local file.
func NewSource(path, rawURL, apiKey, proxyURL string, header bool, timeout time.Duration) (Source, error) {
	switch {
	case rawURL != "":
		return NewHTTPSource(rawURL, apiKey, proxyURL, header, timeout), nil
	case path != "":
		return &CSVSource{Path: path, Header: header}, nil
	default:
		return nil, fmt.Errorf("%w: no input path or url", model.ErrConfiguration)
	}
}

// Collector fetches the raw table from its source.
type Collector struct {
	Source Source
	log    zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(src Source, log zerolog.Logger) *Collector {
	return &Collector{Source: src, log: log}
}

// Collect fetches the raw rows.
func (c *Collector) Collect(ctx context.Context) ([]model.RawRow, error) {
	started := time.Now()
	rows, err := c.Source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect from %s: %w", c.Source.Name(), err)
	}
	c.log.Debug().
		Str("source", c.Source.Name()).
		Int("rows", len(rows)).
		Dur("elapsed", time.Since(started)).
		Msg("collected input table")
	return rows, nil
}
