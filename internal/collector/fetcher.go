package collector

import (
	"context"

	"LMPSentinel/internal/model"
)

// Source defines the interface for fetching the raw daily price table.
type Source interface {
	Fetch(ctx context.Context) ([]model.RawRow, error)
	Name() string
}
