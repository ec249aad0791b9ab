package metrics

import (
	"errors"

	"LMPSentinel/internal/model"
)

// ResultLabel maps a run error onto a low-cardinality label.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, model.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, model.ErrFitDivergence):
		return "fit_divergence"
	case errors.Is(err, model.ErrConfiguration):
		return "configuration"
	default:
		return "error"
	}
}
