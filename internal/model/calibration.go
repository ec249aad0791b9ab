package model

import "time"

// CalibrationState persists a threshold derived once from a reference period.
type CalibrationState struct {
	Threshold    Threshold `json:"threshold"`
	WindowStart  string    `json:"window_start,omitempty"`
	WindowEnd    string    `json:"window_end,omitempty"`
	Source       string    `json:"source"`
	CalibratedAt time.Time `json:"calibrated_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Calibrated reports whether the state holds a usable threshold.
func (s *CalibrationState) Calibrated() bool {
	return s != nil && s.Threshold.Samples > 0
}
