package calibration

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"LMPSentinel/internal/model"
)

// Manager owns the persisted calibration threshold with concurrency safety.
type Manager struct {
	mu       sync.Mutex
	state    *model.CalibrationState
	filePath string
	log      zerolog.Logger
}

// NewManager creates a Manager, loading state from disk when present.
func NewManager(filePath string, log zerolog.Logger) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	return &Manager{state: state, filePath: filePath, log: log}, nil
}

// Get returns a copy of the current state.
func (m *Manager) Get() model.CalibrationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.state
}

// Calibrated reports whether a threshold has been stored.
func (m *Manager) Calibrated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Calibrated()
}

// Set stores a freshly derived threshold and persists it.
func (m *Manager) Set(th model.Threshold, source, windowStart, windowEnd string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	th.Mode = model.ThresholdCalibrated
	m.state.Threshold = th
	m.state.Source = source
	m.state.WindowStart = windowStart
	m.state.WindowEnd = windowEnd
	m.state.CalibratedAt = time.Now()

	if err := m.save(); err != nil {
		return err
	}
	m.log.Info().
		Float64("upper", th.Upper).
		Float64("lower", th.Lower).
		Int("samples", th.Samples).
		Str("source", source).
		Msg("calibration threshold stored")
	return nil
}

// Reset clears the stored threshold so the next calibrated run derives a new one.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = &model.CalibrationState{}
	if err := m.save(); err != nil {
		m.log.Error().Err(err).Msg("failed to save calibration state after reset")
		return err
	}
	return nil
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}
