package calibration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"LMPSentinel/internal/model"
)

// LoadState reads the calibration state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (*model.CalibrationState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.CalibrationState{}, nil
		}
		return nil, err
	}
	var state model.CalibrationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveState writes the calibration state through a temp file so a crash never
// leaves a truncated file behind.
func SaveState(filePath string, state *model.CalibrationState) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".calibration-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}
