package recorder

import "LMPSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *RunRecord) (int64, error)               { return 0, nil }
func (n *NoopRecorder) RecordOutliers(_ int64, _ []model.OutlierFlag) error { return nil }
func (n *NoopRecorder) LatestRuns(_ int) ([]RunRecord, error)               { return nil, nil }
func (n *NoopRecorder) Close() error                                        { return nil }
