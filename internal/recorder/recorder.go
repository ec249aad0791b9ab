package recorder

import (
	"time"

	"LMPSentinel/internal/model"
)

// RunRecord is one row of run history.
type RunRecord struct {
	ID         int64
	Timestamp  time.Time
	Source     string
	Status     string // "ok" or an error class such as "malformed_input"
	Error      string
	Points     int
	Start      time.Time
	End        time.Time
	Order      string
	Window     int
	CSS        float64
	Iterations int
	Sigma2     float64
	ADFStat    float64
	Stationary bool
	Mode       string
	Upper      float64
	Lower      float64
	Flags      int
}

// RunFromReport summarises a successful report.
func RunFromReport(r *model.Report) *RunRecord {
	rec := &RunRecord{
		Timestamp:  r.GeneratedAt,
		Source:     r.Source,
		Status:     "ok",
		Points:     r.Points,
		Start:      r.Start,
		End:        r.End,
		Order:      r.Fit.Order.String(),
		Window:     r.AnalysisWindow,
		CSS:        r.Fit.CSS,
		Iterations: r.Fit.Iterations,
		Sigma2:     r.Fit.Coefficients.Sigma2,
		Mode:       string(r.Threshold.Mode),
		Upper:      r.Threshold.Upper,
		Lower:      r.Threshold.Lower,
		Flags:      len(r.Flags),
	}
	if r.Stationarity != nil {
		rec.ADFStat = r.Stationarity.Statistic
		rec.Stationary = r.Stationarity.Stationary
	}
	return rec
}

// Recorder persists run history for later analysis.
type Recorder interface {
	RecordRun(run *RunRecord) (int64, error)
	RecordOutliers(runID int64, flags []model.OutlierFlag) error
	LatestRuns(limit int) ([]RunRecord, error)
	Close() error
}
