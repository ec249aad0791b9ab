package model

import "time"

// Coefficients are the estimated ARIMA parameters.
type Coefficients struct {
	Constant float64   `json:"constant"`
	AR       []float64 `json:"ar"`
	MA       []float64 `json:"ma"`
	Sigma2   float64   `json:"sigma2"`
}

// FitDiagnostics summarises a model fit.
type FitDiagnostics struct {
	Order        Order        `json:"order"`
	Coefficients Coefficients `json:"coefficients"`
	CSS          float64      `json:"css"`
	Iterations   int          `json:"iterations"`
	Evaluations  int          `json:"evaluations"`
	Observations int          `json:"observations"`
}

// Stationarity is the outcome of the unit-root check on the differenced series.
type Stationarity struct {
	Statistic  float64 `json:"statistic"`
	Critical5  float64 `json:"critical_5pct"`
	Lags       int     `json:"lags"`
	Stationary bool    `json:"stationary"`
}

// Report carries every artifact of one pipeline run.
type Report struct {
	Source         string                 `json:"source"`
	GeneratedAt    time.Time              `json:"generated_at"`
	Observed       []ObservedPoint        `json:"-"`
	Smoothed       map[int]SmoothedSeries `json:"-"`
	AnalysisWindow int                    `json:"analysis_window"`
	Fit            FitDiagnostics         `json:"fit"`
	Stationarity   *Stationarity          `json:"stationarity,omitempty"`
	Fitted         FittedSeries           `json:"-"`
	Residuals      ResidualSeries         `json:"-"`
	Threshold      Threshold              `json:"threshold"`
	Flags          []OutlierFlag          `json:"flags"`
	Points         int                    `json:"points"`
	Start          time.Time              `json:"start"`
	End            time.Time              `json:"end"`
}
