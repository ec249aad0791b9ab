package model

import (
	"fmt"
	"time"
)

// Direction indicates on which side of the model an outlier sits.
type Direction string

const (
	DirectionHigh Direction = "HIGH"
	DirectionLow  Direction = "LOW"
)

// Order is the (p, d, q) order of an ARIMA model.
type Order struct {
	P int `yaml:"p" json:"p"`
	D int `yaml:"d" json:"d"`
	Q int `yaml:"q" json:"q"`
}

func (o Order) String() string { return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q) }

// MinObservations is the shortest usable series for the order.
func (o Order) MinObservations() int { return o.P + o.D + o.Q + 1 }

// FittedSeries holds one-step-ahead in-sample predictions aligned to the full
// observed index. Positions outside the model's valid range are NaN.
type FittedSeries struct {
	Window int
	Order  Order
	Values []float64
}

// ResidualSeries holds value - fitted, aligned with the observed series.
type ResidualSeries struct {
	Values []float64
}

// ThresholdMode selects how the outlier cutoff is obtained.
type ThresholdMode string

const (
	ThresholdDerived    ThresholdMode = "derived"
	ThresholdFixed      ThresholdMode = "fixed"
	ThresholdCalibrated ThresholdMode = "calibrated"
)

// Threshold bounds residuals; values above Upper (or below Lower when
// symmetric flagging is enabled) are outliers.
type Threshold struct {
	Mode       ThresholdMode `json:"mode"`
	Upper      float64       `json:"upper"`
	Lower      float64       `json:"lower"`
	Q1         float64       `json:"q1"`
	Q3         float64       `json:"q3"`
	IQR        float64       `json:"iqr"`
	Multiplier float64       `json:"multiplier"`
	Samples    int           `json:"samples"`
}

// OutlierFlag marks one anomalous observation.
type OutlierFlag struct {
	Time      time.Time `json:"time"`
	Value     float64   `json:"value"`
	Fitted    float64   `json:"fitted"`
	Residual  float64   `json:"residual"`
	Direction Direction `json:"direction"`
}
