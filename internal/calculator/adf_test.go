package calculator

import (
	"errors"
	"math/rand"
	"testing"

	"LMPSentinel/internal/model"
)

func TestADF_WhiteNoiseIsStationary(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vals := make([]float64, 2000)
	for i := range vals {
		vals[i] = rng.NormFloat64()
	}
	res, err := ADF(vals, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Stationary {
		t.Errorf("white noise should reject the unit root, statistic %.2f", res.Statistic)
	}
}

func TestADF_RandomWalkIsNot(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	vals := make([]float64, 2000)
	for i := 1; i < len(vals); i++ {
		vals[i] = vals[i-1] + rng.NormFloat64()
	}
	res, err := ADF(vals, 2)
	if err != nil {
		t.Fatal(err)
	}
	if res.Statistic < -4.5 {
		t.Errorf("random walk statistic %.2f unexpectedly strong", res.Statistic)
	}
}

func TestADF_TooShort(t *testing.T) {
	if _, err := ADF([]float64{1, 2, 3}, 2); !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestSchwertLags(t *testing.T) {
	if got := SchwertLags(100); got != 12 {
		t.Errorf("SchwertLags(100) = %d, expected 12", got)
	}
}
