package calculator

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"LMPSentinel/internal/model"
)

// DefaultWindows are the smoothing scales compared by the pipeline (hours).
var DefaultWindows = []int{3, 12, 24, 72, 168}

// CenteredMovingAverage smooths values with a window centered on each point.
// Even windows use the 2xw average (outer terms half weighted) so the result
// stays aligned with the input. The first and last window/2 positions are NaN.
func CenteredMovingAverage(values []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", model.ErrConfiguration, window)
	}
	n := len(values)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	half := window / 2

	if window%2 == 1 {
		for i := half; i < n-half; i++ {
			sum := 0.0
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
			out[i] = sum / float64(window)
		}
		return out, nil
	}

	for i := half; i < n-half; i++ {
		sum := 0.5*values[i-half] + 0.5*values[i+half]
		for j := i - half + 1; j < i+half; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(window)
	}
	return out, nil
}

// Smooth applies CenteredMovingAverage to an observed series.
func Smooth(points []model.ObservedPoint, window int) (model.SmoothedSeries, error) {
	vals, err := CenteredMovingAverage(model.Values(points), window)
	if err != nil {
		return model.SmoothedSeries{}, err
	}
	return model.SmoothedSeries{Window: window, Values: vals}, nil
}

// SmoothAll computes every window size concurrently. Each window is
// independent; the first error (by window size) is returned.
func SmoothAll(points []model.ObservedPoint, windows []int) (map[int]model.SmoothedSeries, error) {
	values := model.Values(points)

	type result struct {
		series model.SmoothedSeries
		err    error
	}
	results := make([]result, len(windows))

	var wg sync.WaitGroup
	for i, w := range windows {
		wg.Add(1)
		go func(i, w int) {
			defer wg.Done()
			vals, err := CenteredMovingAverage(values, w)
			results[i] = result{series: model.SmoothedSeries{Window: w, Values: vals}, err: err}
		}(i, w)
	}
	wg.Wait()

	order := make([]int, len(windows))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return windows[order[a]] < windows[order[b]] })

	out := make(map[int]model.SmoothedSeries, len(windows))
	for _, i := range order {
		if results[i].err != nil {
			return nil, results[i].err
		}
		out[windows[i]] = results[i].series
	}
	return out, nil
}
