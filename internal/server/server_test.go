package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"LMPSentinel/internal/metrics"
	"LMPSentinel/internal/model"
)

func TestServer_Routes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := New(":0", reg, zerolog.Nop())
	h := s.Handler()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	if rec := get("/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz status %d", rec.Code)
	}
	if rec := get("/report"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 before any report, got %d", rec.Code)
	}

	at := time.Date(2015, 1, 21, 0, 0, 0, 0, time.UTC)
	report := &model.Report{
		Source:    "lmp.csv",
		Threshold: model.Threshold{Mode: model.ThresholdDerived, Upper: 14.5},
		Flags:     []model.OutlierFlag{{Time: at, Value: 100, Fitted: 18, Residual: 82, Direction: model.DirectionHigh}},
		Points:    960,
	}
	m.ObserveRun(report, time.Second, nil)
	s.Publish(report)

	rec := get("/report")
	if rec.Code != http.StatusOK {
		t.Fatalf("report status %d", rec.Code)
	}
	var got struct {
		Source    string              `json:"source"`
		Points    int                 `json:"points"`
		Threshold model.Threshold     `json:"threshold"`
		Flags     []model.OutlierFlag `json:"flags"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if got.Points != 960 || got.Threshold.Upper != 14.5 || len(got.Flags) != 1 || !got.Flags[0].Time.Equal(at) {
		t.Errorf("unexpected report %+v", got)
	}

	if rec := get("/report/flags"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"residual":82`) {
		t.Errorf("unexpected flags response %d %s", rec.Code, rec.Body.String())
	}
	if rec := get("/metrics"); !strings.Contains(rec.Body.String(), "lmpsentinel_outliers_total") {
		t.Errorf("metrics missing detector collectors:\n%s", rec.Body.String())
	}

	post := httptest.NewRecorder()
	h.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/report", nil))
	if post.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST, got %d", post.Code)
	}
}
