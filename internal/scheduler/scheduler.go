package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"LMPSentinel/internal/calibration"
	"LMPSentinel/internal/collector"
	"LMPSentinel/internal/metrics"
	"LMPSentinel/internal/model"
	"LMPSentinel/internal/notifier"
	"LMPSentinel/internal/pipeline"
	"LMPSentinel/internal/recorder"
)

// Sender delivers a formatted message; *notifier.TelegramNotifier satisfies it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs detection on cron ticks and on demand.
type Scheduler struct {
	Cron        *cron.Cron
	Collector   *collector.Collector
	Pipeline    *pipeline.Pipeline
	Calibration *calibration.Manager
	Notifier    Sender
	Recorder    recorder.Recorder
	Ctx         context.Context
	// NotifyEmpty also pushes reports without outliers.
	NotifyEmpty bool
	// OnReport is called with every successful report.
	OnReport func(*model.Report)

	log    zerolog.Logger
	runMu  sync.Mutex
	mu     sync.RWMutex
	latest *model.Report
}

// NewScheduler creates a new Scheduler. Overlapping cron ticks are skipped.
func NewScheduler(ctx context.Context, col *collector.Collector, p *pipeline.Pipeline, tn Sender, rec recorder.Recorder, log zerolog.Logger) *Scheduler {
	cl := cronLogger{log: log}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Collector: col,
		Pipeline:  p,
		Notifier:  tn,
		Recorder:  rec,
		Ctx:       ctx,
		log:       log,
	}
}

// Register schedules the detection task.
func (s *Scheduler) Register(expr string) error {
	if _, err := s.Cron.AddFunc(expr, s.detectTask); err != nil {
		return fmt.Errorf("%w: register detection task %q: %v", model.ErrConfiguration, expr, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// Latest returns the most recent successful report, or nil.
func (s *Scheduler) Latest() *model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// RunNow executes one detection immediately and pushes the result.
func (s *Scheduler) RunNow() (*model.Report, error) {
	return s.run(true)
}

func (s *Scheduler) detectTask() {
	s.log.Info().Msg("running scheduled detection")
	s.run(true)
}

// run is collect, pipeline, record, notify. Runs never overlap.
func (s *Scheduler) run(notify bool) (*model.Report, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	source := s.Collector.Source.Name()
	rows, err := s.Collector.Collect(s.Ctx)
	if err == nil {
		var report *model.Report
		report, err = s.Pipeline.Run(s.Ctx, source, rows)
		if err == nil {
			s.succeeded(report, notify)
			return report, nil
		}
	}

	s.log.Error().Err(err).Str("source", source).Msg("detection failed")
	if _, recErr := s.Recorder.RecordRun(&recorder.RunRecord{
		Timestamp: time.Now(),
		Source:    source,
		Status:    metrics.ResultLabel(err),
		Error:     err.Error(),
	}); recErr != nil {
		s.log.Error().Err(recErr).Msg("record failed run")
	}
	if notify {
		s.trySend(notifier.FormatFailure(source, err, time.Now()))
	}
	return nil, err
}

func (s *Scheduler) succeeded(report *model.Report, notify bool) {
	s.mu.Lock()
	s.latest = report
	s.mu.Unlock()
	if s.OnReport != nil {
		s.OnReport(report)
	}

	id, err := s.Recorder.RecordRun(recorder.RunFromReport(report))
	if err != nil {
		s.log.Error().Err(err).Msg("record run")
	} else if err := s.Recorder.RecordOutliers(id, report.Flags); err != nil {
		s.log.Error().Err(err).Int64("run", id).Msg("record outliers")
	}

	if notify && (len(report.Flags) > 0 || s.NotifyEmpty) {
		s.trySend(notifier.FormatReport(report, notifier.DefaultMaxFlags))
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	var cmd string
	if fields := strings.Fields(command); len(fields) > 0 {
		cmd = strings.ToLower(fields[0])
	}
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/run":
		report, err := s.run(false)
		if err != nil {
			return notifier.FormatFailure(s.Collector.Source.Name(), err, time.Now())
		}
		return notifier.FormatReport(report, notifier.DefaultMaxFlags)
	case "/latest":
		runs, err := s.Recorder.LatestRuns(5)
		if err != nil {
			return fmt.Sprintf("❌ load runs: %v", err)
		}
		return notifier.FormatRuns(runs)
	case "/threshold":
		if s.Calibration != nil && s.Calibration.Calibrated() {
			st := s.Calibration.Get()
			return notifier.FormatThreshold(st.Threshold) + fmt.Sprintf("calibrated %s from %s", st.CalibratedAt.Format("2006-01-02 15:04"), st.Source)
		}
		if r := s.Latest(); r != nil {
			return notifier.FormatThreshold(r.Threshold)
		}
		return "No threshold yet, send /run first"
	case "/recalibrate":
		if s.Calibration == nil {
			return "Calibration is not enabled"
		}
		if err := s.Calibration.Reset(); err != nil {
			return fmt.Sprintf("❌ reset calibration: %v", err)
		}
		return "Calibration cleared, the next run derives a new cutoff"
	default:
		return "Available commands:\n• /run: detect now\n• /latest: recent runs\n• /threshold: current cutoff\n• /recalibrate: derive a new calibrated cutoff"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
