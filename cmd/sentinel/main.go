package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"LMPSentinel/internal/calibration"
	"LMPSentinel/internal/collector"
	"LMPSentinel/internal/config"
	"LMPSentinel/internal/logger"
	"LMPSentinel/internal/metrics"
	"LMPSentinel/internal/model"
	"LMPSentinel/internal/notifier"
	"LMPSentinel/internal/pipeline"
	"LMPSentinel/internal/recorder"
	"LMPSentinel/internal/scheduler"
	"LMPSentinel/internal/server"
)

func main() {
	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	cfgPath := flag.String("config", defaultCfg, "path to the YAML config file")
	once := flag.Bool("once", false, "run detection once and exit")
	out := flag.String("out", "", "write the report as JSON to this file (- for stdout)")
	flag.Parse()

	if err := run(*cfgPath, *once, *out); err != nil {
		fmt.Fprintf(os.Stderr, "lmpsentinel: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string, once bool, out string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		return err
	}
	log.Info().Str("config", cfgPath).Msg("LMPSentinel starting")

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Calibration state, only needed for the calibrated threshold mode
	var calib *calibration.Manager
	if cfg.Threshold.Mode == string(model.ThresholdCalibrated) {
		calib, err = calibration.NewManager(cfg.Threshold.StateFile, log)
		if err != nil {
			return fmt.Errorf("init calibration state: %w", err)
		}
	}

	opts, err := cfg.PipelineOptions()
	if err != nil {
		return err
	}
	p, err := pipeline.New(opts, calib, m, log)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}

	src, err := collector.NewSource(cfg.Input.Path, cfg.Input.URL, cfg.Input.APIKey, cfg.Proxy, cfg.Input.Header, cfg.Input.Timeout)
	if err != nil {
		return err
	}
	log.Info().Str("source", src.Name()).Msg("input source")
	col := collector.NewCollector(src, log)

	rec := openRecorder(cfg.Database.SQLitePath, log)
	defer rec.Close()

	tn := notifier.NewTelegramNotifier(cfg.Telegram.APIBase, cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
	var sender scheduler.Sender
	if tn.Enabled() {
		sender = tn
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewScheduler(ctx, col, p, sender, rec, log)
	sched.Calibration = calib
	sched.NotifyEmpty = cfg.Telegram.NotifyEmpty

	if once || cfg.Schedule.Cron == "" {
		report, err := sched.RunNow()
		if err != nil {
			return err
		}
		return writeReport(report, out)
	}

	if out != "" {
		sched.OnReport = func(r *model.Report) {
			if err := writeReport(r, out); err != nil {
				log.Error().Err(err).Msg("write report")
			}
		}
	}

	var srv *server.Server
	if cfg.HTTP.Enabled {
		srv = server.New(cfg.HTTP.Addr, reg, log)
		prev := sched.OnReport
		sched.OnReport = func(r *model.Report) {
			srv.Publish(r)
			if prev != nil {
				prev(r)
			}
		}
		srv.Start()
	}

	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn.Enabled() {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if cfg.Schedule.RunOnStart {
		log.Info().Msg("run_on_start enabled, executing detection now")
		go sched.RunNow()
	}

	log.Info().Str("cron", cfg.Schedule.Cron).Msg("LMPSentinel is running. Press Ctrl+C to stop.")
	<-ctx.Done()

	log.Info().Msg("shutdown signal received, stopping...")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server shutdown")
		}
	}
	log.Info().Msg("LMPSentinel stopped")
	return nil
}

func openRecorder(path string, log zerolog.Logger) recorder.Recorder {
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(path, log)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func writeReport(r *model.Report, out string) error {
	if out == "" {
		return nil
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if out == "-" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(out, data, 0o644)
}
