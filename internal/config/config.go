package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"LMPSentinel/internal/arima"
	"LMPSentinel/internal/model"
	"LMPSentinel/internal/normalizer"
	"LMPSentinel/internal/pipeline"
)

// DefaultSpringForward is the gap table used when dst.spring_forward is absent.
var DefaultSpringForward = map[string]float64{"03-08-2015": 10.41}

// Config holds all application configuration.
type Config struct {
	Input struct {
		Path       string        `yaml:"path"`
		URL        string        `yaml:"url" validate:"omitempty,url"`
		APIKey     string        `yaml:"api_key"`
		DateLayout string        `yaml:"date_layout" default:"01-02-2006" validate:"required"`
		Header     bool          `yaml:"header" default:"true"`
		Timeout    time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
	} `yaml:"input"`
	DST struct {
		SpringForward map[string]float64 `yaml:"spring_forward"`
	} `yaml:"dst"`
	Smoothing struct {
		Windows        []int `yaml:"windows" default:"[3,12,24,72,168]" validate:"required,min=1,dive,gt=0"`
		AnalysisWindow int   `yaml:"analysis_window" default:"12" validate:"gt=0"`
	} `yaml:"smoothing"`
	Model struct {
		P               int     `yaml:"p" default:"6" validate:"gte=0"`
		D               int     `yaml:"d" default:"1" validate:"gte=0"`
		Q               int     `yaml:"q" default:"1" validate:"gte=0"`
		MaxIterations   int     `yaml:"max_iterations" default:"20000" validate:"gt=0"`
		Tolerance       float64 `yaml:"tolerance" default:"1e-10" validate:"gt=0"`
		StallIterations int     `yaml:"stall_iterations" default:"100" validate:"gt=0"`
		Ridge           float64 `yaml:"ridge" default:"1e-8" validate:"gte=0"`
		ADFLags         int     `yaml:"adf_lags" default:"-1" validate:"gte=-1"`
		SkipADF         bool    `yaml:"skip_adf"`
	} `yaml:"model"`
	Threshold struct {
		Mode             string  `yaml:"mode" default:"derived" validate:"oneof=derived fixed calibrated"`
		Multiplier       float64 `yaml:"multiplier" default:"3" validate:"gt=0"`
		Cutoff           float64 `yaml:"cutoff" validate:"gte=0"`
		Symmetric        bool    `yaml:"symmetric"`
		CalibrationStart string  `yaml:"calibration_start"`
		CalibrationEnd   string  `yaml:"calibration_end"`
		StateFile        string  `yaml:"state_file" default:"data/calibration.json"`
	} `yaml:"threshold"`
	Schedule struct {
		Cron       string `yaml:"cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" default:"data/lmp_sentinel.db"`
	} `yaml:"database"`
	Telegram struct {
		BotToken    string `yaml:"bot_token"`
		ChatID      string `yaml:"chat_id" validate:"required_with=BotToken"`
		APIBase     string `yaml:"api_base" default:"https://api.telegram.org" validate:"url"`
		NotifyEmpty bool   `yaml:"notify_empty"`
	} `yaml:"telegram"`
	HTTP struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Addr    string `yaml:"addr" default:":9090"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

var validate = validator.New()

// Load applies struct defaults, reads the YAML file over them (a missing file
// is fine), then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config: %v", model.ErrConfiguration, err)
		}
	}
	if cfg.DST.SpringForward == nil {
		cfg.DST.SpringForward = make(map[string]float64, len(DefaultSpringForward))
		for k, v := range DefaultSpringForward {
			cfg.DST.SpringForward[k] = v
		}
	}

	// Environment variable overrides
	overrides := []struct {
		env string
		dst *string
	}{
		{"LMP_INPUT_PATH", &cfg.Input.Path},
		{"LMP_INPUT_URL", &cfg.Input.URL},
		{"LMP_API_KEY", &cfg.Input.APIKey},
		{"TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken},
		{"TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID},
		{"HTTPS_PROXY", &cfg.Proxy},
		{"SQLITE_PATH", &cfg.Database.SQLitePath},
		{"CRON_SCHEDULE", &cfg.Schedule.Cron},
		{"LOG_LEVEL", &cfg.Log.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	return cfg, nil
}

// Validate checks struct tags and the cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.TrimPrefix(e.Namespace(), "Config."), e.Tag()))
			}
			return fmt.Errorf("%w: %s", model.ErrConfiguration, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	if c.Input.Path == "" && c.Input.URL == "" {
		return fmt.Errorf("%w: input.path or input.url is required", model.ErrConfiguration)
	}
	if !slices.Contains(c.Smoothing.Windows, c.Smoothing.AnalysisWindow) {
		return fmt.Errorf("%w: smoothing.analysis_window %d is not in smoothing.windows", model.ErrConfiguration, c.Smoothing.AnalysisWindow)
	}
	if c.Threshold.Mode == string(model.ThresholdFixed) && c.Threshold.Cutoff <= 0 {
		return fmt.Errorf("%w: threshold.cutoff must be positive in fixed mode", model.ErrConfiguration)
	}
	if _, _, err := c.calibrationWindow(); err != nil {
		return err
	}
	return nil
}

// PipelineOptions maps the configuration onto detector pipeline options.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	from, to, err := c.calibrationWindow()
	if err != nil {
		return pipeline.Options{}, err
	}
	spring := make(map[string]float64, len(c.DST.SpringForward))
	for k, v := range c.DST.SpringForward {
		spring[k] = v
	}
	return pipeline.Options{
		Normalizer: normalizer.Options{
			DateLayout:    c.Input.DateLayout,
			SpringForward: spring,
		},
		Windows:        slices.Clone(c.Smoothing.Windows),
		AnalysisWindow: c.Smoothing.AnalysisWindow,
		Order:          model.Order{P: c.Model.P, D: c.Model.D, Q: c.Model.Q},
		Fit: arima.Options{
			MaxIterations:   c.Model.MaxIterations,
			Tolerance:       c.Model.Tolerance,
			StallIterations: c.Model.StallIterations,
			Ridge:           c.Model.Ridge,
		},
		Threshold: pipeline.ThresholdOptions{
			Mode:       model.ThresholdMode(c.Threshold.Mode),
			Multiplier: c.Threshold.Multiplier,
			Cutoff:     c.Threshold.Cutoff,
			Symmetric:  c.Threshold.Symmetric,
			From:       from,
			To:         to,
		},
		StationarityLags: c.Model.ADFLags,
		SkipStationarity: c.Model.SkipADF,
	}, nil
}

// calibrationWindow parses the optional date bounds. The end date is
// inclusive, so it extends to the last hour of that day.
func (c *Config) calibrationWindow() (from, to time.Time, err error) {
	if s := c.Threshold.CalibrationStart; s != "" {
		if from, err = normalizer.ParseDate(s, c.Input.DateLayout); err != nil {
			return from, to, fmt.Errorf("%w: threshold.calibration_start: %v", model.ErrConfiguration, err)
		}
	}
	if s := c.Threshold.CalibrationEnd; s != "" {
		if to, err = normalizer.ParseDate(s, c.Input.DateLayout); err != nil {
			return from, to, fmt.Errorf("%w: threshold.calibration_end: %v", model.ErrConfiguration, err)
		}
		to = to.Add(23 * time.Hour)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, fmt.Errorf("%w: calibration window ends before it starts", model.ErrConfiguration)
	}
	return from, to, nil
}
