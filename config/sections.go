package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"github.com/warp/slot-engine/generic"
)

// =============================================================================
// SERVER
// =============================================================================

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

func (config ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", config.Port)
}

func (config ServerConfig) validate() error {
	var errs []error
	if config.Port <= 0 || config.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", config.Port))
	}
	if config.RateLimitRPS <= 0 {
		errs = append(errs, errors.New("rate_limit_rps must be positive"))
	}
	if config.RateLimitBurst < 1 {
		errs = append(errs, errors.New("rate_limit_burst must be at least 1"))
	}
	return errors.Join(errs...)
}

func (config ServerConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"server.port":             "PORT",
		"server.allowed_origins":  "ALLOWED_ORIGINS",
		"server.rate_limit_rps":   "RATE_LIMIT_RPS",
		"server.rate_limit_burst": "RATE_LIMIT_BURST",
	})
}

// =============================================================================
// DB
// =============================================================================

type DBConfig struct {
	Path string `mapstructure:"path"`
}

func (config DBConfig) validate() error {
	if config.Path == "" {
		return fmt.Errorf("missing variable: path")
	}
	return nil
}

func (config DBConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return v.BindEnv("db.path", "DB_PATH")
}

// =============================================================================
// LOGGER
// =============================================================================

type logLevel string

const (
	LevelDebug   logLevel = "DEBUG"
	LevelInfo    logLevel = "INFO"
	LevelWarning logLevel = "WARNING"
	LevelError   logLevel = "ERROR"
	LevelFatal   logLevel = "FATAL"
)

type LoggerConfig struct {
	LogLevel   logLevel `mapstructure:"log_level"`
	OutputFile string   `mapstructure:"output_file"`
}

func (config LoggerConfig) validate() error {
	switch logLevel(strings.ToUpper(string(config.LogLevel))) {
	case LevelDebug, LevelInfo, LevelWarning, LevelError, LevelFatal:
		return nil
	case "":
		return fmt.Errorf("missing variable: log_level")
	}
	return fmt.Errorf("unknown log_level %q", config.LogLevel)
}

func (config LoggerConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"logger.log_level":   "LOG_LEVEL",
		"logger.output_file": "LOG_FILE",
	})
}

// =============================================================================
// RISK
// =============================================================================

type RiskConfig struct {
	TerminationDays int `mapstructure:"termination_days"`
	ExtensionDays   int `mapstructure:"extension_days"`
}

func (config RiskConfig) validate() error {
	if config.TerminationDays < 0 {
		return fmt.Errorf("termination_days must not be negative")
	}
	if config.ExtensionDays <= config.TerminationDays {
		return fmt.Errorf("extension_days (%d) must exceed termination_days (%d)", config.ExtensionDays, config.TerminationDays)
	}
	return nil
}

func (config RiskConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"risk.termination_days": "RISK_TERMINATION_DAYS",
		"risk.extension_days":   "RISK_EXTENSION_DAYS",
	})
}

// =============================================================================
// DEADLINES
// =============================================================================

type DeadlinesConfig struct {
	PossessionDays int `mapstructure:"possession_days"`
	ExerciseDays   int `mapstructure:"exercise_days"`
	// Holidays are yyyy-mm-dd dates, or mm-dd for every year.
	Holidays []string `mapstructure:"holidays"`
}

// Calendar builds the holiday calendar. It is nil when no holidays are set.
func (config DeadlinesConfig) Calendar() (generic.HolidayCalendar, error) {
	if len(config.Holidays) == 0 {
		return nil, nil
	}
	cal := &generic.StaticHolidayCalendar{}
	for _, raw := range config.Holidays {
		raw = strings.TrimSpace(raw)
		if d := generic.ParseDate(raw); d.Valid {
			cal.Holidays = append(cal.Holidays, generic.Holiday{ID: raw, Date: d.Point})
			continue
		}
		t, err := time.Parse("01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: expected yyyy-mm-dd or mm-dd", raw)
		}
		cal.Holidays = append(cal.Holidays, generic.Holiday{
			ID:        raw,
			Date:      generic.NewTimePoint(2000, t.Month(), t.Day()),
			Recurring: true,
		})
	}
	return cal, nil
}

func (config DeadlinesConfig) validate() error {
	var missingFields []string
	if config.PossessionDays <= 0 {
		missingFields = append(missingFields, "possession_days")
	}
	if config.ExerciseDays <= 0 {
		missingFields = append(missingFields, "exercise_days")
	}
	if len(missingFields) > 0 {
		return fmt.Errorf("must be positive: %s", strings.Join(missingFields, ", "))
	}
	_, err := config.Calendar()
	return err
}

func (config DeadlinesConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"deadlines.possession_days": "POSSESSION_DAYS",
		"deadlines.exercise_days":   "EXERCISE_DAYS",
		"deadlines.holidays":        "HOLIDAYS",
	})
}

// =============================================================================
// SCHEDULER
// =============================================================================

type SchedulerConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	RiskScanCron string `mapstructure:"risk_scan_cron"`
}

func (config SchedulerConfig) validate() error {
	if !config.Enabled {
		return nil
	}
	if _, err := cron.ParseStandard(config.RiskScanCron); err != nil {
		return fmt.Errorf("invalid risk_scan_cron %q: %w", config.RiskScanCron, err)
	}
	return nil
}

func (config SchedulerConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"scheduler.enabled":        "SCHEDULER_ENABLED",
		"scheduler.risk_scan_cron": "RISK_SCAN_CRON",
	})
}

// =============================================================================
// RULES
// =============================================================================

// RulesConfig points at an optional legal-rule table. Empty means the
// built-in defaults.
type RulesConfig struct {
	File string `mapstructure:"file"`
}

func (config RulesConfig) validate() error { return nil }

func (config RulesConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return v.BindEnv("rules.file", "LEGAL_RULES_FILE")
}
