package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Deadlines DeadlinesConfig `mapstructure:"deadlines"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Rules     RulesConfig     `mapstructure:"rules"`
}

const DefaultFile = "./configs/config.yaml"

// section is implemented by every config block.
type section interface {
	bindEnvironmentVariables(v *viper.Viper) error
	validate() error
}

// Load reads file, then .env/.env.local, then the environment. Later sources
// win. A missing file is not an error; defaults apply.
func Load(file string) (*Config, error) {
	loadDotEnv(".env", ".env.local")

	v := viper.New()
	setDefaults(v)

	if err := bindEnvironmentVariables(v); err != nil {
		return nil, err
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("error reading config file %s: %w", file, err)
			}
			log.Warnf("config file %s not found, using defaults", file)
		}
	}

	config := Config{}
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// loadDotEnv loads the files that exist. Variables already set are kept.
func loadDotEnv(files ...string) {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return
	}
	if err := godotenv.Load(existing...); err != nil {
		log.Warnf("failed to load %s: %v", strings.Join(existing, ", "), err)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("server.rate_limit_rps", 10.0)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("db.path", "slots.db")
	v.SetDefault("logger.log_level", string(LevelInfo))
	v.SetDefault("risk.termination_days", 30)
	v.SetDefault("risk.extension_days", 90)
	v.SetDefault("deadlines.possession_days", 30)
	v.SetDefault("deadlines.exercise_days", 15)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.risk_scan_cron", "0 7 * * *")
}

func (config *Config) sections() map[string]section {
	return map[string]section{
		"ServerConfig":    config.Server,
		"DBConfig":        config.DB,
		"LoggerConfig":    config.Logger,
		"RiskConfig":      config.Risk,
		"DeadlinesConfig": config.Deadlines,
		"SchedulerConfig": config.Scheduler,
		"RulesConfig":     config.Rules,
	}
}

func bindEnvironmentVariables(v *viper.Viper) error {
	var errs []error
	for name, s := range (&Config{}).sections() {
		if err := s.bindEnvironmentVariables(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config Config) validate() error {
	var errs []error
	for name, s := range config.sections() {
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func bindAll(v *viper.Viper, pairs map[string]string) error {
	var errs []error
	for key, env := range pairs {
		if err := v.BindEnv(key, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
