package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/slot-engine/generic"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func Test_Config_LoadsRepositoryFile(t *testing.T) {
	cfg, err := Load("../configs/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30, cfg.Risk.TerminationDays)
	assert.Equal(t, 90, cfg.Risk.ExtensionDays)
	assert.Equal(t, 30, cfg.Deadlines.PossessionDays)
	assert.Equal(t, 15, cfg.Deadlines.ExerciseDays)
	assert.True(t, cfg.Scheduler.Enabled)
}

func Test_Config_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, "slots.db", cfg.DB.Path)
	assert.Equal(t, LevelInfo, cfg.Logger.LogLevel)
	assert.Equal(t, "0 7 * * *", cfg.Scheduler.RiskScanCron)
}

func Test_Config_EnvironmentOverrideWorksCorrect(t *testing.T) {
	// GIVEN: A config file and environment variables for several sections
	// WHEN: Loading
	// THEN: The environment wins

	path := writeConfig(t, "db:\n  path: file.db\nrisk:\n  termination_days: 20\n  extension_days: 60\n")
	t.Setenv("DB_PATH", "/var/lib/slots.db")
	t.Setenv("PORT", "9090")
	t.Setenv("RISK_EXTENSION_DAYS", "120")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/slots.db", cfg.DB.Path)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 20, cfg.Risk.TerminationDays)
	assert.Equal(t, 120, cfg.Risk.ExtensionDays)
	assert.Equal(t, LevelDebug, cfg.Logger.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func Test_Config_ValidationJoinsSectionErrors(t *testing.T) {
	// GIVEN: Invalid values in two sections
	// WHEN: Loading
	// THEN: Both sections are reported

	path := writeConfig(t, "risk:\n  termination_days: 90\n  extension_days: 30\nscheduler:\n  enabled: true\n  risk_scan_cron: \"not a cron\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RiskConfig")
	assert.Contains(t, err.Error(), "SchedulerConfig")
}

func Test_Config_DisabledSchedulerSkipsCronCheck(t *testing.T) {
	path := writeConfig(t, "scheduler:\n  enabled: false\n  risk_scan_cron: \"\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Scheduler.Enabled)
}

func Test_LoggerConfig_RejectsUnknownLevel(t *testing.T) {
	assert.Error(t, LoggerConfig{LogLevel: "LOUD"}.validate())
	assert.Error(t, LoggerConfig{}.validate())
	assert.NoError(t, LoggerConfig{LogLevel: "warning"}.validate())
}

func Test_DeadlinesConfig_Calendar(t *testing.T) {
	cfg := DeadlinesConfig{PossessionDays: 30, ExerciseDays: 15, Holidays: []string{"2024-12-02", "11-15"}}
	require.NoError(t, cfg.validate())

	cal, err := cfg.Calendar()
	require.NoError(t, err)
	assert.True(t, cal.IsHoliday("", generic.MustParseDate("2024-12-02")))
	assert.True(t, cal.IsHoliday("", generic.MustParseDate("2031-11-15")))
	assert.False(t, cal.IsHoliday("", generic.MustParseDate("2025-12-02")))

	cfg.Holidays = []string{"christmas"}
	assert.Error(t, cfg.validate())

	cal, err = DeadlinesConfig{}.Calendar()
	require.NoError(t, err)
	assert.Nil(t, cal)
}
