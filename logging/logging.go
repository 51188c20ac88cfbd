package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/warp/slot-engine/config"
	"github.com/warp/slot-engine/metrics"
)

// ErrorTypeField labels error entries for the errors counter.
const ErrorTypeField = "error_type"

const (
	ErrorTypeDB        = "db"
	ErrorTypeConflict  = "conflict"
	ErrorTypeData      = "data_consistency"
	ErrorTypeScheduler = "scheduler"
	ErrorTypeHTTP      = "http"
)

type prometheusHook struct{}

func (h *prometheusHook) Fire(entry *log.Entry) error {
	errorType, ok := entry.Data[ErrorTypeField].(string)
	if !ok {
		errorType = "unknown"
	}

	metrics.ErrorsCounter.WithLabelValues(errorType).Inc()
	return nil
}

func (h *prometheusHook) Levels() []log.Level {
	return []log.Level{
		log.ErrorLevel,
		log.FatalLevel,
		log.PanicLevel,
	}
}

var logFile *os.File

// Setup configures the standard logrus logger. When OutputFile is set,
// entries go to stdout and the file.
func Setup(cfg config.LoggerConfig) error {
	var out io.Writer = os.Stdout
	if cfg.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		out = io.MultiWriter(os.Stdout, f)
	}
	log.SetOutput(out)

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000 -0700",
	})
	log.AddHook(&prometheusHook{})
	log.SetLevel(Level(cfg.LogLevel))
	return nil
}

// Level maps a configured level name to logrus; unknown names are Info.
func Level[T ~string](name T) log.Level {
	switch strings.ToUpper(string(name)) {
	case string(config.LevelDebug):
		return log.DebugLevel
	case string(config.LevelWarning):
		return log.WarnLevel
	case string(config.LevelError):
		return log.ErrorLevel
	case string(config.LevelFatal):
		return log.FatalLevel
	}
	return log.InfoLevel
}

func Cleanup() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
