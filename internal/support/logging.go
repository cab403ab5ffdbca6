package support

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ConfigureLogging applies LOG_LEVEL and, when LOG_FILE is set, redirects
// the default logger to a size-rotated file. The returned closer flushes
// and closes that file.
func ConfigureLogging() io.Closer {
	level, err := log.ParseLevel(strings.ToLower(GetEnv("LOG_LEVEL", "info")))
	if err != nil {
		log.Warn("invalid LOG_LEVEL, using info", "value", GetEnv("LOG_LEVEL", ""))
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetReportTimestamp(true)

	path := strings.TrimSpace(GetEnv("LOG_FILE", ""))
	if path == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    GetEnvInt("LOG_MAX_SIZE_MB", 100),
		MaxBackups: GetEnvInt("LOG_MAX_BACKUPS", 5),
		MaxAge:     GetEnvInt("LOG_MAX_AGE_DAYS", 28),
		Compress:   GetEnvBool("LOG_COMPRESS", true),
	}
	log.SetOutput(rotator)
	log.SetFormatter(log.LogfmtFormatter)
	return rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
