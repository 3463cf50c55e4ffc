package logger

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// Init configures the process-wide default logger for the given level
// ("debug", "info", "warn", "error").
func Init(level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.StampMilli,
	})
	log.SetDefault(logger)
	return logger, nil
}
