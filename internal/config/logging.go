package config

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() (*log.Logger, error) {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	logger := log.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	switch c.LogFormat {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	return logger, nil
}
