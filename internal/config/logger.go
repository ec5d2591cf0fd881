package config

import (
	"time"

	"github.com/jwalitptl/odontogram-api/pkg/logger"
)

// LoggerConfig translates the log section for pkg/logger.
func (c LogConfig) LoggerConfig() *logger.Config {
	cfg := &logger.Config{
		Level:      logger.ParseLevel(c.Level),
		TimeFormat: time.RFC3339,
		JSON:       c.JSON,
	}
	if c.File != "" {
		cfg.File = &logger.FileConfig{
			Path:       c.File,
			MaxSizeMB:  c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			MaxAgeDays: c.MaxAgeDays,
			Compress:   true,
		}
	}
	return cfg
}
