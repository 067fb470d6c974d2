package persistence

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

func newGormLogger(zl zerolog.Logger, props Properties) gormlogger.Interface {
	level := gormlogger.Warn
	switch strings.ToLower(strings.TrimSpace(props[PropLogLevel])) {
	case "silent":
		level = gormlogger.Silent
	case "error":
		level = gormlogger.Error
	case "info":
		level = gormlogger.Info
	}
	slow := 200 * time.Millisecond
	if d, err := time.ParseDuration(props[PropSlowThreshold]); err == nil && d > 0 {
		slow = d
	}
	return gormlogger.New(&zl, gormlogger.Config{
		SlowThreshold:             slow,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
		LogLevel:                  level,
	})
}
