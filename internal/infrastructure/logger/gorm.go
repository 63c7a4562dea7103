package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultSlowSQL = 200 * time.Millisecond
	// maxLoggedSQL bounds statements when full SQL logging is off. Levy
	// transaction inserts carry trader names and references that do not
	// belong in shared log storage.
	maxLoggedSQL = 120
)

// SQLLogConfig controls how statements issued through GORM are logged.
type SQLLogConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration // zero disables slow statement warnings
	FullSQL       bool
}

// SQLLogConfigFor builds the statement log config from the service log level.
func SQLLogConfigFor(level string, slow time.Duration, fullSQL bool) SQLLogConfig {
	return SQLLogConfig{Level: MapGormLogLevel(level), SlowThreshold: slow, FullSQL: fullSQL}
}

// GormLogger adapts zap to gormlogger.Interface. Record-not-found results are
// never logged: lookups of unconfigured markets and unknown traders are a
// normal outcome for the levy repositories.
type GormLogger struct {
	logger *zap.Logger
	cfg    SQLLogConfig
}

// NewGormLogger creates a GORM logger writing under the "gorm" name.
func NewGormLogger(zapLogger *zap.Logger, cfg SQLLogConfig) *GormLogger {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &GormLogger{logger: zapLogger.Named("gorm"), cfg: cfg}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.cfg.Level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Info {
		l.logger.Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Warn {
		l.logger.Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Error {
		l.logger.Sugar().Errorf(msg, data...)
	}
}

type statementKind int

const (
	statementSkip statementKind = iota
	statementFailed
	statementSlow
	statementOK
)

func (l *GormLogger) classify(elapsed time.Duration, err error) statementKind {
	switch {
	case err != nil:
		if errors.Is(err, gormlogger.ErrRecordNotFound) || l.cfg.Level < gormlogger.Error {
			return statementSkip
		}
		return statementFailed
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold:
		if l.cfg.Level < gormlogger.Warn {
			return statementSkip
		}
		return statementSlow
	case l.cfg.Level >= gormlogger.Info:
		return statementOK
	default:
		return statementSkip
	}
}

// Trace logs one executed statement with the correlation fields of ctx.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	kind := l.classify(elapsed, err)
	if kind == statementSkip {
		return
	}

	sql, rows := fc()
	fields := append(correlationFields(ctx),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", l.statement(sql)),
	)

	switch kind {
	case statementFailed:
		l.logger.Error("SQL Error", append(fields, zap.Error(err))...)
	case statementSlow:
		l.logger.Warn("Slow SQL", append(fields, zap.Duration("threshold", l.cfg.SlowThreshold))...)
	default:
		l.logger.Debug("SQL Query", fields...)
	}
}

func (l *GormLogger) statement(sql string) string {
	if l.cfg.FullSQL || len(sql) <= maxLoggedSQL {
		return sql
	}
	return sql[:maxLoggedSQL] + "..."
}

// MapGormLogLevel maps the service log level to a GORM log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
