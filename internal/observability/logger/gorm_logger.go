package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerConfig configures query logging.
type GormLoggerConfig struct {
	Level gormlogger.LogLevel
	// SlowThreshold applies to plain statements.
	SlowThreshold time.Duration
	// LockSlowThreshold applies to SELECT ... FOR UPDATE, where the time
	// is mostly spent waiting behind another unit of work.
	LockSlowThreshold    time.Duration
	IgnoreRecordNotFound bool
}

// DefaultGormLoggerConfig: repositories turn a miss into nil, nil so
// record-not-found is not worth a log line.
func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{
		Level:                gormlogger.Warn,
		SlowThreshold:        200 * time.Millisecond,
		LockSlowThreshold:    50 * time.Millisecond,
		IgnoreRecordNotFound: true,
	}
}

// GormLogger implements gormlogger.Interface on top of zap.
type GormLogger struct {
	cfg GormLoggerConfig
}

func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	return &GormLogger{cfg: cfg}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.cfg.Level = level
	return &next
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) message(ctx context.Context, min gormlogger.LogLevel, level zapcore.Level, msg string, data []interface{}) {
	if l.cfg.Level < min {
		return
	}
	fields := []zap.Field{zap.String("component", "db")}
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}
	if ce := FromContext(ctx).Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

// Trace logs failed and slow statements, and every statement at Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	stmt := describeSQL(sql)

	switch {
	case err != nil && l.cfg.Level >= gormlogger.Error && !l.ignored(err):
		l.logQuery(ctx, zapcore.ErrorLevel, stmt, sql, rows, elapsed, err)
	case l.slow(stmt, elapsed) && l.cfg.Level >= gormlogger.Warn:
		l.logQuery(ctx, zapcore.WarnLevel, stmt, sql, rows, elapsed, nil)
	case l.cfg.Level >= gormlogger.Info:
		l.logQuery(ctx, zapcore.DebugLevel, stmt, sql, rows, elapsed, nil)
	}
}

// ParamsFilter drops bound values. Titles, details and emails are bound
// parameters and must not reach the log.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *GormLogger) ignored(err error) bool {
	return l.cfg.IgnoreRecordNotFound && errors.Is(err, gormlogger.ErrRecordNotFound)
}

func (l *GormLogger) slow(stmt statement, elapsed time.Duration) bool {
	threshold := l.cfg.SlowThreshold
	if stmt.rowLock && l.cfg.LockSlowThreshold > 0 {
		threshold = l.cfg.LockSlowThreshold
	}
	return threshold > 0 && elapsed > threshold
}

func (l *GormLogger) logQuery(ctx context.Context, level zapcore.Level, stmt statement, sql string, rows int64, elapsed time.Duration, err error) {
	ce := FromContext(ctx).Check(level, "db.query")
	if ce == nil {
		return
	}
	fields := []zap.Field{
		zap.String("component", "db"),
		zap.String("sql", strings.TrimSpace(sql)),
		zap.String("operation", stmt.operation),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if stmt.table != "" {
		fields = append(fields, zap.String("table", stmt.table))
	}
	if stmt.rowLock {
		fields = append(fields, zap.Bool("row_lock", true))
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	ce.Write(fields...)
}

type statement struct {
	operation string
	table     string
	rowLock   bool
}

// describeSQL picks the leading verb, the first table it touches and
// whether rows are locked.
func describeSQL(sql string) statement {
	tokens := strings.Fields(strings.TrimSpace(sql))
	stmt := statement{operation: "UNKNOWN"}

	for i, raw := range tokens {
		token := strings.ToUpper(strings.Trim(raw, "();"))
		switch {
		case stmt.operation == "UNKNOWN" && isVerb(token):
			stmt.operation = token
		case stmt.table == "" && (token == "FROM" || token == "INTO"):
			if i+1 < len(tokens) {
				stmt.table = strings.Trim(tokens[i+1], "`\"();")
			}
		case token == "FOR" && i+1 < len(tokens):
			next := strings.ToUpper(strings.Trim(tokens[i+1], ";"))
			if next == "UPDATE" || next == "SHARE" {
				stmt.rowLock = true
			}
		}
	}
	if stmt.operation == "UPDATE" && stmt.table == "" && len(tokens) > 1 {
		stmt.table = strings.Trim(tokens[1], "`\"")
	}
	return stmt
}

func isVerb(token string) bool {
	switch token {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "MERGE":
		return true
	}
	return false
}

var _ gormlogger.Interface = (*GormLogger)(nil)
