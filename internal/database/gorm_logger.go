package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slowQueryThreshold marks queries worth a warning even when debug
// logging is off.
const slowQueryThreshold = 500 * time.Millisecond

// maxSQLLength caps SQL strings in log output.
const maxSQLLength = 200

// slogGormLogger routes GORM's logging through the process slog
// default. Level filtering is slog's job: with the level above Debug,
// per-query messages are dropped before the SQL string is ever
// formatted.
type slogGormLogger struct{}

// LogMode is a no-op; filtering is handled by slog.
func (l slogGormLogger) LogMode(logger.LogLevel) logger.Interface { return l }

func (l slogGormLogger) Info(_ context.Context, msg string, args ...any) {
	slog.Info(fmt.Sprintf(msg, args...))
}

func (l slogGormLogger) Warn(_ context.Context, msg string, args ...any) {
	slog.Warn(fmt.Sprintf(msg, args...))
}

func (l slogGormLogger) Error(_ context.Context, msg string, args ...any) {
	slog.Error(fmt.Sprintf(msg, args...))
}

// Trace runs after every SQL operation. ErrRecordNotFound is the
// normal "no rows" outcome of .First() and is treated as success, not
// an error.
func (l slogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		sql, rows := fc()
		slog.Error("gorm query error",
			"sql", truncateSQL(sql),
			"rows", rows,
			"duration", elapsed,
			"error", err,
		)
		return
	}

	if elapsed > slowQueryThreshold {
		sql, rows := fc()
		slog.Warn("slow gorm query",
			"sql", truncateSQL(sql),
			"rows", rows,
			"duration", elapsed,
		)
		return
	}

	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}

	sql, rows := fc()
	slog.Debug("gorm query",
		"sql", truncateSQL(sql),
		"rows", rows,
		"duration", elapsed,
	)
}

// truncateSQL keeps log lines readable by replacing the middle of long
// SQL with an ellipsis.
func truncateSQL(sql string) string {
	if len(sql) <= maxSQLLength {
		return sql
	}
	half := (maxSQLLength - 3) / 2
	return sql[:half] + "..." + sql[len(sql)-half:]
}
