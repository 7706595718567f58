package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/congo-pay/secure_wallet/internal/boundary"
)

const (
	// KindLifecycle marks component and session lifecycle events.
	KindLifecycle = "lifecycle"
	// KindCommand marks a dispatched wallet command.
	KindCommand = "command"
)

// Entry describes the outcome of one boundary call. It never carries
// balances or transaction records.
type Entry struct {
	Kind       string
	SessionID  string
	Operation  string
	ParamTypes uint32
	Code       uint32
	Detail     string
	At         time.Time
}

// Journal receives an entry for every boundary call.
type Journal interface {
	Record(ctx context.Context, entry Entry) error
}

// LoggerJournal writes entries to the structured logger.
type LoggerJournal struct {
	logger *slog.Logger
}

// NewLoggerJournal constructs a journal backed by logger.
func NewLoggerJournal(logger *slog.Logger) *LoggerJournal {
	return &LoggerJournal{logger: logger}
}

// Record writes the entry to the logger. Failures are logged at warn level.
func (j *LoggerJournal) Record(ctx context.Context, entry Entry) error {
	if j == nil || j.logger == nil {
		return nil
	}
	level := slog.LevelInfo
	if entry.Code != 0 {
		level = slog.LevelWarn
	}
	j.logger.Log(ctx, level, "journal",
		slog.String("kind", entry.Kind),
		slog.String("session_id", entry.SessionID),
		slog.String("operation", entry.Operation),
		slog.String("param_types", formatHex(entry.ParamTypes)),
		slog.String("param_shape", boundary.UnpackShape(entry.ParamTypes).String()),
		slog.String("code", formatHex(entry.Code)),
		slog.String("detail", entry.Detail),
	)
	return nil
}

// Multi fans an entry out to several journals and joins their errors.
type Multi []Journal

// Record forwards entry to every journal.
func (m Multi) Record(ctx context.Context, entry Entry) error {
	var errs []error
	for _, j := range m {
		if j == nil {
			continue
		}
		if err := j.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func formatHex(v uint32) string {
	return fmt.Sprintf("0x%08x", v)
}
