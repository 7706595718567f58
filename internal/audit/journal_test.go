package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type fakeExecer struct {
	sql  []string
	args [][]any
	err  error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func TestLoggerJournalRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	j := NewLoggerJournal(logger)

	err := j.Record(context.Background(), Entry{
		Kind:       KindCommand,
		SessionID:  "s-1",
		Operation:  "pay",
		ParamTypes: 0x1,
		Code:       0xFFFF0006,
		Detail:     "insufficient funds",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["level"] != "WARN" {
		t.Fatalf("expected warn level for failure, got %v", line["level"])
	}
	if line["code"] != "0xffff0006" || line["param_types"] != "0x00000001" {
		t.Fatalf("unexpected codes in %v", line)
	}
	if line["param_shape"] != "(value_input, none, none, none)" {
		t.Fatalf("unexpected shape in %v", line)
	}
}

func TestPostgresJournalRecord(t *testing.T) {
	db := &fakeExecer{}
	j := NewPostgresJournal(db)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	err := j.Record(context.Background(), Entry{
		Kind:       KindCommand,
		SessionID:  "s-1",
		Operation:  "deposit",
		ParamTypes: 0x1,
		At:         at,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(db.sql) != 1 || !strings.Contains(db.sql[0], "INSERT INTO command_journal") {
		t.Fatalf("unexpected statements %v", db.sql)
	}
	args := db.args[0]
	if len(args) != 8 {
		t.Fatalf("expected 8 args, got %d", len(args))
	}
	if args[3] != "deposit" || args[4] != int64(1) || args[7] != at {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestPostgresJournalErrors(t *testing.T) {
	db := &fakeExecer{err: errors.New("connection refused")}
	j := NewPostgresJournal(db)

	if err := j.EnsureSchema(context.Background()); err == nil || !strings.Contains(err.Error(), "create command_journal") {
		t.Fatalf("expected wrapped schema error, got %v", err)
	}
	if err := j.Record(context.Background(), Entry{}); !errors.Is(err, db.err) {
		t.Fatalf("expected wrapped insert error, got %v", err)
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	failing := NewPostgresJournal(&fakeExecer{err: errors.New("down")})
	ok := &fakeExecer{}
	m := Multi{NewLoggerJournal(nil), nil, failing, NewPostgresJournal(ok)}

	err := m.Record(context.Background(), Entry{Kind: KindLifecycle})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.sql) != 1 {
		t.Fatalf("healthy journal should still receive the entry")
	}
}
