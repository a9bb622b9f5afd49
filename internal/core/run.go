package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/smartsync/internal/logging"
)

// NoticeLevel grades a user-facing notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a message meant for the operator, collected over one run.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	Time    time.Time   `json:"time"`
}

// Run carries the per-invocation state of one pipeline call: its id, a
// logger scoped to it and the notices it produced. Runs share nothing.
type Run struct {
	ID        string
	Kind      string
	StartedAt time.Time
	Logger    *slog.Logger

	mu      sync.Mutex
	notices []Notice
}

// NewRun starts a run and returns a context carrying it.
func NewRun(ctx context.Context, kind string) (context.Context, *Run) {
	id := uuid.NewString()
	args := []any{"run_id", id, "run", kind}
	if ip := GetIPAddressFromContext(ctx); ip != "" {
		args = append(args, "ip", ip)
	}
	r := &Run{
		ID:        id,
		Kind:      kind,
		StartedAt: time.Now(),
		Logger:    logging.WithFields(ctx, args...),
	}
	return ContextWithRun(ctx, r), r
}

// Notify records a notice and logs it.
func (r *Run) Notify(level NoticeLevel, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.mu.Lock()
	r.notices = append(r.notices, Notice{Level: level, Message: msg, Time: time.Now()})
	r.mu.Unlock()

	switch level {
	case NoticeError:
		r.Logger.Error(msg)
	case NoticeWarning:
		r.Logger.Warn(msg)
	default:
		r.Logger.Info(msg)
	}
}

// Notices returns a copy of the notices so far.
func (r *Run) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Elapsed returns time since the run started.
func (r *Run) Elapsed() time.Duration {
	return time.Since(r.StartedAt)
}

// loggerFor returns the run logger when ctx carries a run, else the
// request-scoped logger.
func loggerFor(ctx context.Context) *slog.Logger {
	if r := RunFromContext(ctx); r != nil {
		return r.Logger
	}
	return logging.FromContext(ctx)
}
