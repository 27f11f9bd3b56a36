package squash

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"squashd/pkg/chain"
	"squashd/pkg/logger"
	"squashd/pkg/models"
	"squashd/pkg/store"
	"squashd/pkg/telemetry"
)

// Recorder is the slice of the archive log the engine needs. Satisfied by
// *archive.Log.
type Recorder interface {
	Record(msgs []models.Message) error
}

// Options tunes an Engine. Zero values fall back to the transport defaults.
type Options struct {
	// MaxMessageLen is the transport-imposed ceiling on message text.
	MaxMessageLen int
	// MarkerWindow bounds the chain-close scan over recent self messages.
	MarkerWindow int
	// SmartWindow bounds the history walk of smart-mode squash.
	SmartWindow int
	// DryRun suppresses edits, archives and deletes, reporting only.
	DryRun bool
	// Autosquash is the initial state of the real-time merging mode.
	Autosquash bool
	// ToggleCleanupDelay is how long a toggle confirmation stays visible
	// before self-deleting. Zero or negative deletes synchronously.
	ToggleCleanupDelay time.Duration
}

// Engine owns the squash command, the autosquash watcher and the
// safe-delete procedure. All per-chat mutation goes through the chat lock
// registry; the autosquash mode flag is engine state so isolated instances
// can coexist in tests.
type Engine struct {
	st      store.Store
	rec     Recorder
	tracker *chain.Tracker
	locks   *ChatLocks
	opts    Options
	enabled atomic.Bool
}

// New builds an Engine over the given store and archive recorder.
func New(st store.Store, rec Recorder, opts Options) *Engine {
	if opts.MaxMessageLen <= 0 {
		opts.MaxMessageLen = 4096
	}
	if opts.MarkerWindow <= 0 {
		opts.MarkerWindow = 10
	}
	if opts.SmartWindow <= 0 {
		opts.SmartWindow = 100
	}
	e := &Engine{
		st:      st,
		rec:     rec,
		tracker: chain.New(st, opts.MarkerWindow),
		locks:   NewChatLocks(),
		opts:    opts,
	}
	e.enabled.Store(opts.Autosquash)
	return e
}

// Enabled reports whether real-time autosquash is on.
func (e *Engine) Enabled() bool { return e.enabled.Load() }

// Tracker exposes the engine's chain tracker.
func (e *Engine) Tracker() *chain.Tracker { return e.tracker }

// SafeDelete archives the given messages and, only when archiving
// succeeded, deletes them from the store. An archive failure skips the
// delete and is returned to the caller: deleting without a durable record
// is the one state this procedure exists to prevent. A delete failure
// after successful archiving is logged and swallowed (over-archiving is
// acceptable, data loss is not). In dry-run mode nothing is written or
// deleted; the call only reports what would have happened.
func (e *Engine) SafeDelete(ctx context.Context, chat string, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	if e.opts.DryRun {
		telemetry.DryRunSkips.Inc()
		logger.Info("dry_run_safe_delete", "chat", chat, "count", len(msgs), "ids", ids)
		return nil
	}
	if err := e.rec.Record(msgs); err != nil {
		logger.Error("archive_failed_delete_skipped", "chat", chat, "ids", ids, "error", err)
		return fmt.Errorf("safe delete: %w", err)
	}
	if err := e.st.Delete(ctx, chat, ids); err != nil {
		telemetry.StoreErrors.WithLabelValues("delete").Inc()
		logger.Warn("delete_failed", "chat", chat, "ids", ids, "error", err)
		return nil
	}
	telemetry.MessagesDeleted.Add(float64(len(msgs)))
	for _, m := range msgs {
		logger.AuditEvent("message_deleted", "chat", chat, "msg_id", m.ID)
	}
	return nil
}

// edit wraps a store edit with dry-run suppression.
func (e *Engine) edit(ctx context.Context, chat, msgID, text string) error {
	if e.opts.DryRun {
		telemetry.DryRunSkips.Inc()
		logger.Info("dry_run_edit", "chat", chat, "msg_id", msgID, "len", len(text))
		return nil
	}
	return e.st.Edit(ctx, chat, msgID, text)
}
