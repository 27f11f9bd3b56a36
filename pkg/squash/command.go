package squash

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"squashd/pkg/chain"
	"squashd/pkg/logger"
	"squashd/pkg/models"
	"squashd/pkg/store"
	"squashd/pkg/telemetry"
)

var (
	squashRe = regexp.MustCompile(`(?i)^!squash(?:\s+(\d+))?\s*$`)
	toggleRe = regexp.MustCompile(`(?i)^!autosquash\s+(on|off)\s*$`)
)

// IsCommand reports whether text is (or begins like) an engine command.
// Commands are always excluded from chain consideration.
func IsCommand(text string) bool {
	low := strings.ToLower(text)
	return strings.HasPrefix(low, "!squash") || strings.HasPrefix(low, "!autosquash")
}

// HandleSquash runs the `!squash [n]` bulk merge. The command message
// itself is always cleaned up, whatever path is taken. The chat lock is
// held for the whole read-modify-write sequence so the command cannot race
// the autosquash watcher on the same chat.
func (e *Engine) HandleSquash(ctx context.Context, cmd models.Message) {
	m := squashRe.FindStringSubmatch(cmd.Text)
	if m == nil {
		return
	}
	mu := e.locks.Get(cmd.Chat)
	mu.Lock()
	defer mu.Unlock()

	cleanup := func() {
		if err := e.SafeDelete(ctx, cmd.Chat, []models.Message{cmd}); err != nil {
			logger.Warn("squash_cmd_cleanup_failed", "chat", cmd.Chat, "error", err)
		}
	}

	var collected []models.Message
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			cleanup()
			return
		}
		logger.Info("squash_fixed", "chat", cmd.Chat, "n", n)
		msgs, err := e.st.Recent(ctx, cmd.Chat, store.Query{FromSelf: true, Limit: n, BeforeID: cmd.ID})
		if err != nil {
			logger.Warn("squash_history_failed", "chat", cmd.Chat, "error", err)
			cleanup()
			return
		}
		for _, msg := range msgs {
			if !msg.PlainText() {
				// one disqualified message aborts the whole fixed batch
				logger.Info("squash_abort_non_plain", "chat", cmd.Chat, "msg_id", msg.ID)
				cleanup()
				return
			}
			collected = append(collected, msg)
		}
	} else {
		logger.Info("squash_smart", "chat", cmd.Chat)
		msgs, err := e.st.Recent(ctx, cmd.Chat, store.Query{Limit: e.opts.SmartWindow, BeforeID: cmd.ID})
		if err != nil {
			logger.Warn("squash_history_failed", "chat", cmd.Chat, "error", err)
			cleanup()
			return
		}
		for _, msg := range msgs {
			if !msg.Outgoing || !msg.PlainText() {
				// boundary terminates the run, nothing to abort
				break
			}
			collected = append(collected, msg)
		}
	}

	if len(collected) == 0 {
		logger.Info("squash_empty", "chat", cmd.Chat)
		cleanup()
		return
	}

	// newest-first to chronological
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}

	// fold an open chain into the squash by dropping trailing markers
	texts := make([]string, 0, len(collected))
	for _, msg := range collected {
		texts = append(texts, chain.Strip(msg.Text))
	}
	combined := strings.Join(texts, "\n")

	if len(combined) > e.opts.MaxMessageLen {
		logger.Info("squash_abort_too_long", "chat", cmd.Chat, "len", len(combined), "max", e.opts.MaxMessageLen)
		cleanup()
		return
	}

	target := collected[0]
	rest := collected[1:]
	logger.Info("squashing", "chat", cmd.Chat, "count", len(collected), "target", target.ID)

	// only ErrNotModified is safe to proceed past: the target already holds
	// the combined text; any other edit failure means deleting the run
	// would destroy content that never landed
	if combined != target.Text {
		if err := e.edit(ctx, cmd.Chat, target.ID, combined); err != nil && !errors.Is(err, store.ErrNotModified) {
			logger.Error("squash_edit_failed", "chat", cmd.Chat, "target", target.ID, "error", err)
			cleanup()
			return
		}
	}

	victims := append(append([]models.Message(nil), rest...), cmd)
	if err := e.SafeDelete(ctx, cmd.Chat, victims); err != nil {
		logger.Error("squash_delete_failed", "chat", cmd.Chat, "error", err)
		return
	}
	telemetry.Squashes.Inc()
}

// HandleToggle runs `!autosquash on|off`. Turning the mode off closes the
// current chat's open chain as an immediate consequence. The command
// message is edited to a short confirmation and self-deleted after a
// delay so the user has time to read it.
func (e *Engine) HandleToggle(ctx context.Context, cmd models.Message) {
	m := toggleRe.FindStringSubmatch(cmd.Text)
	if m == nil {
		return
	}
	on := strings.EqualFold(m[1], "on")
	e.enabled.Store(on)

	confirmation := "Autosquash disabled."
	if on {
		confirmation = "Autosquash enabled. New messages will be merged."
	}
	logger.Info("autosquash_toggled", "chat", cmd.Chat, "enabled", on)
	if err := e.edit(ctx, cmd.Chat, cmd.ID, confirmation); err != nil && !store.Ignorable(err) {
		logger.Warn("toggle_confirm_edit_failed", "chat", cmd.Chat, "error", err)
	}

	if !on {
		mu := e.locks.Get(cmd.Chat)
		mu.Lock()
		if err := e.tracker.Close(ctx, cmd.Chat); err != nil {
			logger.Warn("toggle_chain_close_failed", "chat", cmd.Chat, "error", err)
		}
		mu.Unlock()
	}

	// cosmetic: the confirmation lingers, then the command is cleaned up
	cmd.Text = confirmation
	if e.opts.ToggleCleanupDelay <= 0 {
		if err := e.SafeDelete(ctx, cmd.Chat, []models.Message{cmd}); err != nil {
			logger.Warn("toggle_cleanup_failed", "chat", cmd.Chat, "error", err)
		}
		return
	}
	time.AfterFunc(e.opts.ToggleCleanupDelay, func() {
		if err := e.SafeDelete(context.Background(), cmd.Chat, []models.Message{cmd}); err != nil {
			logger.Warn("toggle_cleanup_failed", "chat", cmd.Chat, "error", err)
		}
	})
}
