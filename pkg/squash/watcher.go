package squash

import (
	"context"
	"errors"

	"squashd/pkg/chain"
	"squashd/pkg/logger"
	"squashd/pkg/models"
	"squashd/pkg/store"
	"squashd/pkg/telemetry"
)

// Dispatch routes a chat event to the right handler. It never panics out:
// one bad interaction must not take down event processing.
func (e *Engine) Dispatch(ctx context.Context, m models.Message) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler_panic", "chat", m.Chat, "msg_id", m.ID, "panic", r)
		}
	}()
	if !m.Outgoing {
		telemetry.EventsHandled.WithLabelValues("incoming").Inc()
		e.HandleIncoming(ctx, m)
		return
	}
	switch {
	case toggleRe.MatchString(m.Text):
		telemetry.EventsHandled.WithLabelValues("toggle").Inc()
		e.HandleToggle(ctx, m)
	case squashRe.MatchString(m.Text):
		telemetry.EventsHandled.WithLabelValues("squash").Inc()
		e.HandleSquash(ctx, m)
	default:
		telemetry.EventsHandled.WithLabelValues("outgoing").Inc()
		e.HandleOutgoing(ctx, m)
	}
}

// HandleIncoming repairs the chain boundary when someone else's message
// arrives in a chat: an open chain would visually interleave with it, so
// the chain must stop growing and look finished.
func (e *Engine) HandleIncoming(ctx context.Context, m models.Message) {
	if !e.Enabled() {
		return
	}
	mu := e.locks.Get(m.Chat)
	mu.Lock()
	defer mu.Unlock()
	if err := e.tracker.Close(ctx, m.Chat); err != nil {
		logger.Warn("boundary_close_failed", "chat", m.Chat, "error", err)
	}
}

// HandleOutgoing is the real-time chain maintenance path for a newly sent
// message: merge into an open chain, rotate when the chain is full, or
// start a fresh chain.
func (e *Engine) HandleOutgoing(ctx context.Context, m models.Message) {
	if IsCommand(m.Text) {
		return
	}
	logger.Debug("outgoing_message", "chat", m.Chat, "msg_id", m.ID)
	if !e.Enabled() || e.opts.DryRun {
		return
	}
	mu := e.locks.Get(m.Chat)
	mu.Lock()
	defer mu.Unlock()

	if !m.PlainText() {
		// media/forwards break continuity; finish the open chain
		if err := e.tracker.Close(ctx, m.Chat); err != nil {
			logger.Warn("continuity_close_failed", "chat", m.Chat, "error", err)
		}
		return
	}

	prev, ok := e.previous(ctx, m)
	if ok && prev.Outgoing && prev.PlainText() && chain.HasMarker(prev.Text) {
		e.merge(ctx, prev, m)
		return
	}
	e.startChain(ctx, m)
}

// previous fetches the message immediately preceding m in store order.
func (e *Engine) previous(ctx context.Context, m models.Message) (models.Message, bool) {
	msgs, err := e.st.Recent(ctx, m.Chat, store.Query{Limit: 1, BeforeID: m.ID})
	if err != nil {
		logger.Warn("previous_fetch_failed", "chat", m.Chat, "error", err)
		return models.Message{}, false
	}
	if len(msgs) == 0 {
		return models.Message{}, false
	}
	return msgs[0], true
}

// merge folds m into the open chain anchored at prev, or rotates the
// chain when the merged text would exceed the length limit.
func (e *Engine) merge(ctx context.Context, prev, m models.Message) {
	cleanPrev := chain.Strip(prev.Text)
	merged := chain.Append(cleanPrev + "\n" + m.Text)

	if len(merged) > e.opts.MaxMessageLen {
		// size-triggered rotation: close the full chain, anchor a new one
		// at the triggering message
		if err := e.st.Edit(ctx, m.Chat, prev.ID, cleanPrev); err != nil && !store.Ignorable(err) {
			logger.Warn("rotation_close_failed", "chat", m.Chat, "msg_id", prev.ID, "error", err)
		}
		telemetry.ChainsRotated.Inc()
		logger.Info("chain_rotated", "chat", m.Chat, "old_anchor", prev.ID, "new_anchor", m.ID)
		e.startChain(ctx, m)
		return
	}

	// Only ErrNotModified may fall through here: it means the anchor already
	// holds the merged text, so deleting m loses nothing. A rate-limited
	// edit left m's content off the anchor; deleting m then would destroy
	// it, so any other failure abandons the merge and re-anchors at m.
	if merged != prev.Text {
		if err := e.st.Edit(ctx, m.Chat, prev.ID, merged); err != nil && !errors.Is(err, store.ErrNotModified) {
			logger.Warn("merge_failed", "chat", m.Chat, "anchor", prev.ID, "error", err)
			e.startChain(ctx, m)
			return
		}
	}

	if err := e.SafeDelete(ctx, m.Chat, []models.Message{m}); err != nil {
		// the anchor already holds m's text; undo the merge so the chat
		// is not left with the content duplicated, then re-anchor at m
		logger.Error("merge_delete_failed", "chat", m.Chat, "msg_id", m.ID, "error", err)
		if err := e.st.Edit(ctx, m.Chat, prev.ID, cleanPrev); err != nil && !store.Ignorable(err) {
			logger.Warn("merge_undo_failed", "chat", m.Chat, "anchor", prev.ID, "error", err)
		}
		e.startChain(ctx, m)
		return
	}
	telemetry.Merges.Inc()
	logger.Info("merged", "chat", m.Chat, "anchor", prev.ID, "msg_id", m.ID)
}

// startChain marks m as the anchor of a fresh chain of length 1.
func (e *Engine) startChain(ctx context.Context, m models.Message) {
	if err := e.st.Edit(ctx, m.Chat, m.ID, chain.Append(m.Text)); err != nil {
		if store.Ignorable(err) {
			return
		}
		logger.Warn("chain_start_failed", "chat", m.Chat, "msg_id", m.ID, "error", err)
		return
	}
	telemetry.ChainsStarted.Inc()
	logger.Info("chain_started", "chat", m.Chat, "msg_id", m.ID)
}
