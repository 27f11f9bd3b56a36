package chain

import (
	"context"
	"strings"

	"squashd/pkg/logger"
	"squashd/pkg/models"
	"squashd/pkg/store"
	"squashd/pkg/telemetry"
)

// Marker is the boundary sentinel appended to an open chain's anchor text.
// It is a fixed constant, never user-enterable through the command surface,
// and its presence as a suffix is the only persisted chain state.
const Marker = "\n<<<"

// HasMarker reports whether text ends with the boundary marker.
func HasMarker(text string) bool { return strings.HasSuffix(text, Marker) }

// Strip removes a trailing boundary marker, if present.
func Strip(text string) string { return strings.TrimSuffix(text, Marker) }

// Append appends the boundary marker to text.
func Append(text string) string { return text + Marker }

// Tracker derives chain state for a chat by querying the message store.
// It holds no in-memory table: the chain is open exactly when a recent
// outgoing message carries the marker suffix, which makes the state
// crash-safe and recoverable at any time.
type Tracker struct {
	st     store.Store
	window int
}

// New returns a Tracker scanning at most window recent self messages.
func New(st store.Store, window int) *Tracker {
	if window <= 0 {
		window = 10
	}
	return &Tracker{st: st, window: window}
}

// anchor returns the most recent marked self message within the window.
func (t *Tracker) anchor(ctx context.Context, chat string) (models.Message, bool, error) {
	msgs, err := t.st.Recent(ctx, chat, store.Query{FromSelf: true, Limit: t.window})
	if err != nil {
		return models.Message{}, false, err
	}
	for _, m := range msgs {
		if HasMarker(m.Text) {
			return m, true, nil
		}
	}
	return models.Message{}, false, nil
}

// IsOpen reports whether the chat has an open chain.
func (t *Tracker) IsOpen(ctx context.Context, chat string) (bool, error) {
	_, ok, err := t.anchor(ctx, chat)
	return ok, err
}

// Anchor returns the open chain's anchor message, if any.
func (t *Tracker) Anchor(ctx context.Context, chat string) (models.Message, bool, error) {
	return t.anchor(ctx, chat)
}

// Close strips the marker from the chat's open chain, if one exists within
// the scan window. No marked message in the window means the chain is
// already closed and Close is a silent no-op.
func (t *Tracker) Close(ctx context.Context, chat string) error {
	m, ok, err := t.anchor(ctx, chat)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := t.st.Edit(ctx, chat, m.ID, Strip(m.Text)); err != nil {
		if store.Ignorable(err) {
			logger.Debug("chain_close_ignorable", "chat", chat, "msg_id", m.ID, "error", err)
			return nil
		}
		logger.Warn("chain_close_failed", "chat", chat, "msg_id", m.ID, "error", err)
		return err
	}
	telemetry.ChainsClosed.Inc()
	logger.Info("chain_closed", "chat", chat, "msg_id", m.ID)
	return nil
}
