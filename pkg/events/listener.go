package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nats-io/nats.go"

	"squashd/pkg/logger"
	"squashd/pkg/models"
	"squashd/pkg/telemetry"
)

// ChatEvent is the payload published by the chat bridge on
// <prefix>.events for every message that appears in any chat.
type ChatEvent struct {
	ID      string         `json:"id"`
	TS      int64          `json:"ts"`
	Message models.Message `json:"message"`
}

// Handler consumes decoded chat messages.
type Handler interface {
	Dispatch(ctx context.Context, m models.Message)
}

// Listener subscribes to the bridge's event subject and feeds events
// through a bounded queue into the handler, with a small worker pool so
// different chats progress concurrently (per-chat ordering is enforced by
// the engine's chat locks, not here).
type Listener struct {
	nc      *nats.Conn
	subject string
	q       *Queue
	h       Handler
	workers int
}

// NewListener wires a listener over an established NATS connection.
func NewListener(nc *nats.Conn, subjectPrefix string, q *Queue, h Handler, workers int) *Listener {
	if subjectPrefix == "" {
		subjectPrefix = "chat"
	}
	if workers <= 0 {
		workers = 8
	}
	return &Listener{nc: nc, subject: subjectPrefix + ".events", q: q, h: h, workers: workers}
}

// Run subscribes and processes events until ctx is cancelled. It returns
// the subscription error, if any; handler failures never propagate.
func (l *Listener) Run(ctx context.Context) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.q.RunWorker(stop, func(payload []byte) {
				l.handle(ctx, payload)
			})
		}()
	}

	sub, err := l.nc.Subscribe(l.subject, func(msg *nats.Msg) {
		if err := l.q.TryEnqueue(msg.Data); err != nil {
			telemetry.EventsDropped.Inc()
			logger.Warn("event_dropped", "subject", l.subject, "error", err)
		}
	})
	if err != nil {
		close(stop)
		wg.Wait()
		return err
	}
	logger.Info("listening", "subject", l.subject, "workers", l.workers)

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		logger.Warn("unsubscribe_failed", "subject", l.subject, "error", err)
	}
	close(stop)
	wg.Wait()
	return nil
}

// handle decodes one event and dispatches it. Decode failures are logged
// and dropped; a malformed event must not stall the stream.
func (l *Listener) handle(ctx context.Context, payload []byte) {
	var ev ChatEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		logger.Warn("event_decode_failed", "error", err)
		return
	}
	if ev.Message.ID == "" || ev.Message.Chat == "" {
		logger.Warn("event_incomplete", "event_id", ev.ID)
		return
	}
	l.h.Dispatch(ctx, ev.Message)
}
