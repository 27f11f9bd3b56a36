package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"

	"squashd/pkg/logger"
	"squashd/pkg/models"
	"squashd/pkg/telemetry"
)

// Bridge is a Store implementation speaking JSON request/reply over NATS
// to a chat bridge process. Subjects are <prefix>.send, <prefix>.edit,
// <prefix>.delete and <prefix>.history.
type Bridge struct {
	nc      *nats.Conn
	prefix  string
	timeout time.Duration
	limiter *rate.Limiter
}

// BridgeOptions configures a Bridge client.
type BridgeOptions struct {
	SubjectPrefix string
	RPCTimeout    time.Duration
	// RPS/Burst bound the outbound call rate; zero disables local limiting
	// (the bridge still reports rate_limited on its own).
	RPS   float64
	Burst int
}

// NewBridge wraps an established NATS connection.
func NewBridge(nc *nats.Conn, opts BridgeOptions) *Bridge {
	prefix := opts.SubjectPrefix
	if prefix == "" {
		prefix = "chat"
	}
	timeout := opts.RPCTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var lim *rate.Limiter
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return &Bridge{nc: nc, prefix: prefix, timeout: timeout, limiter: lim}
}

type sendRequest struct {
	Chat string `json:"chat"`
	Text string `json:"text"`
}

type editRequest struct {
	Chat string `json:"chat"`
	ID   string `json:"id"`
	Text string `json:"text"`
}

type deleteRequest struct {
	Chat string   `json:"chat"`
	IDs  []string `json:"ids"`
}

type historyRequest struct {
	Chat     string `json:"chat"`
	FromSelf bool   `json:"from_self,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	BeforeID string `json:"before_id,omitempty"`
}

type bridgeReply struct {
	OK        bool             `json:"ok"`
	ErrorCode string           `json:"error_code,omitempty"`
	Error     string           `json:"error,omitempty"`
	Message   *models.Message  `json:"message,omitempty"`
	Messages  []models.Message `json:"messages,omitempty"`
}

// replyError maps bridge error codes onto the store taxonomy.
func replyError(op string, r bridgeReply) error {
	if r.OK {
		return nil
	}
	switch r.ErrorCode {
	case "rate_limited":
		telemetry.StoreErrors.WithLabelValues("rate_limited").Inc()
		return fmt.Errorf("%s: %w", op, ErrRateLimited)
	case "not_modified":
		return fmt.Errorf("%s: %w", op, ErrNotModified)
	case "not_found":
		telemetry.StoreErrors.WithLabelValues("not_found").Inc()
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	telemetry.StoreErrors.WithLabelValues("bridge").Inc()
	return fmt.Errorf("%s: bridge error: %s", op, r.Error)
}

func (b *Bridge) call(ctx context.Context, op string, req any, out *bridgeReply) error {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", op, err)
	}
	cctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	msg, err := b.nc.RequestWithContext(cctx, b.prefix+"."+op, data)
	if err != nil {
		telemetry.StoreErrors.WithLabelValues("transport").Inc()
		logger.Warn("bridge_request_failed", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(msg.Data, out); err != nil {
		return fmt.Errorf("%s: decode reply: %w", op, err)
	}
	return replyError(op, *out)
}

// Send posts a new outgoing message to the chat.
func (b *Bridge) Send(ctx context.Context, chat, text string) (models.Message, error) {
	var r bridgeReply
	if err := b.call(ctx, "send", sendRequest{Chat: chat, Text: text}, &r); err != nil {
		return models.Message{}, err
	}
	if r.Message == nil {
		return models.Message{}, fmt.Errorf("send: bridge reply missing message")
	}
	return *r.Message, nil
}

// Edit replaces a message's text in place.
func (b *Bridge) Edit(ctx context.Context, chat, msgID, text string) error {
	var r bridgeReply
	return b.call(ctx, "edit", editRequest{Chat: chat, ID: msgID, Text: text}, &r)
}

// Delete removes the given messages from the chat.
func (b *Bridge) Delete(ctx context.Context, chat string, msgIDs []string) error {
	if len(msgIDs) == 0 {
		return nil
	}
	var r bridgeReply
	return b.call(ctx, "delete", deleteRequest{Chat: chat, IDs: msgIDs}, &r)
}

// Recent fetches recent messages, newest first.
func (b *Bridge) Recent(ctx context.Context, chat string, q Query) ([]models.Message, error) {
	var r bridgeReply
	req := historyRequest{Chat: chat, FromSelf: q.FromSelf, Limit: q.Limit, BeforeID: q.BeforeID}
	if err := b.call(ctx, "history", req, &r); err != nil {
		return nil, err
	}
	return r.Messages, nil
}
