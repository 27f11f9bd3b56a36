package store

import (
	"context"
	"errors"

	"squashd/pkg/models"
)

// Sentinel errors for store call classification. ErrRateLimited and
// ErrNotModified are "ignorable": the operation did not happen but the
// remote state is consistent, so callers may abandon the attempt without
// repair. Everything else is a real failure.
var (
	// ErrRateLimited signals a transient transport throttle.
	ErrRateLimited = errors.New("store: rate limited")
	// ErrNotModified signals an edit whose text equals the current text.
	ErrNotModified = errors.New("store: message not modified")
	// ErrNotFound signals an unknown message or chat.
	ErrNotFound = errors.New("store: message not found")
)

// Ignorable reports whether a store failure may be logged and dropped
// without leaving inconsistent chain state.
func Ignorable(err error) bool {
	return errors.Is(err, ErrNotModified) || errors.Is(err, ErrRateLimited)
}

// Query filters a Recent call. Results are returned newest first, walking
// backward from (and excluding) BeforeID when set.
type Query struct {
	// FromSelf restricts results to outgoing messages.
	FromSelf bool
	// Limit bounds the number of messages returned (0 means transport
	// default).
	Limit int
	// BeforeID starts the backward walk immediately before this message.
	BeforeID string
}

// Store is the chat transport the engine calls into. Implementations must
// be safe for concurrent use; every call is a potential suspension point
// and may fail transiently.
type Store interface {
	Send(ctx context.Context, chat, text string) (models.Message, error)
	Edit(ctx context.Context, chat, msgID, text string) error
	Delete(ctx context.Context, chat string, msgIDs []string) error
	Recent(ctx context.Context, chat string, q Query) ([]models.Message, error)
}
