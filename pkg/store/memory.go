package store

import (
	"context"
	"fmt"
	"sync"

	"squashd/pkg/models"
)

// Memory is an in-process Store used by tests and by dry-run rehearsals.
// Messages are kept per chat in chronological order. Failure injection
// fields let tests exercise the engine's error paths.
type Memory struct {
	mu    sync.Mutex
	chats map[string][]models.Message
	nowTS int64
	seq   int

	// FailEditID makes Edit calls targeting that message fail with EditErr.
	FailEditID string
	// EditErr is the error returned for a matching failed edit.
	EditErr error
	// DeleteErr, when set, makes all Delete calls fail.
	DeleteErr error

	// call counters
	SendCalls    int
	EditCalls    int
	DeleteCalls  int
	HistoryCalls int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{chats: make(map[string][]models.Message)}
}

// Seed inserts a message as-is, assigning an ID and timestamp when absent.
func (s *Memory) Seed(m models.Message) models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		s.seq++
		m.ID = fmt.Sprintf("m%d", s.seq)
	}
	if m.TS == 0 {
		s.nowTS++
		m.TS = s.nowTS
	} else if m.TS > s.nowTS {
		s.nowTS = m.TS
	}
	s.chats[m.Chat] = append(s.chats[m.Chat], m)
	return m
}

// Messages returns a snapshot of a chat in chronological order.
func (s *Memory) Messages(chat string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.chats[chat]...)
}

// Get looks a message up by ID.
func (s *Memory) Get(chat, id string) (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.chats[chat] {
		if m.ID == id {
			return m, true
		}
	}
	return models.Message{}, false
}

func (s *Memory) Send(ctx context.Context, chat, text string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SendCalls++
	s.seq++
	s.nowTS++
	m := models.Message{
		ID:       fmt.Sprintf("m%d", s.seq),
		Chat:     chat,
		Sender:   "self",
		Text:     text,
		TS:       s.nowTS,
		Outgoing: true,
	}
	s.chats[chat] = append(s.chats[chat], m)
	return m, nil
}

func (s *Memory) Edit(ctx context.Context, chat, msgID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EditCalls++
	if s.FailEditID != "" && msgID == s.FailEditID {
		if s.EditErr != nil {
			return s.EditErr
		}
		return fmt.Errorf("edit %s: injected failure", msgID)
	}
	msgs := s.chats[chat]
	for i := range msgs {
		if msgs[i].ID == msgID {
			if msgs[i].Text == text {
				return fmt.Errorf("edit %s: %w", msgID, ErrNotModified)
			}
			msgs[i].Text = text
			return nil
		}
	}
	return fmt.Errorf("edit %s: %w", msgID, ErrNotFound)
}

func (s *Memory) Delete(ctx context.Context, chat string, msgIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DeleteCalls++
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	victims := make(map[string]struct{}, len(msgIDs))
	for _, id := range msgIDs {
		victims[id] = struct{}{}
	}
	kept := s.chats[chat][:0]
	for _, m := range s.chats[chat] {
		if _, gone := victims[m.ID]; !gone {
			kept = append(kept, m)
		}
	}
	s.chats[chat] = kept
	return nil
}

func (s *Memory) Recent(ctx context.Context, chat string, q Query) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HistoryCalls++
	msgs := s.chats[chat]
	// find the starting point: index just before BeforeID, or the end
	start := len(msgs) - 1
	if q.BeforeID != "" {
		start = -1
		for i := range msgs {
			if msgs[i].ID == q.BeforeID {
				start = i - 1
				break
			}
		}
	}
	var out []models.Message
	for i := start; i >= 0; i-- {
		if q.FromSelf && !msgs[i].Outgoing {
			continue
		}
		out = append(out, msgs[i])
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}
