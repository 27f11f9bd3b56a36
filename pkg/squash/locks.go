package squash

import "sync"

// ChatLocks is a lazily-populated registry of per-chat mutexes. The lock
// for a chat serializes every read-modify-write sequence touching that
// chat's chain state; locks are never destroyed (growth is bounded by the
// number of distinct chats seen).
type ChatLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

// NewChatLocks returns an empty registry.
func NewChatLocks() *ChatLocks {
	return &ChatLocks{m: make(map[string]*sync.Mutex)}
}

// Get returns the mutex for a chat, creating it on first use.
func (l *ChatLocks) Get(chat string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	mu, ok := l.m[chat]
	if !ok {
		mu = &sync.Mutex{}
		l.m[chat] = mu
	}
	return mu
}

// Len reports how many chat locks exist.
func (l *ChatLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
