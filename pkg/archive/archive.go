package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	"squashd/pkg/logger"
	"squashd/pkg/models"
	"squashd/pkg/telemetry"
)

// ErrWriteFailed marks a durable-write failure. Callers holding a pending
// delete must treat it as fatal for that delete.
var ErrWriteFailed = errors.New("archive write failed")

// Log is the append-only archive of messages destroyed by the engine.
// Every deleted message has exactly one record here, written strictly
// before the delete call was issued.
type Log struct {
	db   *pebble.DB
	path string

	// seq reduces key collisions when records share a nanosecond timestamp.
	seq uint64
}

// Open opens (or creates) the archive database at the given path.
func Open(path string) (*Log, error) {
	logger.Info("opening_archive_db", "path", path)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("archive_open_failed", "path", path, "error", err)
		return nil, err
	}
	logger.Info("archive_opened", "path", path)
	return &Log{db: db, path: path}, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	if err := l.db.Close(); err != nil {
		return err
	}
	l.db = nil
	logger.Info("archive_closed")
	return nil
}

// Ready reports whether the archive is opened.
func (l *Log) Ready() bool { return l != nil && l.db != nil }

// key format: chat:<chatID>:msg:<unix_nano_padded>-<seq>
func (l *Log) key(chat string, ts int64) []byte {
	s := atomic.AddUint64(&l.seq, 1)
	return []byte(fmt.Sprintf("chat:%s:msg:%020d-%06d", chat, ts, s))
}

// Record writes archive records for the given messages in a single synced
// batch. The batch is all-or-nothing from the caller's perspective; a
// failure means none of the accompanying deletes may proceed.
func (l *Log) Record(msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if l.db == nil {
		return fmt.Errorf("%w: archive not opened", ErrWriteFailed)
	}
	now := time.Now().UTC().UnixNano()
	b := l.db.NewBatch()
	defer b.Close()
	for _, m := range msgs {
		rec := models.ArchivedMessage{
			RecordID:   uuid.NewString(),
			Chat:       m.Chat,
			MessageID:  m.ID,
			Sender:     m.Sender,
			Text:       m.Text,
			SentTS:     m.TS,
			ArchivedTS: now,
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("%w: marshal record for %s: %v", ErrWriteFailed, m.ID, err)
		}
		if err := b.Set(l.key(m.Chat, now), data, nil); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		telemetry.ArchiveWriteErrors.Inc()
		logger.Error("archive_write_failed", "count", len(msgs), "error", err)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	telemetry.MessagesArchived.Add(float64(len(msgs)))
	for _, m := range msgs {
		logger.AuditEvent("message_archived", "chat", m.Chat, "msg_id", m.ID, "sender", m.Sender)
	}
	return nil
}

// List returns archived records for a chat in archive order, up to limit
// (limit <= 0 means no limit).
func (l *Log) List(chat string, limit int) ([]models.ArchivedMessage, error) {
	if l.db == nil {
		return nil, fmt.Errorf("archive not opened")
	}
	prefix := []byte("chat:" + chat + ":msg:")
	iter, err := l.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.ArchivedMessage
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var rec models.ArchivedMessage
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("corrupt archive record at %s: %w", iter.Key(), err)
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, iter.Error()
}

// PruneBefore deletes archive records archived strictly before cutoff
// (unix nanoseconds) and returns how many were removed. Used by the
// retention runner.
func (l *Log) PruneBefore(cutoff int64) (int, error) {
	if l.db == nil {
		return 0, fmt.Errorf("archive not opened")
	}
	prefix := []byte("chat:")
	iter, err := l.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	var victims [][]byte
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var rec struct {
			ArchivedTS int64 `json:"archived_ts"`
		}
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		if rec.ArchivedTS < cutoff {
			victims = append(victims, append([]byte(nil), iter.Key()...))
		}
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}
	if len(victims) == 0 {
		return 0, nil
	}
	b := l.db.NewBatch()
	defer b.Close()
	for _, k := range victims {
		if err := b.Delete(k, nil); err != nil {
			return 0, err
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	logger.Info("archive_pruned", "count", len(victims), "cutoff", cutoff)
	return len(victims), nil
}
