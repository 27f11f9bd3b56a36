package archive

import (
	"errors"
	"testing"
	"time"

	"squashd/pkg/models"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRecordAndList(t *testing.T) {
	l := openTestLog(t)

	msgs := []models.Message{
		{ID: "m1", Chat: "c1", Sender: "self", Text: "first", TS: 100},
		{ID: "m2", Chat: "c1", Sender: "self", Text: "second", TS: 200},
		{ID: "m3", Chat: "c2", Sender: "self", Text: "other chat", TS: 300},
	}
	if err := l.Record(msgs); err != nil {
		t.Fatalf("record: %v", err)
	}

	recs, err := l.List("c1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("list c1 returned %d records, want 2", len(recs))
	}
	for i, want := range []string{"first", "second"} {
		if recs[i].Text != want {
			t.Fatalf("record %d text = %q, want %q", i, recs[i].Text, want)
		}
		if recs[i].RecordID == "" {
			t.Fatalf("record %d missing record id", i)
		}
		if recs[i].ArchivedTS == 0 {
			t.Fatalf("record %d missing archive timestamp", i)
		}
	}
	if recs[0].SentTS != 100 || recs[0].MessageID != "m1" {
		t.Fatalf("original message fields not preserved: %+v", recs[0])
	}

	other, err := l.List("c2", 0)
	if err != nil || len(other) != 1 {
		t.Fatalf("list c2 = %d records, %v; want 1", len(other), err)
	}
	none, err := l.List("c999", 0)
	if err != nil || len(none) != 0 {
		t.Fatalf("list unknown chat = %d records, %v; want 0", len(none), err)
	}
}

func TestListLimit(t *testing.T) {
	l := openTestLog(t)
	var msgs []models.Message
	for i := 0; i < 5; i++ {
		msgs = append(msgs, models.Message{ID: string(rune('a' + i)), Chat: "c1", Text: "x"})
	}
	if err := l.Record(msgs); err != nil {
		t.Fatalf("record: %v", err)
	}
	recs, err := l.List("c1", 3)
	if err != nil || len(recs) != 3 {
		t.Fatalf("limited list = %d records, %v; want 3", len(recs), err)
	}
}

func TestRecordEmptyIsNoop(t *testing.T) {
	l := openTestLog(t)
	if err := l.Record(nil); err != nil {
		t.Fatalf("record nil: %v", err)
	}
}

func TestRecordAfterCloseFails(t *testing.T) {
	l, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	err = l.Record([]models.Message{{ID: "m1", Chat: "c1", Text: "x"}})
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("record after close = %v, want ErrWriteFailed", err)
	}
	if l.Ready() {
		t.Fatalf("closed log reports ready")
	}
}

func TestPruneBefore(t *testing.T) {
	l := openTestLog(t)

	if err := l.Record([]models.Message{{ID: "m1", Chat: "c1", Text: "old"}}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.Record([]models.Message{{ID: "m2", Chat: "c1", Text: "older"}}); err != nil {
		t.Fatalf("record: %v", err)
	}

	// a far-future cutoff sweeps everything
	cut := time.Now().UTC().UnixNano() + int64(time.Hour)
	n, err := l.PruneBefore(cut)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 2 {
		t.Fatalf("pruned %d records, want 2", n)
	}
	recs, err := l.List("c1", 0)
	if err != nil || len(recs) != 0 {
		t.Fatalf("list after prune = %d records, %v; want 0", len(recs), err)
	}

	// nothing left to prune
	n, err = l.PruneBefore(cut)
	if err != nil || n != 0 {
		t.Fatalf("second prune = %d, %v; want 0", n, err)
	}
}

func TestPruneKeepsNewRecords(t *testing.T) {
	l := openTestLog(t)
	cut := time.Now().UTC().UnixNano() - int64(time.Hour)
	if err := l.Record([]models.Message{{ID: "m1", Chat: "c1", Text: "fresh"}}); err != nil {
		t.Fatalf("record: %v", err)
	}
	n, err := l.PruneBefore(cut)
	if err != nil || n != 0 {
		t.Fatalf("prune = %d, %v; want 0 removed", n, err)
	}
	recs, err := l.List("c1", 0)
	if err != nil || len(recs) != 1 {
		t.Fatalf("fresh record was pruned")
	}
}
