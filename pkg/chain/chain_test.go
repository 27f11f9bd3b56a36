package chain

import (
	"context"
	"testing"

	"squashd/pkg/models"
	"squashd/pkg/store"
)

func TestMarkerOps(t *testing.T) {
	if HasMarker("hello") {
		t.Fatalf("plain text should not carry the marker")
	}
	marked := Append("hello")
	if marked != "hello\n<<<" {
		t.Fatalf("unexpected marked text: %q", marked)
	}
	if !HasMarker(marked) {
		t.Fatalf("appended marker not detected")
	}
	if got := Strip(marked); got != "hello" {
		t.Fatalf("strip got %q, want %q", got, "hello")
	}
	// strip is a no-op on unmarked text
	if got := Strip("hello"); got != "hello" {
		t.Fatalf("strip changed unmarked text: %q", got)
	}
	// marker in the middle does not count as open
	if HasMarker("a\n<<<\nb") {
		t.Fatalf("mid-text marker must not count as a suffix")
	}
}

func TestTrackerAnchorAndClose(t *testing.T) {
	st := store.NewMemory()
	anchor := st.Seed(models.Message{Chat: "c1", Text: Append("first"), Outgoing: true})
	st.Seed(models.Message{Chat: "c1", Text: "reply", Outgoing: false})

	tr := New(st, 10)
	ctx := context.Background()

	open, err := tr.IsOpen(ctx, "c1")
	if err != nil || !open {
		t.Fatalf("IsOpen = %v, %v; want open", open, err)
	}
	got, ok, err := tr.Anchor(ctx, "c1")
	if err != nil || !ok || got.ID != anchor.ID {
		t.Fatalf("Anchor = %+v, %v, %v; want %s", got, ok, err, anchor.ID)
	}

	if err := tr.Close(ctx, "c1"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	m, _ := st.Get("c1", anchor.ID)
	if m.Text != "first" {
		t.Fatalf("anchor text after close: %q", m.Text)
	}
	open, err = tr.IsOpen(ctx, "c1")
	if err != nil || open {
		t.Fatalf("chain still open after close")
	}
}

func TestTrackerCloseNoChainIsNoop(t *testing.T) {
	st := store.NewMemory()
	st.Seed(models.Message{Chat: "c1", Text: "plain", Outgoing: true})

	tr := New(st, 10)
	edits := st.EditCalls
	if err := tr.Close(context.Background(), "c1"); err != nil {
		t.Fatalf("Close with no chain: %v", err)
	}
	if st.EditCalls != edits {
		t.Fatalf("Close issued an edit with no open chain")
	}
}

func TestTrackerWindowBound(t *testing.T) {
	st := store.NewMemory()
	st.Seed(models.Message{Chat: "c1", Text: Append("old anchor"), Outgoing: true})
	// push the anchor past a window of 3
	for i := 0; i < 3; i++ {
		st.Seed(models.Message{Chat: "c1", Text: "filler", Outgoing: true})
	}

	tr := New(st, 3)
	open, err := tr.IsOpen(context.Background(), "c1")
	if err != nil {
		t.Fatalf("IsOpen: %v", err)
	}
	if open {
		t.Fatalf("anchor outside the scan window must be invisible")
	}
}

func TestTrackerCloseIgnorableEdit(t *testing.T) {
	st := store.NewMemory()
	anchor := st.Seed(models.Message{Chat: "c1", Text: Append("text"), Outgoing: true})
	st.FailEditID = anchor.ID
	st.EditErr = store.ErrRateLimited

	tr := New(st, 10)
	if err := tr.Close(context.Background(), "c1"); err != nil {
		t.Fatalf("rate-limited close should be swallowed, got %v", err)
	}
}
