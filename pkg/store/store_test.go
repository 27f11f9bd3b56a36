package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"squashd/pkg/models"
)

func TestIgnorable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{ErrNotModified, true},
		{ErrRateLimited, true},
		{fmt.Errorf("edit m1: %w", ErrNotModified), true},
		{ErrNotFound, false},
		{errors.New("network down"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := Ignorable(c.err); got != c.want {
			t.Fatalf("Ignorable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestMemoryRecentNewestFirst(t *testing.T) {
	st := NewMemory()
	a := st.Seed(models.Message{Chat: "c1", Text: "a", Outgoing: true})
	b := st.Seed(models.Message{Chat: "c1", Text: "b", Outgoing: false, Sender: "them"})
	c := st.Seed(models.Message{Chat: "c1", Text: "c", Outgoing: true})

	got, err := st.Recent(context.Background(), "c1", Query{})
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 || got[0].ID != c.ID || got[2].ID != a.ID {
		t.Fatalf("recent order wrong: %+v", got)
	}

	self, err := st.Recent(context.Background(), "c1", Query{FromSelf: true})
	if err != nil || len(self) != 2 {
		t.Fatalf("from-self filter: %d msgs, %v", len(self), err)
	}
	for _, m := range self {
		if !m.Outgoing {
			t.Fatalf("from-self returned incoming message %s", m.ID)
		}
	}

	before, err := st.Recent(context.Background(), "c1", Query{BeforeID: c.ID, Limit: 1})
	if err != nil || len(before) != 1 || before[0].ID != b.ID {
		t.Fatalf("before-id walk: %+v, %v", before, err)
	}
}

func TestMemoryEditSemantics(t *testing.T) {
	st := NewMemory()
	m := st.Seed(models.Message{Chat: "c1", Text: "hello", Outgoing: true})
	ctx := context.Background()

	if err := st.Edit(ctx, "c1", m.ID, "changed"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := st.Edit(ctx, "c1", m.ID, "changed"); !errors.Is(err, ErrNotModified) {
		t.Fatalf("identical edit = %v, want ErrNotModified", err)
	}
	if err := st.Edit(ctx, "c1", "ghost", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing edit = %v, want ErrNotFound", err)
	}
}

func TestMemorySendAndDelete(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	m, err := st.Send(ctx, "c1", "hi")
	if err != nil || !m.Outgoing || m.ID == "" {
		t.Fatalf("send = %+v, %v", m, err)
	}
	if err := st.Delete(ctx, "c1", []string{m.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(st.Messages("c1")) != 0 {
		t.Fatalf("message survived delete")
	}
}
