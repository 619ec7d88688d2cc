package replication

import (
	"errors"
	"testing"

	"github.com/louisbranch/parkline/internal/services/game/domain/engine"
	"github.com/louisbranch/parkline/internal/services/game/domain/journal"
)

func TestHubRoutesRepliesToIssuer(t *testing.T) {
	hub := NewHub()
	observer := hub.Subscribe(4)
	alice := hub.SubscribePlayer(1, 4)
	bob := hub.SubscribePlayer(2, 4)

	hub.PublishEntry(journal.Entry{Seq: 1})
	hub.Reply(2, engine.Reply{RequestID: 8})

	if got := len(observer.Updates()); got != 1 {
		t.Fatalf("observer updates = %d, want 1", got)
	}
	if got := len(alice.Updates()); got != 1 {
		t.Fatalf("alice updates = %d, want 1", got)
	}
	<-bob.Updates()
	u := <-bob.Updates()
	if u.Reply == nil || u.Reply.RequestID != 8 {
		t.Fatalf("bob update = %+v, want reply 8", u)
	}
}

func TestHubDisconnectsSlowConsumer(t *testing.T) {
	hub := NewHub()
	slow := hub.Subscribe(1)
	fast := hub.Subscribe(8)

	hub.PublishEntry(journal.Entry{Seq: 1})
	hub.PublishEntry(journal.Entry{Seq: 2})
	hub.PublishTick(journal.TickMark{Tick: 0, LastSeq: 2})

	var seqs []uint64
	for u := range slow.Updates() {
		seqs = append(seqs, u.Entry.Seq)
	}
	if len(seqs) != 1 || seqs[0] != 1 {
		t.Fatalf("slow saw %v, want [1]", seqs)
	}
	if !errors.Is(slow.Err(), ErrSlowConsumer) {
		t.Fatalf("err = %v, want %v", slow.Err(), ErrSlowConsumer)
	}
	if got := len(fast.Updates()); got != 3 {
		t.Fatalf("fast updates = %d, want 3", got)
	}
	if hub.Len() != 1 {
		t.Fatalf("len = %d, want 1", hub.Len())
	}
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(1)
	sub.Close()
	sub.Close()
	if _, ok := <-sub.Updates(); ok {
		t.Fatal("expected closed channel")
	}
	if sub.Err() != nil {
		t.Fatalf("err = %v, want nil", sub.Err())
	}

	live := hub.Subscribe(1)
	hub.Close()
	if !errors.Is(live.Err(), ErrHubClosed) {
		t.Fatalf("err = %v, want %v", live.Err(), ErrHubClosed)
	}
	late := hub.SubscribePlayer(3, 1)
	if _, ok := <-late.Updates(); ok || !errors.Is(late.Err(), ErrHubClosed) {
		t.Fatalf("late subscription err = %v, want %v", late.Err(), ErrHubClosed)
	}
}
