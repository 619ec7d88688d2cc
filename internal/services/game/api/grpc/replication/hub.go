package replication

import (
	"errors"
	"sync"

	"github.com/louisbranch/parkline/internal/services/game/domain/engine"
	"github.com/louisbranch/parkline/internal/services/game/domain/journal"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

const defaultSubscriberBuffer = 256

var (
	// ErrSlowConsumer indicates a subscriber whose buffer filled up.
	ErrSlowConsumer = errors.New("subscriber fell behind")
	// ErrHubClosed indicates the hub stopped before the subscriber did.
	ErrHubClosed = errors.New("hub closed")
)

// Update is one item a subscriber receives. Exactly one field is set.
type Update struct {
	Entry *journal.Entry
	Tick  *journal.TickMark
	Reply *engine.Reply
}

// Subscription receives updates until it ends. Updates is closed when the
// subscription ends; Err then reports why.
type Subscription struct {
	hub     *Hub
	player  world.PlayerID
	replies bool
	ch      chan Update

	mu  sync.Mutex
	err error
}

// Updates returns the update channel.
func (s *Subscription) Updates() <-chan Update {
	return s.ch
}

// Err returns why the subscription ended, or nil while it is live or after
// Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the subscription.
func (s *Subscription) Close() {
	s.hub.remove(s, nil)
}

// Hub fans dispatcher output out to subscribers. It implements
// engine.Publisher and never blocks the dispatcher.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers an observer of entries and ticks.
func (h *Hub) Subscribe(buffer int) *Subscription {
	return h.add(&Subscription{hub: h, ch: make(chan Update, bufferSize(buffer))})
}

// SubscribePlayer registers a participant: entries, ticks and the replies
// addressed to player.
func (h *Hub) SubscribePlayer(player world.PlayerID, buffer int) *Subscription {
	return h.add(&Subscription{hub: h, player: player, replies: true, ch: make(chan Update, bufferSize(buffer))})
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// PublishEntry implements engine.Publisher.
func (h *Hub) PublishEntry(e journal.Entry) {
	h.broadcast(Update{Entry: &e}, func(*Subscription) bool { return true })
}

// PublishTick implements engine.Publisher.
func (h *Hub) PublishTick(mark journal.TickMark) {
	h.broadcast(Update{Tick: &mark}, func(*Subscription) bool { return true })
}

// Reply implements engine.Publisher.
func (h *Hub) Reply(issuer world.PlayerID, reply engine.Reply) {
	h.broadcast(Update{Reply: &reply}, func(s *Subscription) bool {
		return s.replies && s.player == issuer
	})
}

// Fail ends every subscription with err.
func (h *Hub) Fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		h.end(sub, err)
	}
}

// Close ends every subscription and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subs {
		h.end(sub, ErrHubClosed)
	}
}

func (h *Hub) add(sub *Subscription) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.err = ErrHubClosed
		close(sub.ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

func (h *Hub) broadcast(u Update, match func(*Subscription) bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if !match(sub) {
			continue
		}
		select {
		case sub.ch <- u:
		default:
			h.end(sub, ErrSlowConsumer)
		}
	}
}

func (h *Hub) remove(sub *Subscription, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.end(sub, err)
}

// end must be called with h.mu held.
func (h *Hub) end(sub *Subscription, err error) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	sub.mu.Lock()
	sub.err = err
	sub.mu.Unlock()
	close(sub.ch)
}

func bufferSize(n int) int {
	if n <= 0 {
		return defaultSubscriberBuffer
	}
	return n
}

var _ engine.Publisher = (*Hub)(nil)
