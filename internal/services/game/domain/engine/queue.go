package engine

import (
	"sync"

	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

const defaultQueueCapacity = 1024

// Queue stages submitted commands in a fixed-size ring. It is safe for
// concurrent producers and a single consumer.
type Queue struct {
	mu          sync.Mutex
	data        []command.Envelope
	head        int
	tail        int
	count       int
	issuerLimit int
	perIssuer   map[world.PlayerID]int
}

// NewQueue builds a ring with the given capacity. A positive issuerLimit caps
// how many commands one issuer may have staged at once.
func NewQueue(capacity, issuerLimit int) *Queue {
	if capacity < 1 {
		capacity = defaultQueueCapacity
	}
	return &Queue{
		data:        make([]command.Envelope, capacity),
		issuerLimit: issuerLimit,
		perIssuer:   make(map[world.PlayerID]int),
	}
}

// Push stages env.
func (q *Queue) Push(env command.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.data) {
		return ErrQueueFull
	}
	issuer := env.Header.Issuer
	if q.issuerLimit > 0 && q.perIssuer[issuer] >= q.issuerLimit {
		return ErrIssuerLimit
	}
	q.data[q.tail] = env
	q.tail = (q.tail + 1) % len(q.data)
	q.count++
	q.perIssuer[issuer]++
	return nil
}

// Drain returns every staged command in arrival order and empties the ring.
func (q *Queue) Drain() []command.Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil
	}
	out := make([]command.Envelope, q.count)
	for i := range out {
		idx := (q.head + i) % len(q.data)
		out[i] = q.data[idx]
		q.data[idx] = command.Envelope{}
	}
	q.head = 0
	q.tail = 0
	q.count = 0
	clear(q.perIssuer)
	return out
}

// Len reports the number of staged commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Capacity reports the maximum number of staged commands.
func (q *Queue) Capacity() int {
	return len(q.data)
}
