package engine

import (
	"sort"
	"sync"
	"time"
)

// Pending tracks commands a participant sent and is still waiting on. Expiry
// only tells the caller to drop its local preview; it never retracts a
// command the authority may still publish.
type Pending struct {
	mu       sync.Mutex
	timeout  time.Duration
	requests map[uint32]time.Time
}

// NewPending tracks requests that expire after timeout.
func NewPending(timeout time.Duration) *Pending {
	return &Pending{timeout: timeout, requests: make(map[uint32]time.Time)}
}

// Track records a request sent at now.
func (p *Pending) Track(requestID uint32, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests[requestID] = now.Add(p.timeout)
}

// Resolve forgets a request and reports whether it was still pending.
func (p *Pending) Resolve(requestID uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.requests[requestID]; !ok {
		return false
	}
	delete(p.requests, requestID)
	return true
}

// Expire removes and returns requests whose deadline passed, oldest first.
func (p *Pending) Expire(now time.Time) []uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var expired []uint32
	for id, deadline := range p.requests {
		if !now.Before(deadline) {
			expired = append(expired, id)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		a, b := p.requests[expired[i]], p.requests[expired[j]]
		if a.Equal(b) {
			return expired[i] < expired[j]
		}
		return a.Before(b)
	})
	for _, id := range expired {
		delete(p.requests, id)
	}
	return expired
}

// Len reports how many requests are pending.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}
