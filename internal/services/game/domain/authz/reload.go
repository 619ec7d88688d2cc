package authz

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce waits for writes to settle before reloading.
const reloadDebounce = 500 * time.Millisecond

// Reloader watches a policy file and swaps the gate's policy when it changes.
// A policy that fails to load is logged and the previous one stays active.
type Reloader struct {
	watcher  *fsnotify.Watcher
	gate     *Gate
	path     string
	debounce time.Duration
	reloaded chan error
}

// NewReloader watches the directory holding path so editors that replace the
// file are still observed.
func NewReloader(gate *Gate, path string) (*Reloader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat policy %q: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}
	return &Reloader{
		watcher:  watcher,
		gate:     gate,
		path:     filepath.Clean(path),
		debounce: reloadDebounce,
		reloaded: make(chan error, 1),
	}, nil
}

// Reloaded delivers the outcome of each reload attempt: nil when the new
// policy is active, the load error when the previous one was kept. Outcomes
// are dropped while an earlier one is unread.
func (r *Reloader) Reloaded() <-chan error {
	return r.reloaded
}

// Run blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(r.debounce, r.reload)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("policy watcher error: %v", err)
		}
	}
}

func (r *Reloader) reload() {
	policy, err := LoadPolicy(r.path)
	if err != nil {
		log.Printf("policy reload failed, keeping previous policy: %v", err)
	} else {
		r.gate.SetPolicy(policy)
		log.Printf("policy reloaded: %d groups", len(policy.Groups))
	}
	select {
	case r.reloaded <- err:
	default:
	}
}
