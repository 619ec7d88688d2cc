package spectator

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/louisbranch/parkline/internal/platform/timeouts"
	"github.com/louisbranch/parkline/internal/services/game/api/grpc/replication"
	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/journal"
	"github.com/louisbranch/parkline/internal/services/game/domain/money"
)

const defaultBuffer = 64

// Message is one published entry as spectators see it.
type Message struct {
	Seq    uint64      `json:"seq"`
	Tick   uint64      `json:"tick"`
	Type   string      `json:"type"`
	Issuer uint32      `json:"issuer"`
	Status string      `json:"status"`
	Cost   money.Money `json:"cost"`
	// Display is the cost formatted for the default locale.
	Display string `json:"cost_display"`
}

// Option configures a Handler.
type Option func(*Handler)

// WithBuffer sets how many entries a spectator may lag behind before it is
// disconnected.
func WithBuffer(n int) Option {
	return func(h *Handler) { h.buffer = n }
}

// WithWriteTimeout bounds each websocket write.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Handler) { h.writeTimeout = d }
}

// Handler upgrades requests to websocket spectator feeds.
type Handler struct {
	hub          *replication.Hub
	registry     *command.Registry
	upgrader     websocket.Upgrader
	buffer       int
	writeTimeout time.Duration
}

// NewHandler builds a spectator feed over hub. The registry names command
// types.
func NewHandler(hub *replication.Hub, registry *command.Registry, opts ...Option) *Handler {
	h := &Handler{
		hub:          hub,
		registry:     registry,
		buffer:       defaultBuffer,
		writeTimeout: timeouts.SpectatorWrite,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("spectator upgrade: %v", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(h.buffer)
	defer sub.Close()

	// The read loop only notices the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case u, ok := <-sub.Updates():
			if !ok {
				h.closeWith(conn, sub.Err())
				return
			}
			if u.Entry == nil {
				continue
			}
			if err := conn.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(h.message(*u.Entry)); err != nil {
				log.Printf("spectator write: %v", err)
				return
			}
		}
	}
}

func (h *Handler) message(e journal.Entry) Message {
	msg := Message{
		Seq:    e.Seq,
		Tick:   e.Tick,
		Type:   e.Type.String(),
		Issuer: uint32(e.Issuer),
	}
	if h.registry != nil {
		msg.Type = h.registry.Name(e.Type)
	}
	if res, err := e.DecodeResult(); err == nil {
		msg.Status = res.Status.String()
		msg.Cost = res.Cost
	}
	msg.Display = msg.Cost.Format("")
	return msg
}

func (h *Handler) closeWith(conn *websocket.Conn, cause error) {
	code, reason := websocket.CloseGoingAway, "server closing"
	if errors.Is(cause, replication.ErrSlowConsumer) {
		code, reason = websocket.ClosePolicyViolation, "spectator fell behind"
	}
	deadline := time.Now().Add(h.writeTimeout)
	if err := conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		log.Printf("spectator close: %v", err)
	}
}
