package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// ErrHubClosed is returned by Connect after Close.
var ErrHubClosed = errors.New("broadcast hub is closed")

// Hub tracks the open channels of every connected client.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[Conn]struct{}
	closed  bool
	logger  *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]map[Conn]struct{}),
		logger:  logger.With(slog.String("component", "broadcast_hub")),
	}
}

// Connect registers conn under clientID.
func (h *Hub) Connect(clientID string, conn Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	set, ok := h.clients[clientID]
	if !ok {
		set = make(map[Conn]struct{})
		h.clients[clientID] = set
	}
	set[conn] = struct{}{}

	h.logger.Debug("client channel connected",
		slog.String("client_id", clientID),
		slog.Int("client_channels", len(set)))
	return nil
}

// Disconnect removes conn from clientID, dropping the client entry when it
// was the last channel. Unknown pairs are ignored.
func (h *Hub) Disconnect(clientID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(clientID, conn)
}

func (h *Hub) removeLocked(clientID string, conn Conn) bool {
	set, ok := h.clients[clientID]
	if !ok {
		return false
	}
	if _, ok := set[conn]; !ok {
		return false
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.clients, clientID)
	}
	return true
}

// snapshot copies the channels of clientID, or of every client when all is set.
func (h *Hub) snapshot(clientID string, all bool) map[string][]Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string][]Conn)
	for id, set := range h.clients {
		if !all && id != clientID {
			continue
		}
		conns := make([]Conn, 0, len(set))
		for c := range set {
			conns = append(conns, c)
		}
		out[id] = conns
	}
	return out
}

// BroadcastToClient sends payload to every channel of clientID and returns
// how many sends succeeded. A channel whose send fails is removed and closed;
// delivery to the remaining channels continues. An unknown client is a no-op.
func (h *Hub) BroadcastToClient(ctx context.Context, clientID string, payload []byte) int {
	return h.deliver(ctx, h.snapshot(clientID, false), payload)
}

// BroadcastAll sends payload to every channel of every client.
func (h *Hub) BroadcastAll(ctx context.Context, payload []byte) int {
	return h.deliver(ctx, h.snapshot("", true), payload)
}

// deliver ignores cancellation of ctx: a caller that gave up must not cost the
// client its healthy channels. Each write is still bounded by writeWait.
func (h *Hub) deliver(ctx context.Context, targets map[string][]Conn, payload []byte) int {
	ctx = context.WithoutCancel(ctx)
	delivered := 0
	for clientID, conns := range targets {
		for _, c := range conns {
			if err := c.Send(ctx, payload); err != nil {
				h.drop(clientID, c, err)
				continue
			}
			delivered++
		}
	}
	return delivered
}

func (h *Hub) drop(clientID string, c Conn, cause error) {
	h.mu.Lock()
	removed := h.removeLocked(clientID, c)
	h.mu.Unlock()

	if removed {
		h.logger.Warn("dropping client channel after failed send",
			slog.String("client_id", clientID),
			slog.String("error", cause.Error()))
		_ = c.Close()
	}
}

// ConnectionCount returns the number of open channels of clientID.
func (h *Hub) ConnectionCount(clientID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[clientID])
}

// Clients returns the ids of connected clients, sorted.
func (h *Hub) Clients() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close tears down every channel and refuses further connections.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[string]map[Conn]struct{})
	h.closed = true
	h.mu.Unlock()

	for _, set := range all {
		for c := range set {
			_ = c.Close()
		}
	}
	h.logger.Info("broadcast hub closed", slog.Int("clients", len(all)))
}
