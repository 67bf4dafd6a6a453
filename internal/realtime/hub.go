package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

type SSEEvent string

const (
	SSEEventRunStarted    SSEEvent = "QualifyRunStarted"
	SSEEventPhaseStarted  SSEEvent = "QualifyPhaseStarted"
	SSEEventPhaseFinished SSEEvent = "QualifyPhaseFinished"
	SSEEventRunSucceeded  SSEEvent = "QualifyRunSucceeded"
	SSEEventRunFailed     SSEEvent = "QualifyRunFailed"
	SSEEventGatherAdded   SSEEvent = "GatherItemsAdded"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// ProjectChannel names the per-project event stream.
func ProjectChannel(projectID uuid.UUID) string {
	return "project:" + projectID.String()
}

type SSEClient struct {
	ID       uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
}

// SSEHub fans broadcast messages out to subscribed clients. Slow clients
// drop messages rather than block the broadcaster.
type SSEHub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[string]map[*SSEClient]bool
}

func NewSSEHub(log *logger.Logger) *SSEHub {
	return &SSEHub{
		log:           log.With("component", "SSEHub"),
		subscriptions: make(map[string]map[*SSEClient]bool),
	}
}

func (hub *SSEHub) NewSSEClient() *SSEClient {
	return &SSEClient{
		ID:       uuid.New(),
		Channels: make(map[string]bool),
		Outbound: make(chan SSEMessage, 16),
		done:     make(chan struct{}),
	}
}

func (hub *SSEHub) AddChannel(client *SSEClient, channel string) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()

	client.Channels[channel] = true
	clients, exists := hub.subscriptions[channel]
	if !exists {
		clients = make(map[*SSEClient]bool)
		hub.subscriptions[channel] = clients
	}
	clients[client] = true

	hub.log.Debug("sse client subscribed", "client_id", client.ID.String(), "channel", channel)
}

func (hub *SSEHub) RemoveChannel(client *SSEClient, channel string) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()

	delete(client.Channels, channel)
	if clients, ok := hub.subscriptions[channel]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(hub.subscriptions, channel)
		}
	}
}

func (hub *SSEHub) RemoveClient(client *SSEClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for ch := range client.Channels {
		if clients, ok := hub.subscriptions[ch]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(hub.subscriptions, ch)
			}
		}
	}
	client.Channels = make(map[string]bool)
}

func (hub *SSEHub) Broadcast(msg SSEMessage) {
	if msg.Channel == "" {
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	clients, ok := hub.subscriptions[msg.Channel]
	if !ok {
		return
	}
	for c := range clients {
		select {
		case c.Outbound <- msg:
		default:
			hub.log.Warn("dropping sse message; outbound buffer full", "client_id", c.ID.String())
		}
	}
}

func (hub *SSEHub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *SSEClient) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			hub.log.Debug("sse client context done", "client_id", client.ID.String(), "error", ctx.Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg := <-client.Outbound:
			raw, err := json.Marshal(msg)
			if err != nil {
				hub.log.Warn("failed to marshal sse message", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", raw)
			flusher.Flush()
		}
	}
}

func (hub *SSEHub) CloseClient(client *SSEClient) {
	close(client.done)
	hub.RemoveClient(client)
	close(client.Outbound)
}
