package controller

import (
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"fifohub/models"
)

// RequestEvent is pushed to connected owners when an access request is
// created or resolved.
type RequestEvent struct {
	Type    string                `json:"type"` // request_created, request_resolved
	Request *models.AccessRequest `json:"request"`
}

// sendBufferSize bounds how far a slow consumer can fall behind before
// events are dropped for it.
const sendBufferSize = 16

type eventWriter interface {
	WriteJSON(v interface{}) error
}

// requestClient is one watching connection. All writes to the underlying
// connection go through the send channel and a single write pump, since
// the websocket connection allows only one concurrent writer.
type requestClient struct {
	writer eventWriter
	send   chan RequestEvent
}

func newRequestClient(w eventWriter) *requestClient {
	return &requestClient{
		writer: w,
		send:   make(chan RequestEvent, sendBufferSize),
	}
}

// writePump drains the client's send channel onto the connection. It is
// the only goroutine that writes. A write error abandons the client; the
// read loop notices the closed connection and unregisters it.
func (rc *requestClient) writePump() {
	for event := range rc.send {
		if err := rc.writer.WriteJSON(event); err != nil {
			log.Printf("Error writing request event: %v", err)
			return
		}
	}
}

// RequestHub fans request events out to the websocket connections
// watching each workspace.
type RequestHub struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]map[*requestClient]struct{}
}

func NewRequestHub() *RequestHub {
	return &RequestHub{
		conns: make(map[uuid.UUID]map[*requestClient]struct{}),
	}
}

func (h *RequestHub) register(workspaceID uuid.UUID, client *requestClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[workspaceID] == nil {
		h.conns[workspaceID] = make(map[*requestClient]struct{})
	}
	h.conns[workspaceID][client] = struct{}{}
}

// unregister removes a client and closes its send channel, ending the
// write pump. Closing under the write lock keeps Broadcast from sending
// on a closed channel.
func (h *RequestHub) unregister(workspaceID uuid.UUID, client *requestClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[workspaceID][client]; !ok {
		return
	}
	delete(h.conns[workspaceID], client)
	close(client.send)
	if len(h.conns[workspaceID]) == 0 {
		delete(h.conns, workspaceID)
	}
}

// Broadcast queues an event for every watcher of the workspace. It never
// blocks a request handler: a client whose buffer is full misses the
// event and catches up from the request list on reconnect.
func (h *RequestHub) Broadcast(workspaceID uuid.UUID, event RequestEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.conns[workspaceID] {
		select {
		case client.send <- event:
		default:
		}
	}
}

// HandleRequestFeedWS keeps a connection subscribed to a workspace's
// request events until the client goes away. Owner authorization happens
// in the upgrade middleware before this runs.
func (h *RequestHub) HandleRequestFeedWS(c *websocket.Conn) {
	defer c.Close()

	workspaceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		log.Printf("Invalid workspace id on ws feed: %v", err)
		return
	}

	client := newRequestClient(c)
	h.register(workspaceID, client)
	defer h.unregister(workspaceID, client)

	go client.writePump()

	// Drain client frames so pings are answered; content is ignored
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
