package controller

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

// overlapWriter records every write and whether two writes ever ran at
// the same time. The connection it stands in for tolerates only one
// writer at a time.
type overlapWriter struct {
	inFlight atomic.Int32
	overlaps atomic.Int32
	written  atomic.Int32
}

func (w *overlapWriter) WriteJSON(v interface{}) error {
	if w.inFlight.Add(1) > 1 {
		w.overlaps.Add(1)
	}
	time.Sleep(10 * time.Microsecond)
	w.written.Add(1)
	w.inFlight.Add(-1)
	return nil
}

func TestRequestHubSerializesWrites(t *testing.T) {
	hub := NewRequestHub()
	workspaceID := uuid.New()

	writer := &overlapWriter{}
	client := newRequestClient(writer)
	hub.register(workspaceID, client)

	pumpDone := make(chan struct{})
	go func() {
		client.writePump()
		close(pumpDone)
	}()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				hub.Broadcast(workspaceID, RequestEvent{Type: "request_created"})
			}
		}()
	}
	wg.Wait()

	hub.unregister(workspaceID, client)

	select {
	case <-pumpDone:
	case <-time.After(5 * time.Second):
		t.Fatal("write pump did not stop after unregister")
	}

	if n := writer.overlaps.Load(); n != 0 {
		t.Fatalf("%d concurrent writes reached the connection", n)
	}
	if writer.written.Load() == 0 {
		t.Fatal("no events were delivered")
	}
}

func TestRequestHubBroadcastNeverBlocks(t *testing.T) {
	hub := NewRequestHub()
	workspaceID := uuid.New()

	// No write pump running, so the buffer fills and stays full
	client := newRequestClient(&overlapWriter{})
	hub.register(workspaceID, client)
	defer hub.unregister(workspaceID, client)

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBufferSize*3; i++ {
			hub.Broadcast(workspaceID, RequestEvent{Type: "request_created"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Broadcast blocked on a slow consumer")
	}
}

func TestRequestHubBroadcastToUnwatchedWorkspace(t *testing.T) {
	hub := NewRequestHub()

	// Must be a no-op, not a panic
	hub.Broadcast(uuid.New(), RequestEvent{Type: "request_resolved"})
}

func TestRequestHubUnregisterTwice(t *testing.T) {
	hub := NewRequestHub()
	workspaceID := uuid.New()

	client := newRequestClient(&overlapWriter{})
	hub.register(workspaceID, client)
	hub.unregister(workspaceID, client)

	// The read loop and a connection teardown can both unregister; the
	// second call must not close the send channel again
	hub.unregister(workspaceID, client)
}
