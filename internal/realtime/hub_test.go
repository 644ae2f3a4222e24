package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	event := &Event{Type: EventDistUpdate, Timestamp: time.Now()}
	if !h.shouldSend(client, event) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventDistUpdate, EventStatusChange},
	}}

	distEvent := &Event{Type: EventDistUpdate}
	statusEvent := &Event{Type: EventStatusChange}
	createdEvent := &Event{Type: EventStreamCreated}

	if !h.shouldSend(client, distEvent) {
		t.Error("Should receive dist_update events")
	}
	if !h.shouldSend(client, statusEvent) {
		t.Error("Should receive status_change events")
	}
	if h.shouldSend(client, createdEvent) {
		t.Error("Should NOT receive stream_created events")
	}
}

func TestShouldSend_StreamFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		StreamIDs: []string{"str_1"},
	}}

	matching := &Event{
		Type: EventDistUpdate,
		Data: map[string]interface{}{"streamId": "str_1"},
	}
	notMatching := &Event{
		Type: EventDistUpdate,
		Data: map[string]interface{}{"streamId": "str_2"},
	}

	if !h.shouldSend(client, matching) {
		t.Error("Should match on streamId")
	}
	if h.shouldSend(client, notMatching) {
		t.Error("Should NOT match unrelated stream")
	}
}

func TestShouldSend_OwnerFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		OwnerAddrs: []string{"0xowner1"},
	}}

	matching := &Event{
		Type: EventDistUpdate,
		Data: map[string]interface{}{"owner": "0xowner1"},
	}
	notMatching := &Event{
		Type: EventDistUpdate,
		Data: map[string]interface{}{"owner": "0xother"},
	}

	if !h.shouldSend(client, matching) {
		t.Error("Should match on owner address")
	}
	if h.shouldSend(client, notMatching) {
		t.Error("Should NOT match unrelated owner")
	}
}

func TestShouldSend_MinAmountFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		MinAmount: 10.0,
	}}

	large := &Event{
		Type: EventDistUpdate,
		Data: map[string]interface{}{"amount": 15.0},
	}
	small := &Event{
		Type: EventDistUpdate,
		Data: map[string]interface{}{"amount": 5.0},
	}
	statusChange := &Event{
		Type: EventStatusChange,
		Data: map[string]interface{}{"status": "active"},
	}

	if !h.shouldSend(client, large) {
		t.Error("Should receive large dist update")
	}
	if h.shouldSend(client, small) {
		t.Error("Should NOT receive small dist update")
	}
	if !h.shouldSend(client, statusChange) {
		t.Error("MinAmount filter should only apply to dist updates")
	}
}

func TestShouldSend_EmptySubscription(t *testing.T) {
	h := testHub()

	// No filters, not AllEvents
	client := &Client{sub: Subscription{}}

	event := &Event{Type: EventDistUpdate}
	if !h.shouldSend(client, event) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

func TestShouldSend_NonMapData(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		OwnerAddrs: []string{"0xowner1"},
	}}

	// Event with non-map data should not crash
	event := &Event{
		Type: EventStatusChange,
		Data: "string data not a map",
	}

	// Owner filter skips non-map data (can't extract addresses), so event passes through
	if !h.shouldSend(client, event) {
		t.Error("Non-map data should pass through when owner filter can't extract addresses")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalEvents"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["totalEvents"])
	}
}

func TestHub_BroadcastAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Broadcast an event
	h.Broadcast(&Event{Type: EventDistUpdate, Timestamp: time.Now()})
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["totalEvents"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["totalEvents"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connectedClients"])
	}
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak 1, got %v", stats["peakClients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connectedClients"])
	}
	// Peak should still be 1
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak still 1, got %v", stats["peakClients"])
	}
}

func TestHub_BroadcastToClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.Broadcast(&Event{
		Type:      EventDistUpdate,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"amount": "5.00"},
	})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for broadcast")
	}
}

func TestHub_BroadcastDistUpdate(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Should not panic
	h.BroadcastDistUpdate(map[string]interface{}{
		"streamId": "str_1", "owner": "0xa", "amount": "1.00",
	})
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only wants status changes
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{EventTypes: []EventType{EventStatusChange}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	// Send a dist update event (should be filtered out)
	h.Broadcast(&Event{Type: EventDistUpdate, Timestamp: time.Now()})
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive dist update event")
	default:
		// Good - filtered out
	}

	// Send a status change event (should be received)
	h.Broadcast(&Event{Type: EventStatusChange, Timestamp: time.Now()})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive status change event")
	}
}
