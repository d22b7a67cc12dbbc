// README: Hub tests (rooms, fan-out, presence, slow-client eviction).
package realtime

import (
	"encoding/json"
	"testing"

	"parcelo/internal/config"
	"parcelo/internal/types"
)

func newTestHub(buffer int) *Hub {
	return NewHub(config.RealtimeConfig{SendBuffer: buffer})
}

// newTestClient builds a registered client without a live socket; tests read
// events straight off the send channel.
func newTestClient(h *Hub, userID types.ID, role string) *Client {
	c := NewClient(h, nil, userID, role, nil)
	h.Register(c)
	return c
}

func recvEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.send:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return ev
	default:
		t.Fatal("expected a queued event")
	}
	return Event{}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected event: %s", data)
	default:
	}
}

func TestBroadcastReachesRoomMembers(t *testing.T) {
	h := newTestHub(8)
	a := newTestClient(h, "u1", "requester")
	b := newTestClient(h, "u2", "carrier")
	outsider := newTestClient(h, "u3", "carrier")

	room := DeliveryRoom("d1")
	h.Join(a, room)
	h.Join(b, room)

	h.Broadcast(room, Event{Type: EventStatus, Payload: map[string]any{"status": "accepted"}})

	for _, c := range []*Client{a, b} {
		ev := recvEvent(t, c)
		if ev.Type != EventStatus {
			t.Errorf("event type = %s, want %s", ev.Type, EventStatus)
		}
		if ev.Room != room {
			t.Errorf("event room = %s, want %s", ev.Room, room)
		}
		if ev.At.IsZero() {
			t.Error("expected event timestamp")
		}
	}
	assertNoEvent(t, outsider)
}

func TestBroadcastExceptSkipsSender(t *testing.T) {
	h := newTestHub(8)
	a := newTestClient(h, "u1", "requester")
	b := newTestClient(h, "u2", "carrier")

	room := ConversationRoom("c1")
	h.Join(a, room)
	h.Join(b, room)

	h.BroadcastExcept(room, a, Event{Type: EventMessage})

	assertNoEvent(t, a)
	if ev := recvEvent(t, b); ev.Type != EventMessage {
		t.Errorf("event type = %s, want %s", ev.Type, EventMessage)
	}
}

func TestBroadcastEmptyRoomIsNoop(t *testing.T) {
	h := newTestHub(8)
	h.Broadcast(DeliveryRoom("nobody"), Event{Type: EventStatus})
	if n := h.RoomSize(DeliveryRoom("nobody")); n != 0 {
		t.Fatalf("room size = %d, want 0", n)
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	h := newTestHub(8)
	c := newTestClient(h, "u1", "requester")

	room := DeliveryRoom("d1")
	h.Join(c, room)
	h.Join(c, room)
	if n := h.RoomSize(room); n != 1 {
		t.Fatalf("room size = %d, want 1", n)
	}

	h.Broadcast(room, Event{Type: EventStatus})
	recvEvent(t, c)
	assertNoEvent(t, c)
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := newTestHub(8)
	c := newTestClient(h, "u1", "requester")

	room := DeliveryRoom("d1")
	h.Join(c, room)
	h.Leave(c, room)

	h.Broadcast(room, Event{Type: EventStatus})
	assertNoEvent(t, c)
}

// TestUnregisterLeavesAllRooms covers the disconnect path: membership is
// torn down everywhere and later broadcasts do not touch the dead client.
func TestUnregisterLeavesAllRooms(t *testing.T) {
	h := newTestHub(8)
	c := newTestClient(h, "u1", "requester")

	rooms := []string{DeliveryRoom("d1"), DeliveryRoom("d2"), UserRoom("u1")}
	for _, room := range rooms {
		h.Join(c, room)
	}

	h.Unregister(c)

	for _, room := range rooms {
		if n := h.RoomSize(room); n != 0 {
			t.Errorf("room %s size = %d, want 0", room, n)
		}
	}
	if h.Online("u1") {
		t.Error("expected user offline after unregister")
	}
	if _, ok := <-c.send; ok {
		t.Error("expected send channel closed")
	}

	// Double unregister must be a no-op.
	h.Unregister(c)
}

// TestSlowClientIsDropped verifies the non-blocking fan-out: a receiver with
// a full buffer is evicted rather than stalling the room, and role-room
// watchers see the same presence-offline event a clean disconnect emits.
func TestSlowClientIsDropped(t *testing.T) {
	h := newTestHub(1)
	watcher := newTestClient(h, "w1", "requester")
	h.Join(watcher, RoleRoom("requester"))

	// Drain each registration's presence-online event before the next one
	// lands; the watcher shares the 1-slot buffer under test.
	slow := newTestClient(h, "u1", "requester")
	recvEvent(t, watcher)
	fast := newTestClient(h, "u2", "requester")
	recvEvent(t, watcher)

	room := DeliveryRoom("d1")
	h.Join(slow, room)
	h.Join(fast, room)

	// First event fills the slow client's buffer; the second overflows it.
	h.Broadcast(room, Event{Type: EventLocation})
	recvEvent(t, fast)
	h.Broadcast(room, Event{Type: EventLocation})

	if n := h.RoomSize(room); n != 1 {
		t.Fatalf("room size = %d, want 1 after eviction", n)
	}
	if h.Online("u1") {
		t.Error("expected slow client offline after eviction")
	}
	recvEvent(t, fast)

	ev := recvEvent(t, watcher)
	if ev.Type != EventPresence {
		t.Fatalf("event type = %s, want %s", ev.Type, EventPresence)
	}
	payload, ok := ev.Payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type = %T, want map", ev.Payload)
	}
	if payload["user_id"] != "u1" || payload["online"] != false {
		t.Errorf("payload = %v, want user u1 offline", payload)
	}
	assertNoEvent(t, watcher)
}

func TestPresenceEvents(t *testing.T) {
	h := newTestHub(8)
	watcher := newTestClient(h, "w1", "carrier")
	h.Join(watcher, RoleRoom("carrier"))

	c := newTestClient(h, "u1", "carrier")
	ev := recvEvent(t, watcher)
	if ev.Type != EventPresence {
		t.Fatalf("event type = %s, want %s", ev.Type, EventPresence)
	}

	// A second connection for the same user emits nothing.
	c2 := newTestClient(h, "u1", "carrier")
	assertNoEvent(t, watcher)

	// Closing one of two connections keeps the user online.
	h.Unregister(c2)
	assertNoEvent(t, watcher)
	if !h.Online("u1") {
		t.Fatal("expected user still online with one connection")
	}

	// Last connection going away emits presence-offline.
	h.Unregister(c)
	ev = recvEvent(t, watcher)
	if ev.Type != EventPresence {
		t.Fatalf("event type = %s, want %s", ev.Type, EventPresence)
	}
	if h.Online("u1") {
		t.Fatal("expected user offline")
	}
}
