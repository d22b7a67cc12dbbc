// README: Notification service tests.
package notification

import (
	"context"
	"testing"
	"time"

	"parcelo/internal/config"
	"parcelo/internal/modules/delivery"
	"parcelo/internal/realtime"
)

func TestNotifyStatusPersistsAndPushes(t *testing.T) {
	hub := realtime.NewHub(config.RealtimeConfig{SendBuffer: 8})
	svc := NewService(NewMemoryStore(), hub)
	ctx := context.Background()

	client := realtime.NewClient(hub, nil, "req1", delivery.RoleRequester, nil)
	hub.Register(client)
	hub.Join(client, realtime.UserRoom("req1"))

	d := &delivery.Delivery{ID: "d1", RequesterID: "req1", Status: delivery.StatusPickedUp}
	svc.NotifyStatus(ctx, d, delivery.StatusPickedUp)

	list, err := svc.ListByUser(ctx, "req1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("notifications = %d, want 1", len(list))
	}
	if list[0].Type != "delivery_picked_up" {
		t.Fatalf("type = %s, want delivery_picked_up", list[0].Type)
	}
	if list[0].ReadAt != nil {
		t.Fatal("expected unread notification")
	}

	if _, ok := client.TryRecv(); !ok {
		t.Fatal("expected pushed event on user room")
	}
}

func TestNotifyStatusUnknownStatusIsNoop(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	ctx := context.Background()

	d := &delivery.Delivery{ID: "d1", RequesterID: "req1"}
	svc.NotifyStatus(ctx, d, delivery.StatusPending)

	list, err := svc.ListByUser(ctx, "req1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("notifications = %d, want 0", len(list))
	}
}

func TestMarkRead(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	ctx := context.Background()

	svc.Send(ctx, SendCommand{UserID: "u1", Title: "t", Message: "m", Type: "x"})
	list, err := svc.ListByUser(ctx, "u1", 1)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v (%d)", err, len(list))
	}

	if err := svc.MarkRead(ctx, list[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	list, _ = svc.ListByUser(ctx, "u1", 1)
	if list[0].ReadAt == nil {
		t.Fatal("expected read timestamp")
	}
	if time.Since(*list[0].ReadAt) > time.Minute {
		t.Fatal("unexpected read timestamp")
	}

	if err := svc.MarkRead(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
