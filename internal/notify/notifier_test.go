package notify

import (
	"context"
	"errors"
	"testing"

	"carpool/internal/trip"
)

type fakeStore struct {
	inserted []trip.Notification
	err      error
}

func (s *fakeStore) InsertNotification(_ context.Context, n trip.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.inserted = append(s.inserted, n)
	return nil
}

type fakeBroker struct {
	published []trip.Notification
	err       error
}

func (b *fakeBroker) Publish(_ context.Context, n trip.Notification) error {
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, n)
	return nil
}

func (b *fakeBroker) Close() error { return nil }

func TestSend(t *testing.T) {
	store := &fakeStore{}
	broker := &fakeBroker{}
	n := New(store, broker)

	note, err := n.Send(context.Background(), "user-1", "user-2", trip.NotifyRideBooked,
		"New booking", "2 seat(s) booked", map[string]any{"rideId": "ride-1"}, "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if note.ID == "" {
		t.Error("no id assigned")
	}
	if note.Priority != trip.PriorityMedium {
		t.Errorf("priority = %s, want medium default", note.Priority)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d rows, want 1", len(store.inserted))
	}
	if len(broker.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(broker.published))
	}
	if broker.published[0].ID != store.inserted[0].ID {
		t.Error("published message differs from stored row")
	}
}

func TestSendStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("insert failed")}
	broker := &fakeBroker{}
	n := New(store, broker)

	if _, err := n.Send(context.Background(), "user-1", "", trip.NotifyRideBooked, "t", "m", nil, trip.PriorityHigh); err == nil {
		t.Fatal("expected error from failed insert")
	}
	if len(broker.published) != 0 {
		t.Error("published despite failed insert")
	}
}

func TestSendBrokerErrorIsSwallowed(t *testing.T) {
	store := &fakeStore{}
	broker := &fakeBroker{err: errors.New("amqp down")}
	n := New(store, broker)

	if _, err := n.Send(context.Background(), "user-1", "", trip.NotifyRideBooked, "t", "m", nil, trip.PriorityHigh); err != nil {
		t.Fatalf("broker error leaked: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Error("row not stored")
	}
}

func TestBroadcast(t *testing.T) {
	store := &fakeStore{}
	n := New(store, nil)

	sent, err := n.Broadcast(context.Background(), []string{"u1", "u2", "u3"}, "admin-1", "Maintenance", "Service window tonight")
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if sent != 3 || len(store.inserted) != 3 {
		t.Fatalf("sent = %d, stored = %d, want 3 each", sent, len(store.inserted))
	}
	for _, note := range store.inserted {
		if note.Type != trip.NotifySystemAnnouncement {
			t.Errorf("type = %s, want system announcement", note.Type)
		}
		if note.Priority != trip.PriorityHigh {
			t.Errorf("priority = %s, want high", note.Priority)
		}
	}
}
