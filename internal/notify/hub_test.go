package notify

import (
	"testing"
	"time"
)

func drainConnected(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev := <-sub.C:
		if ev.Type != TypeConnected {
			t.Fatalf("first event type = %q, want %q", ev.Type, TypeConnected)
		}
	case <-time.After(time.Second):
		t.Fatal("no connected event")
	}
}

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.C:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestPublishReachesEveryOwnerSubscriber(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	subA := hub.Subscribe("owner-1")
	subB := hub.Subscribe("owner-1")
	other := hub.Subscribe("owner-2")
	drainConnected(t, subA)
	drainConnected(t, subB)
	drainConnected(t, other)

	hub.Publish("owner-1", StatusChangedEvent("rec-1", "ready", ""))

	for _, sub := range []*Subscription{subA, subB} {
		ev := receive(t, sub)
		if ev.Type != TypeStatusChanged || ev.RecordID != "rec-1" || ev.NewStatus != "ready" {
			t.Fatalf("event = %+v", ev)
		}
	}

	select {
	case ev := <-other.C:
		t.Fatalf("owner-2 received owner-1 event: %+v", ev)
	default:
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	slow := hub.Subscribe("owner-1")
	fast := hub.Subscribe("owner-1")
	drainConnected(t, slow)
	drainConnected(t, fast)

	// Fill the slow subscriber's buffer without reading.
	for i := 0; i < subscriberBuffer; i++ {
		hub.Publish("owner-1", StatusChangedEvent("rec-fill", "pending", ""))
		receive(t, fast)
	}

	// One more: dropped for slow, still delivered to fast.
	hub.Publish("owner-1", StatusChangedEvent("rec-extra", "ready", ""))
	ev := receive(t, fast)
	if ev.RecordID != "rec-extra" {
		t.Fatalf("fast subscriber got %+v", ev)
	}

	count := 0
	for {
		select {
		case <-slow.C:
			count++
			continue
		default:
		}
		break
	}
	if count != subscriberBuffer {
		t.Fatalf("slow subscriber buffered %d events, want %d", count, subscriberBuffer)
	}
}

func TestCancelPrunesEmptyOwnerEntry(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	sub := hub.Subscribe("owner-1")
	drainConnected(t, sub)
	if got := hub.SubscriberCount("owner-1"); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}

	sub.Cancel()
	if got := hub.SubscriberCount("owner-1"); got != 0 {
		t.Fatalf("count after cancel = %d, want 0", got)
	}

	// Cancel is idempotent.
	sub.Cancel()

	if _, ok := <-sub.C; ok {
		t.Fatal("channel open after cancel")
	}
}

func TestShutdownClosesSubscribers(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("owner-1")
	drainConnected(t, sub)

	hub.Shutdown()

	select {
	case _, ok := <-sub.C:
		if ok {
			t.Fatal("expected closed channel after shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after shutdown")
	}

	// Subscribing after shutdown yields an already-closed stream.
	late := hub.Subscribe("owner-1")
	if _, ok := <-late.C; ok {
		t.Fatal("late subscription delivered an event after shutdown")
	}
}
