package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeExportCompleted, Data: map[string]string{"path": "a.json"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: export.completed") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"a.json"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishExportEvent_LibraryThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First event should trigger library.updated.
	b.PublishExportEvent("created", "a.json")
	// Following events immediately should NOT trigger another library.updated.
	b.PublishExportEvent("updated", "b.json")
	b.PublishExportEvent("deleted", "c.json")

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	libraryCount := 0
	completed := 0
	removed := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			switch {
			case strings.Contains(s, "event: "+TypeLibraryUpdated):
				libraryCount++
			case strings.Contains(s, "event: "+TypeExportCompleted):
				completed++
			case strings.Contains(s, "event: "+TypeExportRemoved):
				removed++
				if !strings.Contains(s, `"path":"c.json"`) {
					t.Errorf("removed event missing path: %q", s)
				}
			}
		default:
			break loop
		}
	}

	if completed != 2 || removed != 1 {
		t.Errorf("completed = %d, removed = %d, want 2 and 1", completed, removed)
	}
	if libraryCount != 1 {
		t.Errorf("library events = %d, want 1 (throttled)", libraryCount)
	}
}

func TestPublishExportEvent_UnknownKindIgnored(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishExportEvent("renamed", "a.json")
	time.Sleep(50 * time.Millisecond)

	select {
	case msg := <-ch:
		t.Errorf("unexpected message %q", msg)
	default:
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: TypeExportCompleted, Data: map[string]string{"path": "x.json"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: export.completed") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: TypeExportCompleted, Data: map[string]string{"path": "x.json"}})
	b.PublishExportEvent("updated", "x.json")
}

func TestServeHTTP_HeartbeatAndEventIDs(t *testing.T) {
	b := NewBroker(time.Hour, WithHeartbeat(20*time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	b.PublishExportEvent("created", "a.json")
	b.PublishExportEvent("updated", "a.json")
	time.Sleep(60 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, ": ping\n\n") {
		t.Errorf("no heartbeat in %q", body)
	}
	for _, id := range []string{"id: 1\n", "id: 2\n", "id: 3\n"} {
		if !strings.Contains(body, id) {
			t.Errorf("missing %q in %q", id, body)
		}
	}
}
