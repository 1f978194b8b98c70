package notify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"hireline/internal/notify"
)

func TestSubscribeReceivesEvents(t *testing.T) {
	h := notify.NewHub()
	defer h.Close()

	ch, cancel := h.Subscribe(4)
	defer cancel()

	h.Emit(context.Background(), notify.Event{Type: notify.TypeStageAdvanced, CandidateID: "cand-1"})

	select {
	case evt := <-ch:
		if evt.Type != notify.TypeStageAdvanced {
			t.Fatalf("type = %q, want %q", evt.Type, notify.TypeStageAdvanced)
		}
		if evt.CandidateID != "cand-1" {
			t.Fatalf("candidate = %q, want cand-1", evt.CandidateID)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := notify.NewHub()
	defer h.Close()

	ch, cancel := h.Subscribe(1)
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("channel still open after cancel")
	}

	// Emitting after the subscriber left must not panic.
	h.Emit(context.Background(), notify.Event{Type: notify.TypeStageAdvanced})
}

func TestSlowSubscriberDoesNotBlockEmit(t *testing.T) {
	h := notify.NewHub()
	defer h.Close()

	_, cancel := h.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.Emit(context.Background(), notify.Event{Type: notify.TypeInterviewScheduled})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full subscriber channel")
	}
}

func TestEmitConcurrentWithUnsubscribe(t *testing.T) {
	h := notify.NewHub()
	defer h.Close()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				h.Emit(context.Background(), notify.Event{Type: notify.TypeStageAdvanced})
			}
		}
	}()

	for i := 0; i < 500; i++ {
		_, cancel := h.Subscribe(1)
		cancel()
	}

	close(stop)
	wg.Wait()
}

func TestCloseStopsDelivery(t *testing.T) {
	h := notify.NewHub()
	ch, cancel := h.Subscribe(1)
	defer cancel()

	h.Close()

	if _, ok := <-ch; ok {
		t.Fatal("channel still open after Close")
	}
	h.Emit(context.Background(), notify.Event{Type: notify.TypeStageAdvanced})
}
