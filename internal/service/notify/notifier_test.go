package notify

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"autosendpic/internal/config"
	"autosendpic/internal/dto"
	"autosendpic/internal/logger"
)

func newTestNotifier(t *testing.T) *Notifier {
	t.Helper()

	l := logger.NewLogger(&config.Config{LogDirectory: filepath.Join(t.TempDir(), "logs")})
	t.Cleanup(l.Close)
	return New(l)
}

func TestNotifier_DeliversEvents(t *testing.T) {
	n := newTestNotifier(t)

	var mu sync.Mutex
	var errs []dto.ErrorEvent
	var deliveries []dto.DeliveryEvent

	if err := n.OnError(func(ev dto.ErrorEvent) {
		mu.Lock()
		errs = append(errs, ev)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("OnError failed: %v", err)
	}
	if err := n.OnDelivery(func(ev dto.DeliveryEvent) {
		mu.Lock()
		deliveries = append(deliveries, ev)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("OnDelivery failed: %v", err)
	}

	n.PublishError(dto.ErrorEvent{Category: "bad_response", Sink: "http", Time: time.Now()})
	n.PublishDelivery(dto.DeliveryEvent{ItemID: "a", Sink: "local", Status: "succeeded"})
	n.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(errs) != 1 || errs[0].Category != "bad_response" {
		t.Errorf("Unexpected error events %+v", errs)
	}
	if len(deliveries) != 1 || deliveries[0].Sink != "local" {
		t.Errorf("Unexpected delivery events %+v", deliveries)
	}
}

func TestNotifier_SubscriberPanicIsContained(t *testing.T) {
	n := newTestNotifier(t)

	received := make(chan dto.ErrorEvent, 1)
	_ = n.OnError(func(dto.ErrorEvent) { panic("broken view") })
	_ = n.OnError(func(ev dto.ErrorEvent) { received <- ev })

	n.PublishError(dto.ErrorEvent{Category: "capture"})
	n.Wait()

	select {
	case ev := <-received:
		if ev.Category != "capture" {
			t.Errorf("Unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("Healthy subscriber did not receive the event")
	}
}

func TestNotifier_SlowSubscriberDoesNotBlock(t *testing.T) {
	n := newTestNotifier(t)

	release := make(chan struct{})
	_ = n.OnError(func(dto.ErrorEvent) { <-release })

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			n.PublishError(dto.ErrorEvent{Category: "sink_failure"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
	close(release)
	n.Wait()
}
