package delivery_test

import (
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"autosendpic/internal/apperr"
	"autosendpic/internal/config"
	"autosendpic/internal/model"
	"autosendpic/internal/service/capture"
	"autosendpic/internal/service/delivery"
	"autosendpic/internal/service/storage"
	"autosendpic/internal/service/upload"

	"github.com/benbjohnson/clock"
)

// armSignal arms the sampler and tells the test a frame is wanted.
type armSignal struct {
	sampler *capture.Sampler
	armed   chan struct{}
}

func (a *armSignal) Arm() {
	a.sampler.Arm()
	a.armed <- struct{}{}
}

type noLocation struct{}

func (noLocation) Last() model.Location { return model.Location{Provider: "network", Latitude: 1.5} }

type cameraUp struct{}

func (cameraUp) Available() bool { return true }

// runPipeline drives a 1s trigger for three seconds against a local sink and
// an HTTP sink answering with status. It returns every report and the output directory.
func runPipeline(t *testing.T, status int) ([]delivery.Report, string, int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 7, 1, 9, 0, 0, 0, time.Local))
	log := newTestLogger(t)
	dir := t.TempDir()
	namer := storage.NewNamer("pic_"+config.TimestampPlaceholder+".jpg", "2006-01-02-15-04-05")

	reports := newReportLog()
	manager := delivery.NewManager(log, delivery.WithReporter(reports.add), delivery.WithClock(mock))
	err := manager.Start(
		storage.NewLocalSink(storage.LocalConfig{Directory: dir, Namer: namer}, log),
		upload.NewSink(upload.Config{URL: srv.URL, Timeout: 5 * time.Second, Expiry: time.Minute}, namer, log, upload.WithClock(mock)),
	)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	sampler := capture.NewSampler(manager.Enqueue, noLocation{}, log, capture.WithSamplerClock(mock))
	signal := &armSignal{sampler: sampler, armed: make(chan struct{}, 8)}

	state := &capture.State{}
	state.EnableDelivery()
	trigger := capture.NewTrigger(state, cameraUp{}, signal, log, capture.WithTriggerClock(mock))

	frame := capture.NewImageFrame(image.NewRGBA(image.Rect(0, 0, 32, 24)))
	deliverFrame := func() {
		select {
		case <-signal.armed:
		case <-time.After(time.Second):
			t.Fatal("Trigger did not fire")
		}
		sampler.OnFrame(frame)
		sampler.OnFrame(frame)
	}

	trigger.Start(time.Second)
	deliverFrame()
	for i := 0; i < 2; i++ {
		mock.Add(time.Second)
		deliverFrame()
	}
	trigger.Stop()

	got := reports.wait(t, 6)
	manager.Stop()
	return got, dir, hits.Load()
}

func TestPipeline_ThreeSecondsTwoSinks(t *testing.T) {
	reports, dir, hits := runPipeline(t, http.StatusOK)

	items := map[string]int{}
	for _, r := range reports {
		if r.Status != delivery.StatusSucceeded {
			t.Errorf("Unexpected failure on %s: %v", r.Sink, r.Err)
		}
		items[r.ItemID]++
	}
	if len(items) != 3 {
		t.Fatalf("Expected 3 captured items, got %d", len(items))
	}
	for id, n := range items {
		if n != 2 {
			t.Errorf("Item %s reached %d sinks, want 2", id, n)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 3 {
		t.Errorf("Expected 3 files, got %d", len(entries))
	}
	if hits != 3 {
		t.Errorf("Expected 3 uploads, got %d", hits)
	}
}

func TestPipeline_EndpointAlwaysFails(t *testing.T) {
	reports, dir, _ := runPipeline(t, http.StatusInternalServerError)

	for _, r := range reports {
		switch r.Sink {
		case "local":
			if r.Status != delivery.StatusSucceeded {
				t.Errorf("Local delivery of %s failed: %v", r.ItemID, r.Err)
			}
		case "http":
			if r.Status != delivery.StatusFailed || !apperr.IsKind(r.Err, apperr.KindBadResponse) {
				t.Errorf("Expected bad response for %s, got %v", r.ItemID, r.Err)
			}
		default:
			t.Errorf("Unexpected sink %s", r.Sink)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 3 {
		t.Errorf("Expected 3 local files, got %d", len(entries))
	}
}
