package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"autosendpic/internal/apperr"
	"autosendpic/internal/config"
	"autosendpic/internal/logger"
	"autosendpic/internal/model"
	"autosendpic/internal/service/capture"
	"autosendpic/internal/service/delivery"
	"autosendpic/internal/service/location"

	"github.com/benbjohnson/clock"
)

type testApp struct {
	*App
	clock *clock.Mock
	cfg   *config.Config
}

func newTestApp(t *testing.T, modify func(*config.Config)) *testApp {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Port:             0,
		Password:         "secret",
		LogDirectory:     filepath.Join(dir, "logs"),
		CaptureInterval:  1,
		LocalEnabled:     true,
		OutputDirectory:  filepath.Join(dir, "pictures"),
		FilenameTemplate: "pic_" + config.TimestampPlaceholder + ".jpg",
		TimestampLayout:  "2006-01-02-15-04-05",
		UploadTimeout:    5,
		UploadExpiry:     60,
		UploadRetryDelay: 10,
		DatabasePath:     filepath.Join(dir, "data", "pictures.db"),
		CameraSource:     config.CameraSourcePattern,
	}
	if modify != nil {
		modify(cfg)
	}

	log := logger.NewLogger(cfg)
	t.Cleanup(log.Close)

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 8, 1, 12, 0, 0, 0, time.Local))
	source := capture.NewPatternSource(32, 24, 64, 48, 10, capture.WithPatternClock(mock))

	a, err := NewApp(cfg, log, source,
		WithClock(mock),
		WithConfigLoader(func() *config.Config { return cfg }))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	return &testApp{App: a, clock: mock, cfg: cfg}
}

// waitDeliveries advances the frame clock until the journal holds n entries.
func (ta *testApp) waitDeliveries(t *testing.T, n int) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for {
		stats, err := ta.journal.GetStats()
		if err != nil {
			t.Fatalf("GetStats failed: %v", err)
		}
		if stats.Total >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d deliveries, got %d", n, stats.Total)
		}
		ta.clock.Add(100 * time.Millisecond)
		time.Sleep(2 * time.Millisecond)
	}
}

func TestApp_StartSendDeliversToAllSinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	ta := newTestApp(t, func(c *config.Config) { c.UploadURL = srv.URL })

	if err := ta.StartSend(context.Background()); err != nil {
		t.Fatalf("StartSend failed: %v", err)
	}

	status := ta.Status()
	if !status.Sending || !status.CameraAvailable {
		t.Fatalf("Expected sending with camera, got %+v", status)
	}
	want := []string{"local", "catalog", "http"}
	if len(status.Sinks) != len(want) {
		t.Fatalf("Expected sinks %v, got %v", want, status.Sinks)
	}
	for i := range want {
		if status.Sinks[i] != want[i] {
			t.Errorf("Expected sinks %v, got %v", want, status.Sinks)
		}
	}

	ta.waitDeliveries(t, 3)

	stats, _ := ta.journal.GetStats()
	for _, sink := range want {
		if stats.PerSink[sink][string(delivery.StatusSucceeded)] < 1 {
			t.Errorf("Expected a success on %s, got %v", sink, stats.PerSink)
		}
	}

	entries, _ := os.ReadDir(ta.cfg.OutputDirectory)
	if len(entries) == 0 {
		t.Error("Expected a local file")
	}

	ta.StopSend()
	status = ta.Status()
	if status.Sending || len(status.Sinks) != 0 {
		t.Errorf("Expected stopped pipeline, got %+v", status)
	}
}

func TestApp_InvalidConfigKeepsPipelineStopped(t *testing.T) {
	ta := newTestApp(t, func(c *config.Config) { c.UploadURL = "ftp://example.com" })

	err := ta.StartSend(context.Background())
	if !apperr.IsKind(err, apperr.KindConfig) {
		t.Fatalf("Expected configuration error, got %v", err)
	}
	if ta.Status().Sending {
		t.Error("Pipeline should stay stopped")
	}
}

func TestApp_ToggleSend(t *testing.T) {
	ta := newTestApp(t, nil)

	on, err := ta.ToggleSend(context.Background())
	if err != nil || !on {
		t.Fatalf("Expected sending on, got %v (%v)", on, err)
	}
	on, err = ta.ToggleSend(context.Background())
	if err != nil || on {
		t.Fatalf("Expected sending off, got %v (%v)", on, err)
	}
}

func TestApp_Snapshot(t *testing.T) {
	ta := newTestApp(t, nil)

	if _, err := ta.Snapshot(context.Background()); !errors.Is(err, delivery.ErrNotRunning) {
		t.Fatalf("Expected ErrNotRunning, got %v", err)
	}

	if err := ta.StartSend(context.Background()); err != nil {
		t.Fatalf("StartSend failed: %v", err)
	}
	item, err := ta.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		pic, err := ta.pictures.GetByID(item.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if pic != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Snapshot was not catalogued")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestApp_ToggleFlash(t *testing.T) {
	ta := newTestApp(t, nil)

	on, err := ta.ToggleFlash()
	if err != nil || !on || !ta.Status().Flash {
		t.Fatalf("Expected flash on, got %v (%v)", on, err)
	}
	on, err = ta.ToggleFlash()
	if err != nil || on {
		t.Fatalf("Expected flash off, got %v (%v)", on, err)
	}
}

func TestApp_UpdateLocation(t *testing.T) {
	ta := newTestApp(t, nil)

	if err := ta.UpdateLocation(model.Location{Latitude: 120}); !errors.Is(err, location.ErrInvalidFix) {
		t.Fatalf("Expected ErrInvalidFix, got %v", err)
	}

	fix := model.Location{Latitude: 52.23, Longitude: 21.01, Provider: "gps"}
	if err := ta.UpdateLocation(fix); err != nil {
		t.Fatalf("UpdateLocation failed: %v", err)
	}
	if got := ta.Status().Location; got.Latitude != 52.23 || got.Provider != "gps" {
		t.Errorf("Unexpected location %+v", got)
	}
}
