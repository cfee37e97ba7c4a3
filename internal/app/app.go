package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"autosendpic/internal/apperr"
	"autosendpic/internal/config"
	"autosendpic/internal/dto"
	"autosendpic/internal/logger"
	"autosendpic/internal/model"
	"autosendpic/internal/repository"
	"autosendpic/internal/repository/sqlite"
	"autosendpic/internal/route"
	"autosendpic/internal/service/capture"
	"autosendpic/internal/service/delivery"
	"autosendpic/internal/service/location"
	"autosendpic/internal/service/notify"
	"autosendpic/internal/service/storage"
	"autosendpic/internal/service/upload"
	"autosendpic/internal/service/websocket"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// App wires the capture pipeline, its sinks and the HTTP surface.
type App struct {
	config     *config.Config
	loadConfig func() *config.Config
	logger     *logger.Logger
	clock      clock.Clock
	session    string

	state    *capture.State
	camera   *capture.Camera
	sampler  *capture.Sampler
	trigger  *capture.Trigger
	tracker  *location.Tracker
	notifier *notify.Notifier
	hub      *websocket.HubService

	db       *sqlite.DB
	pictures repository.PictureRepository
	journal  repository.DeliveryRepository

	// mu serializes start/stop; the frame callback only reads manager.
	mu      sync.Mutex
	manager atomic.Pointer[delivery.Manager]
	active  atomic.Pointer[config.Config]
}

type Option func(*App)

// WithConfigLoader replaces the function used to reload settings on every start.
func WithConfigLoader(load func() *config.Config) Option {
	return func(a *App) { a.loadConfig = load }
}

func WithClock(c clock.Clock) Option {
	return func(a *App) { a.clock = c }
}

// NewApp builds the application around source. The catalog database is
// opened when cfg.DatabasePath is set.
func NewApp(cfg *config.Config, logger *logger.Logger, source capture.Source, opts ...Option) (*App, error) {
	a := &App{
		config:     cfg,
		loadConfig: func() *config.Config { return config.Load() },
		logger:     logger,
		clock:      clock.New(),
		session:    uuid.NewString(),
		state:      &capture.State{},
		notifier:   notify.New(logger),
		hub:        websocket.NewHubService(logger),
	}
	for _, opt := range opts {
		opt(a)
	}

	if cfg.CatalogEnabled() {
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		a.db = db
		a.pictures = sqlite.NewPictureRepository(db)
		a.journal = sqlite.NewDeliveryRepository(db)
	}

	a.tracker = location.NewTracker(a.clock)
	a.camera = capture.NewCamera(source, logger)
	a.sampler = capture.NewSampler(a.enqueue, a.tracker, logger,
		capture.WithSamplerClock(a.clock),
		capture.WithErrorReporter(a.reportCaptureError))
	a.trigger = capture.NewTrigger(a.state, a.camera, a.sampler, logger,
		capture.WithTriggerClock(a.clock))

	if err := a.notifier.OnError(func(ev dto.ErrorEvent) {
		a.hub.BroadcastEvent(dto.Event{Type: "error", Error: &ev})
	}); err != nil {
		return nil, err
	}
	if err := a.notifier.OnDelivery(func(ev dto.DeliveryEvent) {
		a.hub.BroadcastEvent(dto.Event{Type: "delivery", Delivery: &ev})
	}); err != nil {
		return nil, err
	}

	return a, nil
}

// Run opens the camera and serves HTTP until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.camera.Open(a.sampler.OnFrame); err != nil {
		a.logger.Error("Camera unavailable: %v", err)
	}

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", a.config.Port),
		Handler: route.SetupRoutes(route.Deps{
			Controller: a,
			Hub:        a.hub,
			Pictures:   a.pictures,
			Config:     a.config,
			Logger:     a.logger,
			Session:    a.session,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	a.logger.Info("🚀 AutoSendPic server on http://localhost:%d", a.config.Port)

	err := g.Wait()
	return multierr.Append(err, a.Close())
}

// Close stops sending and releases the camera and the catalog.
func (a *App) Close() error {
	a.StopSend()

	var errs error
	errs = multierr.Append(errs, a.camera.Close())
	a.notifier.Wait()
	if a.db != nil {
		errs = multierr.Append(errs, a.db.Close())
	}
	return errs
}

// StartSend reloads the settings and starts capturing and delivering.
// Invalid settings keep the pipeline stopped.
func (a *App) StartSend(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.DeliveryEnabled() {
		return nil
	}

	cfg := a.loadConfig()
	if err := cfg.Validate(); err != nil {
		a.logger.Error("Cannot start sending: %v", err)
		a.publishError(err, "", "")
		return err
	}

	sinks := a.buildSinks(cfg)
	manager := delivery.NewManager(a.logger,
		delivery.WithReporter(a.report),
		delivery.WithClock(a.clock))
	if err := manager.Start(sinks...); err != nil {
		return apperr.Wrap(apperr.KindConfig, "app.start", "cannot start delivery", err)
	}
	a.manager.Store(manager)

	if !a.camera.Available() {
		if err := a.camera.Open(a.sampler.OnFrame); err != nil {
			a.logger.Warning("Camera still unavailable: %v", err)
			a.publishError(err, "", "")
		}
	}

	a.state.SetFlash(cfg.FlashEnabled)
	if err := a.camera.SetIllumination(cfg.FlashEnabled); err != nil {
		a.logger.Warning("Error applying flash setting: %v", err)
	}

	a.active.Store(cfg)
	a.state.EnableDelivery()
	a.trigger.Start(cfg.Interval())

	a.logger.Info("▶️ Sending started every %s to %v", cfg.Interval(), manager.SinkNames())
	return nil
}

// StopSend stops the trigger, drains the current delivery and resets the state.
func (a *App) StopSend() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.trigger.Stop()
	wasSending := a.state.DeliveryEnabled()
	a.state.Reset()
	if err := a.camera.SetIllumination(false); err != nil {
		a.logger.Warning("Error switching flash off: %v", err)
	}

	if m := a.manager.Swap(nil); m != nil {
		m.Stop()
	}
	if wasSending {
		a.logger.Info("⏹️ Sending stopped")
	}
}

// ToggleSend starts or stops sending and returns whether it is now on.
func (a *App) ToggleSend(ctx context.Context) (bool, error) {
	if a.state.DeliveryEnabled() {
		a.StopSend()
		return false, nil
	}
	if err := a.StartSend(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ToggleFlash flips the illumination and applies it to the camera.
func (a *App) ToggleFlash() (bool, error) {
	on := a.state.ToggleFlash()
	if err := a.camera.SetIllumination(on); err != nil {
		a.state.SetFlash(!on)
		return !on, err
	}
	return on, nil
}

// Snapshot queues one full resolution picture outside the schedule.
func (a *App) Snapshot(ctx context.Context) (*model.CapturedItem, error) {
	if a.manager.Load() == nil {
		return nil, delivery.ErrNotRunning
	}
	return a.sampler.Snapshot(ctx, a.camera)
}

func (a *App) UpdateLocation(loc model.Location) error {
	return a.tracker.Update(loc)
}

func (a *App) Status() dto.Status {
	cfg := a.config
	if active := a.active.Load(); active != nil {
		cfg = active
	}

	status := dto.Status{
		Sending:         a.state.DeliveryEnabled(),
		Flash:           a.state.FlashEnabled(),
		CameraAvailable: a.camera.Available(),
		IntervalSeconds: cfg.CaptureInterval,
		Location:        a.tracker.Last(),
		Sinks:           []string{},
	}
	if m := a.manager.Load(); m != nil {
		status.Pending = m.Pending()
		status.Sinks = m.SinkNames()
	}
	if a.journal != nil {
		stats, err := a.journal.GetStats()
		if err != nil {
			a.logger.Error("Error reading delivery stats: %v", err)
		} else {
			status.Deliveries = stats
		}
	}
	return status
}

func (a *App) enqueue(item *model.CapturedItem) bool {
	m := a.manager.Load()
	if m == nil {
		return false
	}
	return m.Enqueue(item)
}

func (a *App) buildSinks(cfg *config.Config) []delivery.Sink {
	namer := storage.NewNamer(cfg.FilenameTemplate, cfg.TimestampLayout)

	var sinks []delivery.Sink
	if cfg.LocalEnabled {
		sinks = append(sinks, storage.NewLocalSink(storage.LocalConfig{
			Directory: cfg.OutputDirectory,
			Namer:     namer,
		}, a.logger))
	}
	if a.pictures != nil {
		sinks = append(sinks, storage.NewCatalogSink(a.pictures, namer, a.logger))
	}
	if cfg.UploadEnabled() {
		sinks = append(sinks, upload.NewSink(upload.ConfigFrom(cfg), namer, a.logger, upload.WithClock(a.clock)))
	}
	return sinks
}

// report records a sink outcome in the journal and notifies viewers.
func (a *App) report(r delivery.Report) {
	var reason string
	if r.Err != nil {
		reason = r.Err.Error()
	}

	if a.journal != nil {
		if _, err := a.journal.Insert(&model.Delivery{
			ItemID:      r.ItemID,
			Sink:        r.Sink,
			Status:      string(r.Status),
			Reason:      reason,
			AttemptedAt: r.StartedAt,
			DurationMs:  r.Duration.Milliseconds(),
		}); err != nil {
			a.logger.Error("Error writing delivery journal: %v", err)
		}
	}

	a.notifier.PublishDelivery(dto.DeliveryEvent{
		ItemID:     r.ItemID,
		Sink:       r.Sink,
		Status:     string(r.Status),
		DurationMs: r.Duration.Milliseconds(),
		Time:       r.StartedAt,
	})
	if r.Err != nil {
		a.publishError(r.Err, r.Sink, r.ItemID)
	}
}

func (a *App) reportCaptureError(err error) {
	a.publishError(err, "", "")
}

func (a *App) publishError(err error, sink, itemID string) {
	category := string(apperr.KindOf(err))
	if category == string(apperr.KindUnknown) {
		category = string(apperr.KindSinkFailure)
	}
	a.notifier.PublishError(dto.ErrorEvent{
		Category: category,
		Message:  err.Error(),
		Sink:     sink,
		ItemID:   itemID,
		Time:     a.clock.Now(),
	})
}
