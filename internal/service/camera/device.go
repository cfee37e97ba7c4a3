// Package camera implements capture.Source on top of an OpenCV video device.
package camera

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"autosendpic/internal/config"
	"autosendpic/internal/logger"
	"autosendpic/internal/service/capture"

	"gocv.io/x/gocv"
)

const (
	readRetryDelay = 100 * time.Millisecond
	// Klatki odrzucane po zmianie rozdzielczości
	warmupFrames = 2
)

type Config struct {
	DeviceID      int
	PreviewWidth  int
	PreviewHeight int
	PictureWidth  int
	PictureHeight int
}

func ConfigFrom(c *config.Config) Config {
	return Config{
		DeviceID:      c.CameraDevice,
		PreviewWidth:  c.PreviewWidth,
		PreviewHeight: c.PreviewHeight,
		PictureWidth:  c.PictureWidth,
		PictureHeight: c.PictureHeight,
	}
}

// Device streams preview frames from a video device. Reads and resolution
// changes share one lock, so a picture never interleaves with a preview read.
type Device struct {
	cfg    Config
	logger *logger.Logger

	mu      sync.Mutex
	capture *gocv.VideoCapture
	stop    chan struct{}
	done    chan struct{}
}

func NewDevice(cfg Config, logger *logger.Logger) *Device {
	return &Device{
		cfg:    cfg,
		logger: logger,
	}
}

func (d *Device) Start(onFrame func(capture.Frame)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture != nil {
		return fmt.Errorf("device %d already open", d.cfg.DeviceID)
	}

	vc, err := gocv.OpenVideoCapture(d.cfg.DeviceID)
	if err != nil {
		return fmt.Errorf("error opening device %d: %w", d.cfg.DeviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("device %d did not open", d.cfg.DeviceID)
	}

	d.capture = vc
	d.setSize(d.cfg.PreviewWidth, d.cfg.PreviewHeight)

	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.readLoop(onFrame, d.stop, d.done)

	d.logger.Info("📷 Video device %d opened at %dx%d", d.cfg.DeviceID, d.cfg.PreviewWidth, d.cfg.PreviewHeight)
	return nil
}

func (d *Device) readLoop(onFrame func(capture.Frame), stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	mat := gocv.NewMat()
	defer mat.Close()

	for {
		select {
		case <-stop:
			return
		default:
		}

		d.mu.Lock()
		ok := d.capture.Read(&mat)
		d.mu.Unlock()

		if !ok || mat.Empty() {
			select {
			case <-stop:
				return
			case <-time.After(readRetryDelay):
			}
			continue
		}

		onFrame(matFrame{mat: &mat})
	}
}

func (d *Device) Stop() error {
	d.mu.Lock()
	stop, done := d.stop, d.done
	d.stop, d.done = nil, nil
	d.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done

	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.capture.Close()
	d.capture = nil
	return err
}

// TakePicture switches the device to picture resolution for one frame.
func (d *Device) TakePicture(ctx context.Context, quality int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture == nil {
		return nil, capture.ErrNoSource
	}

	d.setSize(d.cfg.PictureWidth, d.cfg.PictureHeight)
	defer d.setSize(d.cfg.PreviewWidth, d.cfg.PreviewHeight)

	mat := gocv.NewMat()
	defer mat.Close()

	for i := 0; i <= warmupFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !d.capture.Read(&mat) {
			return nil, fmt.Errorf("error reading frame from device %d", d.cfg.DeviceID)
		}
	}
	if mat.Empty() {
		return nil, fmt.Errorf("device %d returned an empty frame", d.cfg.DeviceID)
	}

	frame := matFrame{mat: &mat}
	return frame.Encode(frame.Bounds(), quality)
}

// SetIllumination is not available through the video capture API.
func (d *Device) SetIllumination(on bool) error {
	return capture.ErrIlluminationUnsupported
}

func (d *Device) setSize(width, height int) {
	if width > 0 && height > 0 {
		d.capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
		d.capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
}

type matFrame struct {
	mat *gocv.Mat
}

func (f matFrame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.mat.Cols(), f.mat.Rows())
}

func (f matFrame) Encode(region image.Rectangle, quality int) ([]byte, error) {
	if region.Empty() || !region.In(f.Bounds()) {
		return nil, fmt.Errorf("region %v outside frame %v", region, f.Bounds())
	}

	roi := f.mat.Region(region)
	defer roi.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, roi, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("error encoding frame: %w", err)
	}
	defer buf.Close()

	// Bufor należy do OpenCV
	return append([]byte(nil), buf.GetBytes()...), nil
}
