// Package capture turns a live frame feed into captured items: a periodic
// trigger arms the sampler, and the sampler encodes the next frame it sees.
package capture

import (
	"context"
	"errors"
	"image"
)

const (
	// SampleQuality is the JPEG quality of frames taken from the live feed.
	SampleQuality = 90
	// PictureQuality is the JPEG quality of one-shot full resolution pictures.
	PictureQuality = 70
)

var (
	// ErrNoSource is returned when the camera is not open.
	ErrNoSource = errors.New("capture: camera not available")
	// ErrIlluminationUnsupported is returned by sources without a light.
	ErrIlluminationUnsupported = errors.New("capture: illumination not supported")
)

// Frame is one raw frame of the live feed. It is only valid during the
// callback that received it.
type Frame interface {
	Bounds() image.Rectangle
	Encode(region image.Rectangle, quality int) ([]byte, error)
}

// Source is a camera able to push live frames and take pictures.
type Source interface {
	// Start begins pushing frames to onFrame from a goroutine owned by the source.
	Start(onFrame func(Frame)) error
	// Stop ends the feed and waits until onFrame is no longer called.
	Stop() error
	TakePicture(ctx context.Context, quality int) ([]byte, error)
	SetIllumination(on bool) error
}
