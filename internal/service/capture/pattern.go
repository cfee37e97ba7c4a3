package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// PatternSource produces synthetic frames, for machines without a camera.
type PatternSource struct {
	width, height               int
	pictureWidth, pictureHeight int
	interval                    time.Duration
	clock                       clock.Clock

	mu    sync.Mutex
	seq   int
	light bool
	stop  chan struct{}
	done  chan struct{}
}

type PatternOption func(*PatternSource)

func WithPatternClock(c clock.Clock) PatternOption {
	return func(p *PatternSource) { p.clock = c }
}

// NewPatternSource emits width x height frames fps times per second and takes
// pictures of pictureWidth x pictureHeight.
func NewPatternSource(width, height, pictureWidth, pictureHeight, fps int, opts ...PatternOption) *PatternSource {
	if fps < 1 {
		fps = 1
	}
	p := &PatternSource{
		width:         width,
		height:        height,
		pictureWidth:  pictureWidth,
		pictureHeight: pictureHeight,
		interval:      time.Second / time.Duration(fps),
		clock:         clock.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PatternSource) Start(onFrame func(Frame)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		return fmt.Errorf("pattern source already started")
	}

	ticker := p.clock.Ticker(p.interval)
	p.stop = make(chan struct{})
	p.done = make(chan struct{})

	go func(stop <-chan struct{}, done chan<- struct{}) {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				onFrame(NewImageFrame(p.render(p.width, p.height)))
			}
		}
	}(p.stop, p.done)

	return nil
}

func (p *PatternSource) Stop() error {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}

func (p *PatternSource) TakePicture(ctx context.Context, quality int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frame := NewImageFrame(p.render(p.pictureWidth, p.pictureHeight))
	return frame.Encode(frame.Bounds(), quality)
}

func (p *PatternSource) SetIllumination(on bool) error {
	p.mu.Lock()
	p.light = on
	p.mu.Unlock()
	return nil
}

// render draws a diagonal gradient that shifts with every frame.
func (p *PatternSource) render(width, height int) *image.RGBA {
	p.mu.Lock()
	p.seq++
	seq, light := p.seq, p.light
	p.mu.Unlock()

	var boost uint8
	if light {
		boost = 64
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8((x + y + seq*8) % 192)
			img.SetRGBA(x, y, color.RGBA{R: v + boost, G: uint8(y % 192), B: uint8(x % 192), A: 255})
		}
	}
	return img
}

// imageFrame adapts an in-memory image to Frame.
type imageFrame struct {
	img *image.RGBA
}

func NewImageFrame(img *image.RGBA) Frame {
	return imageFrame{img: img}
}

func (f imageFrame) Bounds() image.Rectangle {
	return f.img.Bounds()
}

func (f imageFrame) Encode(region image.Rectangle, quality int) ([]byte, error) {
	if !region.In(f.img.Bounds()) || region.Empty() {
		return nil, fmt.Errorf("region %v outside frame %v", region, f.img.Bounds())
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.img.SubImage(region), &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
