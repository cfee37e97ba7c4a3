package storage

import (
	"path/filepath"
	"strings"
	"time"

	"autosendpic/internal/config"
)

// Namer renders file names from a template containing config.TimestampPlaceholder.
type Namer struct {
	prefix string
	suffix string
	layout string
}

func NewNamer(template, layout string) *Namer {
	prefix, suffix, found := strings.Cut(template, config.TimestampPlaceholder)
	if !found {
		// Bez placeholdera każda nazwa byłaby taka sama
		ext := filepath.Ext(template)
		prefix, suffix = strings.TrimSuffix(template, ext)+"_", ext
	}
	return &Namer{prefix: prefix, suffix: suffix, layout: layout}
}

// Render returns the file name for a capture taken at t.
func (n *Namer) Render(t time.Time) string {
	return n.prefix + t.Format(n.layout) + n.suffix
}

// Parse recovers the capture time from a rendered file name.
func (n *Namer) Parse(filename string) (time.Time, bool) {
	if !strings.HasPrefix(filename, n.prefix) || !strings.HasSuffix(filename, n.suffix) {
		return time.Time{}, false
	}
	stamp := filename[len(n.prefix) : len(filename)-len(n.suffix)]
	if stamp == "" {
		return time.Time{}, false
	}

	t, err := time.ParseInLocation(n.layout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
