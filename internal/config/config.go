package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"autosendpic/internal/apperr"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

// TimestampPlaceholder is substituted with the capture time in FilenameTemplate.
const TimestampPlaceholder = "{timestamp}"

const (
	CameraSourceDevice  = "device"
	CameraSourcePattern = "pattern"
)

// Config is immutable once loaded; a reload builds a new one.
type Config struct {
	Port         int
	Password     string
	LogDirectory string

	CaptureInterval int // Sekundy między zdjęciami
	FlashEnabled    bool

	LocalEnabled     bool
	OutputDirectory  string
	FilenameTemplate string
	TimestampLayout  string

	UploadURL        string
	UploadUser       string
	UploadPassword   string
	UploadTimeout    int // Sekundy na jedną próbę wysłania
	UploadExpiry     int // Maksymalny wiek zdjęcia w kolejce w sekundach
	UploadRetries    int
	UploadRetryDelay int // Milisekundy

	DatabasePath string

	CameraSource  string
	CameraDevice  int
	PreviewWidth  int
	PreviewHeight int
	PictureWidth  int
	PictureHeight int
	PatternFPS    int
}

// Load builds a fresh Config. Process environment wins over .env files,
// which win over defaults; the environment itself is never modified, so a
// later Load sees edits made to the files in between.
func Load(envFiles ...string) *Config {
	e := newEnv(envFiles)

	return &Config{
		Port:         e.getInt("PORT", 8080),
		Password:     e.get("PASSWORD", "changeme"),
		LogDirectory: e.get("LOG_DIR", filepath.Join(".", "logs")),

		CaptureInterval: e.getInt("CAPTURE_INTERVAL", 5),
		FlashEnabled:    e.getBool("ENABLE_FLASH", false),

		LocalEnabled:     e.getBool("ENABLE_LOCAL", true),
		OutputDirectory:  e.get("OUTPUT_DIR", filepath.Join(".", "pictures")),
		FilenameTemplate: e.get("FILENAME_TEMPLATE", "pic_"+TimestampPlaceholder+".jpg"),
		TimestampLayout:  e.get("TIMESTAMP_LAYOUT", "2006-01-02-15-04-05"),

		UploadURL:        e.get("UPLOAD_URL", ""),
		UploadUser:       e.get("UPLOAD_USER", ""),
		UploadPassword:   e.get("UPLOAD_PASSWORD", ""),
		UploadTimeout:    e.getInt("UPLOAD_TIMEOUT", 20),
		UploadExpiry:     e.getInt("UPLOAD_EXPIRY", 60),
		UploadRetries:    e.getInt("UPLOAD_RETRIES", 0),
		UploadRetryDelay: e.getInt("UPLOAD_RETRY_DELAY_MS", 500),

		DatabasePath: e.get("DB_PATH", filepath.Join(".", "data", "pictures.db")),

		CameraSource:  e.get("CAMERA_SOURCE", CameraSourceDevice),
		CameraDevice:  e.getInt("CAMERA_DEVICE", 0),
		PreviewWidth:  e.getInt("PREVIEW_WIDTH", 640),
		PreviewHeight: e.getInt("PREVIEW_HEIGHT", 480),
		PictureWidth:  e.getInt("PICTURE_WIDTH", 1920),
		PictureHeight: e.getInt("PICTURE_HEIGHT", 1080),
		PatternFPS:    e.getInt("PATTERN_FPS", 10),
	}
}

// Interval returns the capture interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.CaptureInterval) * time.Second
}

// Timeout returns the per-attempt upload timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.UploadTimeout) * time.Second
}

// Expiry returns how long a captured item stays eligible for upload.
func (c *Config) Expiry() time.Duration {
	return time.Duration(c.UploadExpiry) * time.Second
}

// RetryDelay returns the initial backoff between upload jobs for the same item.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.UploadRetryDelay) * time.Millisecond
}

// UploadEnabled reports whether the HTTP sink should be registered.
func (c *Config) UploadEnabled() bool {
	return c.UploadURL != ""
}

// CatalogEnabled reports whether the SQLite catalog sink should be registered.
func (c *Config) CatalogEnabled() bool {
	return c.DatabasePath != ""
}

// Validate checks every setting the pipeline depends on and reports all problems at once.
// The output directory is created when missing.
func (c *Config) Validate() error {
	var errs error

	if c.CaptureInterval < 1 {
		errs = multierr.Append(errs, fmt.Errorf("capture interval must be at least 1s, got %d", c.CaptureInterval))
	}
	if c.UploadTimeout < 1 {
		errs = multierr.Append(errs, fmt.Errorf("upload timeout must be at least 1s, got %d", c.UploadTimeout))
	}
	if c.UploadExpiry < c.UploadTimeout {
		errs = multierr.Append(errs, fmt.Errorf("upload expiry (%ds) must not be shorter than the timeout (%ds)", c.UploadExpiry, c.UploadTimeout))
	}
	if c.UploadRetries < 0 {
		errs = multierr.Append(errs, fmt.Errorf("upload retries must not be negative, got %d", c.UploadRetries))
	}
	if c.UploadRetries > 0 && c.UploadRetryDelay < 1 {
		errs = multierr.Append(errs, fmt.Errorf("upload retry delay must be at least 1ms when retries are enabled, got %d", c.UploadRetryDelay))
	}
	if !c.LocalEnabled && !c.UploadEnabled() && !c.CatalogEnabled() {
		errs = multierr.Append(errs, fmt.Errorf("no destination enabled"))
	}

	if c.LocalEnabled {
		if !strings.Contains(c.FilenameTemplate, TimestampPlaceholder) {
			errs = multierr.Append(errs, fmt.Errorf("filename template %q must contain %s", c.FilenameTemplate, TimestampPlaceholder))
		}
		if err := checkWritable(c.OutputDirectory); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.UploadEnabled() {
		if err := checkURL(c.UploadURL); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	switch c.CameraSource {
	case CameraSourceDevice, CameraSourcePattern:
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown camera source %q", c.CameraSource))
	}

	if errs != nil {
		return apperr.Wrap(apperr.KindConfig, "config.validate", "invalid settings", errs)
	}
	return nil
}

// checkWritable creates dir if needed and tests it with a temporary file.
func checkWritable(dir string) error {
	if dir == "" {
		return fmt.Errorf("output directory is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("output directory %s: %w", dir, err)
	}
	check, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := check.Name()
	check.Close()
	os.Remove(name)
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed upload url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("upload url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("upload url %q has no host", raw)
	}
	return nil
}

// env resolves settings from the process environment and values read from .env files.
type env map[string]string

func newEnv(files []string) env {
	if len(files) == 0 {
		files = []string{".env"}
	}

	e := env{}
	for _, f := range files {
		// Brak pliku .env nie jest błędem
		vars, err := godotenv.Read(f)
		if err != nil {
			continue
		}
		for k, v := range vars {
			// pierwszy plik wygrywa, jak w godotenv.Load
			if _, ok := e[k]; !ok {
				e[k] = v
			}
		}
	}
	return e
}

func (e env) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return e[key]
}

func (e env) get(key, defaultValue string) string {
	if value := e.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func (e env) getInt(key string, defaultValue int) int {
	if value := e.lookup(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (e env) getBool(key string, defaultValue bool) bool {
	if value := e.lookup(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
