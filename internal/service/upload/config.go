// Package upload delivers captured items to a remote endpoint as multipart/form-data.
package upload

import (
	"net"
	"net/http"
	"time"

	appconfig "autosendpic/internal/config"
)

// Config is fixed when the sink is built.
type Config struct {
	URL      string
	User     string
	Password string

	// Timeout bounds a single request, measured from its start.
	Timeout time.Duration
	// Expiry is how long after capture an item may still be sent.
	Expiry time.Duration

	Retries    int
	RetryDelay time.Duration
}

// ConfigFrom extracts the upload settings from the application config.
func ConfigFrom(c *appconfig.Config) Config {
	return Config{
		URL:        c.UploadURL,
		User:       c.UploadUser,
		Password:   c.UploadPassword,
		Timeout:    c.Timeout(),
		Expiry:     c.Expiry(),
		Retries:    c.UploadRetries,
		RetryDelay: c.RetryDelay(),
	}
}

// newHTTPClient has no overall timeout; every job bounds its own request.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: nil,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}
