package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"autosendpic/internal/apperr"
	"autosendpic/internal/model"

	"github.com/benbjohnson/clock"
)

// ErrJobUsed is returned when Run is called on a job that already ran.
var ErrJobUsed = errors.New("upload: job already run")

type State string

const (
	StatePending   State = "pending"
	StateInFlight  State = "in-flight"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateExpired   State = "expired"
)

// StatusError is returned (wrapped) when the endpoint answers with anything but 200 OK.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upload: unexpected response %s", e.Status)
}

// Job is a single attempt to send one item. It never retries; a retry is a
// new Job.
type Job struct {
	item     *model.CapturedItem
	deadline time.Time
	filename string
	cfg      Config
	client   *http.Client
	clock    clock.Clock

	mu    sync.Mutex
	state State
}

func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Deadline is the instant after which the item must no longer be sent.
func (j *Job) Deadline() time.Time {
	return j.deadline
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

// Run performs the request. A job whose deadline has already passed expires
// without touching the network.
func (j *Job) Run(ctx context.Context) error {
	const op = "upload.job"

	j.mu.Lock()
	if j.state != StatePending {
		j.mu.Unlock()
		return ErrJobUsed
	}
	now := j.clock.Now()
	if !now.Before(j.deadline) {
		j.state = StateExpired
		j.mu.Unlock()
		return apperr.New(apperr.KindExpired, op,
			fmt.Sprintf("item %s expired %s ago", j.item.ID, now.Sub(j.deadline).Round(time.Millisecond)))
	}
	j.state = StateInFlight
	j.mu.Unlock()

	body, contentType, err := encodeForm(j.item, j.filename, newBoundary())
	if err != nil {
		j.setState(StateFailed)
		return apperr.Wrap(apperr.KindSinkFailure, op, "error building request body", err)
	}

	// The clock only decides expiry; the network attempt is bounded in wall time.
	remaining := j.deadline.Sub(j.clock.Now())
	expiresFirst := remaining < j.cfg.Timeout
	if !expiresFirst {
		remaining = j.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, remaining)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.cfg.URL, body)
	if err != nil {
		j.setState(StateFailed)
		return apperr.Wrap(apperr.KindSinkFailure, op, "error creating request", err)
	}
	req.Header.Set("Content-Type", contentType)
	if j.cfg.User != "" || j.cfg.Password != "" {
		req.SetBasicAuth(j.cfg.User, j.cfg.Password)
	}

	resp, err := j.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			if expiresFirst {
				j.setState(StateExpired)
				return apperr.Wrap(apperr.KindExpired, op, "item expired while uploading", apperr.ErrTimeout)
			}
			j.setState(StateFailed)
			return apperr.Wrap(apperr.KindSinkFailure, op,
				fmt.Sprintf("no response within %s", j.cfg.Timeout), fmt.Errorf("%w: %v", apperr.ErrTimeout, err))
		}
		j.setState(StateFailed)
		return apperr.Wrap(apperr.KindSinkFailure, op, "request failed", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		j.setState(StateFailed)
		return apperr.Wrap(apperr.KindBadResponse, op, "endpoint rejected "+j.filename,
			&StatusError{StatusCode: resp.StatusCode, Status: resp.Status})
	}

	j.setState(StateSucceeded)
	return nil
}
