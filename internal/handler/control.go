package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"autosendpic/internal/apperr"
	"autosendpic/internal/dto"
	"autosendpic/internal/logger"
	"autosendpic/internal/model"
	"autosendpic/internal/service/delivery"
	"autosendpic/internal/service/location"
)

// Controller is the pipeline surface exposed over HTTP.
type Controller interface {
	StartSend(ctx context.Context) error
	StopSend()
	ToggleSend(ctx context.Context) (bool, error)
	ToggleFlash() (bool, error)
	Snapshot(ctx context.Context) (*model.CapturedItem, error)
	Status() dto.Status
	UpdateLocation(loc model.Location) error
}

// StartSendHandler handles POST /api/send/start.
func StartSendHandler(ctrl Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		if err := ctrl.StartSend(r.Context()); err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, ctrl.Status())
	}
}

// StopSendHandler handles POST /api/send/stop.
func StopSendHandler(ctrl Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		ctrl.StopSend()
		writeJSON(w, logger, http.StatusOK, ctrl.Status())
	}
}

// ToggleSendHandler handles POST /api/send/toggle.
func ToggleSendHandler(ctrl Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		if _, err := ctrl.ToggleSend(r.Context()); err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, ctrl.Status())
	}
}

// ToggleFlashHandler handles POST /api/flash/toggle.
func ToggleFlashHandler(ctrl Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		on, err := ctrl.ToggleFlash()
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]bool{"flash": on})
	}
}

// SnapshotHandler handles POST /api/snapshot and queues one full resolution picture.
func SnapshotHandler(ctrl Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		item, err := ctrl.Snapshot(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusAccepted, map[string]interface{}{
			"id":          item.ID,
			"captured_at": item.CapturedAt,
			"size":        len(item.Data),
		})
	}
}

// StatusHandler handles GET /api/status.
func StatusHandler(ctrl Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, ctrl.Status())
	}
}

// LocationHandler handles POST /api/location with a JSON fix.
func LocationHandler(ctrl Controller, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}

		var loc model.Location
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&loc); err != nil {
			http.Error(w, "Invalid location", http.StatusBadRequest)
			return
		}
		if err := ctrl.UpdateLocation(loc); err != nil {
			if errors.Is(err, location.ErrInvalidFix) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// writeError maps pipeline errors to HTTP statuses.
func writeError(w http.ResponseWriter, logger *logger.Logger, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindConfig:
		status = http.StatusUnprocessableEntity
	case apperr.KindCapture:
		status = http.StatusServiceUnavailable
	}
	if errors.Is(err, delivery.ErrNotRunning) {
		status = http.StatusConflict
	}

	logger.Warning("Request failed: %v", err)
	writeJSON(w, logger, status, map[string]string{
		"error": err.Error(),
		"kind":  string(apperr.KindOf(err)),
	})
}
