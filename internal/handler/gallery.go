package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"autosendpic/internal/dto"
	"autosendpic/internal/logger"
	"autosendpic/internal/repository"
)

// GetPicturesHandler returns a filtered page of catalogued pictures.
func GetPicturesHandler(repo repository.PictureRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &dto.PictureFilters{
			Provider: q.Get("provider"),
			After:    parseDate(q.Get("dateAfter")),
			Before:   endOfDay(parseDate(q.Get("dateBefore"))),
		}

		totalCount, err := repo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting pictures: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		filter.Limit = limit
		filter.Offset = (page - 1) * limit
		pictures, err := repo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying pictures from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		data := dto.PicturesData{
			Pictures:    pictures,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// ViewPictureHandler serves the JPEG bytes of the picture given by "id".
func ViewPictureHandler(repo repository.PictureRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "Id parameter is required", http.StatusBadRequest)
			return
		}

		pic, err := repo.GetByID(id)
		if err != nil {
			logger.Error("Error loading picture %s: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if pic == nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(pic.Data)))
		w.Header().Set("Content-Disposition", `inline; filename="`+pic.Filename+`"`)
		w.Write(pic.Data)
	}
}

// ClearPicturesHandler removes every picture from the catalog. Files in the
// output directory are left alone.
func ClearPicturesHandler(repo repository.PictureRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		if err := repo.DeleteAll(); err != nil {
			logger.Error("Error clearing catalog: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("Picture catalog cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date in the HTML input format "2006-01-02", in local time.
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

func endOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.Add(24*time.Hour - time.Nanosecond)
}
