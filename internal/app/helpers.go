package app

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/klabast/wb-services/habit-tracker/internal/habit"
)

// Error messages
const (
	ErrInvalidID         = "Invalid habit id"
	ErrInvalidDateFormat = "Invalid date format"
	ErrInvalidBody       = "Invalid request body"
	ErrFailedToSave      = "Failed to save habits"
	ErrInternalServer    = "Internal server error"
)

// Status values of mutation responses
const (
	StatusOK      = "ok"
	StatusIgnored = "ignored"
)

// writeJSON encodes v with the given status code and logs encoding errors.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encoding response failed", zap.Error(err))
	}
}

// writeStatus writes {"status": status} plus optional extra fields.
func (s *Server) writeStatus(w http.ResponseWriter, status string, extra map[string]any) {
	body := map[string]any{"status": status}
	for k, v := range extra {
		body[k] = v
	}
	s.writeJSON(w, http.StatusOK, body)
}

// pathID parses the {id} path value, writing 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, ErrInvalidID, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryDate reads the optional ?date= parameter, defaulting to today.
func (s *Server) queryDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	return s.parseDateOrToday(w, r.URL.Query().Get("date"))
}

func (s *Server) parseDateOrToday(w http.ResponseWriter, value string) (time.Time, bool) {
	if value == "" {
		return s.store.Today(), true
	}
	d, err := habit.ParseDate(value)
	if err != nil {
		http.Error(w, ErrInvalidDateFormat, http.StatusBadRequest)
		return time.Time{}, false
	}
	return d, true
}

// persistFailed reports a store write error to the client.
func (s *Server) persistFailed(w http.ResponseWriter, op string, err error) {
	s.log.Error("saving habits failed", zap.String("op", op), zap.Error(err))
	http.Error(w, ErrFailedToSave, http.StatusInternalServerError)
}
