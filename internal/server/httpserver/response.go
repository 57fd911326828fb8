package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	"github.com/dmitrijs2005/taskkeeper/internal/server/validation"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
	statusError   = "error"

	genericErrorMessage = "Something went wrong. Please try again."
)

type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Token   string            `json:"token,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type taskResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Status    string    `json:"status"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

func toTaskResponse(t *models.Task) taskResponse {
	return taskResponse{
		ID:        t.ID,
		Text:      t.Text,
		Status:    string(t.Status),
		OwnerID:   t.OwnerID,
		CreatedAt: t.CreatedAt.UTC(),
	}
}

func toTaskResponses(list []*models.Task) []taskResponse {
	out := make([]taskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTaskResponse(t))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeFailure(w http.ResponseWriter, status int, msg string, fields map[string]string) {
	writeJSON(w, status, envelope{Status: statusFailure, Message: msg, Errors: fields})
}

// writeError maps a service error to a response. Anything unrecognized is
// logged and answered with a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve validation.Errors

	switch {
	case errors.As(err, &ve):
		writeFailure(w, http.StatusBadRequest, "Validation failed", ve)
	case errors.Is(err, common.ErrDuplicateCredential):
		writeFailure(w, http.StatusBadRequest, "A user with this username or email already exists", nil)
	case errors.Is(err, common.ErrorNotFound):
		writeFailure(w, http.StatusNotFound, "Task not found", nil)
	case errors.Is(err, common.ErrorUnauthorized):
		writeFailure(w, http.StatusUnauthorized, "Invalid email or password", nil)
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		writeFailure(w, http.StatusForbidden, "Invalid or expired token", nil)
	case errors.Is(err, common.ErrAlreadyCompleted):
		writeFailure(w, http.StatusConflict, "Task is already completed", nil)
	default:
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Status: statusError, Message: genericErrorMessage})
	}
}
