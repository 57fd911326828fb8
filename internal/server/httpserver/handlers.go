package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/taskkeeper/internal/server/auth"
	"github.com/dmitrijs2005/taskkeeper/internal/server/validation"
)

type signUpRequest struct {
	Name     string `json:"name"`
	UserName string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// createTaskRequest has no owner field: ownership comes from the token.
type createTaskRequest struct {
	Text string `json:"text"`
}

// decode reads one JSON object into dst. Unknown fields are ignored.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}
	// exactly one JSON value; trailing whitespace is fine
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeFailure(w, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}
	return true
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decode(w, r, &req) {
		return
	}

	draft, err := validation.NewSignUp(req.Name, req.UserName, req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.users.SignUp(r.Context(), draft); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{Status: statusSuccess, Message: "User registered successfully"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	draft, err := validation.NewLogin(req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.users.Login(r.Context(), draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Status: statusSuccess, Token: token})
}

// ownerID is only called behind authGate.
func ownerID(r *http.Request) string {
	c, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return ""
	}
	return c.UserID
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.tasks.List(r.Context(), ownerID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: statusSuccess, Data: toTaskResponses(list)})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if !decode(w, r, &req) {
		return
	}

	draft, err := validation.NewTask(req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	task, err := s.tasks.Create(r.Context(), ownerID(r), draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		Status:  statusSuccess,
		Message: "Task created successfully",
		Data:    toTaskResponse(task),
	})
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.Complete(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: statusSuccess, Data: toTaskResponse(task)})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.tasks.Delete(r.Context(), ownerID(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.log.Warn(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, envelope{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: "ok"})
}
