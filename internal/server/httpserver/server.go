// Package httpserver exposes the task API over HTTP using chi. It owns the
// auth gate, request decoding, and the mapping from service errors to
// status codes.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/taskkeeper/internal/logging"
	"github.com/dmitrijs2005/taskkeeper/internal/server/auth"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	"github.com/dmitrijs2005/taskkeeper/internal/server/validation"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

type UserService interface {
	SignUp(ctx context.Context, d validation.SignUpDraft) (*models.User, error)
	Login(ctx context.Context, d validation.LoginDraft) (string, error)
}

type TaskService interface {
	Create(ctx context.Context, ownerID string, d validation.TaskDraft) (*models.Task, error)
	List(ctx context.Context, ownerID string) ([]*models.Task, error)
	Complete(ctx context.Context, ownerID, taskID string) (*models.Task, error)
	Delete(ctx context.Context, ownerID, taskID string) error
}

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Pinger reports storage health; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	users          UserService
	tasks          TaskService
	verifier       TokenVerifier
	db             Pinger
	log            logging.Logger
	requestTimeout time.Duration
}

func NewServer(users UserService, tasks TaskService, verifier TokenVerifier, db Pinger, log logging.Logger, requestTimeout time.Duration) *Server {
	return &Server{
		users:          users,
		tasks:          tasks,
		verifier:       verifier,
		db:             db,
		log:            log.With("component", "http"),
		requestTimeout: requestTimeout,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.traceRequests)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	if s.requestTimeout > 0 {
		r.Use(middleware.Timeout(s.requestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	r.Get("/healthz", s.handleHealth)
	r.Post("/signup", s.handleSignUp)
	r.Post("/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.authGate)

		r.Get("/tasks", s.handleListTasks)
		r.Post("/tasks", s.handleCreateTask)
		r.Post("/tasks/{id}/complete", s.handleCompleteTask)
		r.Delete("/tasks/{id}", s.handleDeleteTask)
	})

	return r
}
