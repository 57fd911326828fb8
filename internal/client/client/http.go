package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/client/models"
)

// envelope mirrors the server's response body.
type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Token   string            `json:"token"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient returns a client for the API rooted at baseURL. timeout
// bounds every request, including reading the body.
func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *HTTPClient) Register(ctx context.Context, name, userName, email, password string) error {
	body := map[string]string{
		"name":     name,
		"username": userName,
		"email":    email,
		"password": password,
	}
	_, err := c.do(ctx, http.MethodPost, "/signup", body, false)
	return err
}

// Login authenticates and stores the returned token for later calls.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/login", map[string]string{"email": email, "password": password}, false)
	if err != nil {
		return "", err
	}
	if env.Token == "" {
		return "", errors.New("login response carries no token")
	}
	c.SetToken(env.Token)
	return env.Token, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, false)
	return err
}

func (c *HTTPClient) ListTasks(ctx context.Context) ([]*models.Task, error) {
	env, err := c.do(ctx, http.MethodGet, "/tasks", nil, true)
	if err != nil {
		return nil, err
	}
	tasks := make([]*models.Task, 0)
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &tasks); err != nil {
			return nil, fmt.Errorf("decode tasks: %w", err)
		}
	}
	return tasks, nil
}

func (c *HTTPClient) CreateTask(ctx context.Context, text string) (*models.Task, error) {
	env, err := c.do(ctx, http.MethodPost, "/tasks", map[string]string{"text": text}, true)
	if err != nil {
		return nil, err
	}
	return decodeTask(env)
}

func (c *HTTPClient) CompleteTask(ctx context.Context, id string) (*models.Task, error) {
	env, err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/complete", nil, true)
	if err != nil {
		return nil, err
	}
	return decodeTask(env)
}

func (c *HTTPClient) DeleteTask(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, true)
	return err
}

func decodeTask(env *envelope) (*models.Task, error) {
	var t models.Task
	if err := json.Unmarshal(env.Data, &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &t, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in any, authorized bool) (*envelope, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		token := c.Token()
		if token == "" {
			return nil, fmt.Errorf("%w: not logged in", ErrUnauthorized)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	env := &envelope{}
	if resp.StatusCode != http.StatusNoContent {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if len(raw) > 0 {
			// A non-JSON body still gets mapped by status below.
			_ = json.Unmarshal(raw, env)
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return env, nil
	}
	return nil, mapStatus(resp.StatusCode, env)
}

func mapStatus(code int, env *envelope) error {
	var sentinel error
	switch {
	case code == http.StatusBadRequest:
		sentinel = ErrBadRequest
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		sentinel = ErrUnauthorized
	case code == http.StatusNotFound:
		sentinel = ErrNotFound
	case code == http.StatusConflict:
		sentinel = ErrConflict
	case code >= 500:
		sentinel = ErrUnavailable
	default:
		sentinel = fmt.Errorf("unexpected status %d", code)
	}

	msg := env.Message
	if len(env.Errors) > 0 {
		fields := make([]string, 0, len(env.Errors))
		for k, v := range env.Errors {
			fields = append(fields, k+": "+v)
		}
		sort.Strings(fields)
		msg = strings.TrimSpace(msg + " (" + strings.Join(fields, "; ") + ")")
	}
	if msg == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}
