// Package client is the API client for the task service. It holds the token
// pair for a session, attaches the access token to every call, and recovers
// from access-token expiry with a single transparent refresh-and-retry.
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
	"strconv"
	"sync"
	"time"

	"taskhive/internal/domain"

	"golang.org/x/sync/singleflight"
)

// ErrSessionExpired means the refresh token itself was rejected; both tokens
// have been cleared and the user has to log in again.
var ErrSessionExpired = errors.New("session expired")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %d %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string

	// refreshGroup coalesces concurrent refresh attempts: when several
	// in-flight requests hit a 403 at once, only one refresh call goes out
	// and the rest wait on its result.
	refreshGroup singleflight.Group

	// OnSessionExpired fires after a failed refresh has cleared the tokens;
	// the frontend hooks its login redirect here. May be nil.
	OnSessionExpired func()
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetTokens replaces the held token pair.
func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	c.accessToken = access
	c.refreshToken = refresh
	c.mu.Unlock()
}

// Tokens returns the currently held token pair.
func (c *Client) Tokens() (access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

// Register creates an account and returns the new user id. No tokens are
// issued at registration.
func (c *Client) Register(ctx context.Context, email, password string) (int64, error) {
	var out struct {
		UserID int64 `json:"userId"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, body, &out); err != nil {
		return 0, err
	}
	return out.UserID, nil
}

// Login authenticates and stores the returned token pair on the client.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return err
	}
	c.SetTokens(out.AccessToken, out.RefreshToken)
	return nil
}

type ListOptions struct {
	Page   int
	Limit  int
	Status domain.TaskStatus
	Search string
}

type TaskPage struct {
	Tasks      []*domain.Task `json:"tasks"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
}

func (c *Client) ListTasks(ctx context.Context, opts ListOptions) (*TaskPage, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Status != "" {
		q.Set("status", string(opts.Status))
	}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}

	var out TaskPage
	if err := c.do(ctx, http.MethodGet, "/tasks", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTask(ctx context.Context, title, description string) (*domain.Task, error) {
	var out domain.Task
	body := map[string]string{"title": title, "description": description}
	if err := c.do(ctx, http.MethodPost, "/tasks", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTask(ctx context.Context, id int64, upd domain.TaskUpdate) (*domain.Task, error) {
	body := make(map[string]any)
	if upd.Title != nil {
		body["title"] = *upd.Title
	}
	if upd.Description != nil {
		body["description"] = *upd.Description
	}
	if upd.Status != nil {
		body["status"] = *upd.Status
	}

	var out domain.Task
	path := "/tasks/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodPatch, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ToggleTask(ctx context.Context, id int64) (*domain.Task, error) {
	var out domain.Task
	path := "/tasks/" + strconv.FormatInt(id, 10) + "/toggle"
	if err := c.do(ctx, http.MethodPatch, path, nil, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	path := "/tasks/" + strconv.FormatInt(id, 10)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// do performs one API call. On a 403 — the server's "credential offered but
// rejected" signal — it refreshes the access token and retries the original
// request exactly once. A 401 is never retried: no credential was sent, so
// refreshing would not help.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	access, _ := c.Tokens()
	status, data, err := c.send(ctx, method, path, query, body, access)
	if err != nil {
		return err
	}

	if status == http.StatusForbidden && access != "" {
		newAccess, rerr := c.refreshAccess(ctx)
		if rerr != nil {
			return rerr
		}
		status, data, err = c.send(ctx, method, path, query, body, newAccess)
		if err != nil {
			return err
		}
	}

	if status >= 400 {
		return &APIError{Status: status, Message: errorMessage(data)}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// refreshAccess trades the refresh token for a new access token. Concurrent
// callers share one in-flight refresh. Any failure — network, rejection, or
// no refresh token held — ends the session: both tokens are cleared and
// OnSessionExpired fires.
func (c *Client) refreshAccess(ctx context.Context) (string, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		_, refresh := c.Tokens()
		if refresh == "" {
			c.expireSession()
			return nil, ErrSessionExpired
		}

		body := map[string]string{"refreshToken": refresh}
		status, data, err := c.send(ctx, http.MethodPost, "/auth/refresh", nil, body, "")
		if err != nil || status != http.StatusOK {
			c.expireSession()
			return nil, ErrSessionExpired
		}

		var out struct {
			AccessToken string `json:"accessToken"`
		}
		if err := json.Unmarshal(data, &out); err != nil || out.AccessToken == "" {
			c.expireSession()
			return nil, ErrSessionExpired
		}

		c.mu.Lock()
		c.accessToken = out.AccessToken
		c.mu.Unlock()
		return out.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) expireSession() {
	c.mu.Lock()
	c.accessToken = ""
	c.refreshToken = ""
	c.mu.Unlock()
	if c.OnSessionExpired != nil {
		c.OnSessionExpired()
	}
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any, access string) (int, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return string(data)
}
