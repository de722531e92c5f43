package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"taskhive/internal/domain"
	apphttp "taskhive/internal/http"
	"taskhive/internal/http/handlers"
	"taskhive/internal/service"

	"github.com/gin-gonic/gin"
)

// In-memory repositories backing the handler tests. Same contract as the
// pgx implementations: owner-scoped reads, ErrNotFound for foreign rows,
// newest-created-first listing.

type memUsers struct {
	mu    sync.Mutex
	seq   int64
	users map[string]*domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]*domain.User)}
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return domain.ErrEmailTaken
	}
	m.seq++
	u.ID = m.seq
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.Email] = &cp
	return nil
}

type memTasks struct {
	mu    sync.Mutex
	seq   int64
	tasks map[int64]*domain.Task
	base  time.Time
}

func newMemTasks() *memTasks {
	return &memTasks{tasks: make(map[int64]*domain.Task), base: time.Now()}
}

func (m *memTasks) Create(_ context.Context, t *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t.ID = m.seq
	if t.Status == "" {
		t.Status = domain.TaskPending
	}
	// strictly increasing creation times so ordering is deterministic
	t.CreatedAt = m.base.Add(time.Duration(m.seq) * time.Second)
	t.UpdatedAt = t.CreatedAt
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *memTasks) GetByID(_ context.Context, id, userID int64) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTasks) Update(_ context.Context, id, userID int64, upd domain.TaskUpdate) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrNotFound
	}
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	t.UpdatedAt = time.Now()
	cp := *t
	return &cp, nil
}

func (m *memTasks) Delete(_ context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memTasks) List(_ context.Context, f domain.TaskFilter) ([]*domain.Task, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*domain.Task
	for _, t := range m.tasks {
		if t.UserID != f.UserID {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(t.Title, f.Search) {
			continue
		}
		cp := *t
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	if f.Offset >= total {
		return nil, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

type testEnv struct {
	router *gin.Engine
	users  *memUsers
	tasks  *memTasks
	tokens *service.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := newMemUsers()
	tasks := newMemTasks()
	tokens := service.NewTokenService("access-secret", "refresh-secret", time.Hour, time.Hour)
	h := handlers.NewHandler(users, tasks, tokens, 4)

	r := gin.New()
	apphttp.RegisterAPIRoutes(r, h)

	return &testEnv{router: r, users: users, tasks: tasks, tokens: tokens}
}

// request runs one call against the test router. body may be nil, a raw
// string, or anything json-marshalable.
func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signup registers a user and returns its id plus a valid access token.
func (e *testEnv) signup(t *testing.T, email string) (int64, string) {
	t.Helper()

	w := e.request(t, "POST", "/auth/register", "", map[string]string{
		"email":    email,
		"password": "secret1",
	})
	if w.Code != 201 {
		t.Fatalf("register %s: got %d, body %s", email, w.Code, w.Body.String())
	}
	var resp struct {
		UserID int64 `json:"userId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}

	token, err := e.tokens.IssueAccess(resp.UserID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return resp.UserID, token
}

func decodeTask(t *testing.T, w *httptest.ResponseRecorder) *domain.Task {
	t.Helper()
	var task domain.Task
	if err := json.Unmarshal(w.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode task: %v (body %s)", err, w.Body.String())
	}
	return &task
}
