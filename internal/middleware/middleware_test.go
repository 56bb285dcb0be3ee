package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeRedis implements the handful of commands the idempotency middleware uses.
type fakeRedis struct {
	redis.Cmdable
	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	default:
		f.data[key] = fmt.Sprint(v)
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) keys() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

func idempotentRouter(client redis.Cmdable, status int, calls *int32) *gin.Engine {
	r := gin.New()
	r.POST("/v1/payments", Idempotency(client, nil), func(c *gin.Context) {
		n := atomic.AddInt32(calls, 1)
		c.JSON(status, gin.H{"call": n})
	})
	return r
}

func post(r http.Handler, key string) *httptest.ResponseRecorder {
	return postBody(r, key, `{}`)
}

func postBody(r http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/payments", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	t.Parallel()

	var calls int32
	r := idempotentRouter(newFakeRedis(), http.StatusCreated, &calls)

	first := post(r, "key-1")
	second := post(r, "key-1")

	if calls != 1 {
		t.Errorf("expected handler to run once, got %d", calls)
	}
	if second.Code != http.StatusCreated {
		t.Errorf("expected replayed 201, got %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("expected identical body, got %s and %s", first.Body.String(), second.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("expected replay header")
	}

	post(r, "key-2")
	post(r, "")
	if calls != 3 {
		t.Errorf("expected new and missing keys to run the handler, got %d calls", calls)
	}
}

func TestIdempotency_InProgressConflicts(t *testing.T) {
	t.Parallel()

	client := newFakeRedis()
	client.data["idempotency:POST:/v1/payments:busy"] = "pending"

	var calls int32
	r := idempotentRouter(client, http.StatusCreated, &calls)

	w := post(r, "busy")
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if calls != 0 {
		t.Errorf("expected handler not to run, got %d calls", calls)
	}
}

func TestIdempotency_DifferentBodyRejected(t *testing.T) {
	t.Parallel()

	var calls int32
	r := idempotentRouter(newFakeRedis(), http.StatusCreated, &calls)

	postBody(r, "key-1", `{"item_id":"course-go"}`)
	w := postBody(r, "key-1", `{"item_id":"course-sql"}`)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
	if calls != 1 {
		t.Errorf("expected handler to run once, got %d", calls)
	}
}

func TestIdempotency_ServerErrorReleasesKey(t *testing.T) {
	t.Parallel()

	client := newFakeRedis()
	var calls int32
	r := idempotentRouter(client, http.StatusServiceUnavailable, &calls)

	post(r, "retry-me")
	if client.keys() != 0 {
		t.Errorf("expected key to be released, got %d keys", client.keys())
	}
	post(r, "retry-me")
	if calls != 2 {
		t.Errorf("expected retry to reach the handler, got %d calls", calls)
	}
}

func TestIdempotency_NilClientPassesThrough(t *testing.T) {
	t.Parallel()

	var calls int32
	r := idempotentRouter(nil, http.StatusCreated, &calls)
	post(r, "k")
	post(r, "k")
	if calls != 2 {
		t.Errorf("expected every request to reach the handler, got %d", calls)
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(CORS([]string{"https://lms.example.com"}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{"allowed origin", http.MethodGet, "https://lms.example.com", http.StatusOK, "https://lms.example.com"},
		{"other origin", http.MethodGet, "https://evil.example.com", http.StatusOK, ""},
		{"preflight", http.MethodOptions, "https://lms.example.com", http.StatusNoContent, "https://lms.example.com"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, "/health", nil)
		req.Header.Set("Origin", tt.origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != tt.wantStatus {
			t.Errorf("%s: expected status %d, got %d", tt.name, tt.wantStatus, w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
			t.Errorf("%s: expected origin %q, got %q", tt.name, tt.wantOrigin, got)
		}
	}
}

func TestLogger_LevelByStatus(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Errorf("expected info for 200, got %s", entries[0].Level)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Errorf("expected error for 500, got %s", entries[1].Level)
	}
	if entries[1].ContextMap()["path"] != "/boom" {
		t.Errorf("expected path field, got %v", entries[1].ContextMap())
	}
}
