package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	idempotencyHeader     = "Idempotency-Key"
	idempotencyTTL        = 24 * time.Hour
	idempotencyPendingTTL = 30 * time.Second
	idempotencyPending    = "pending"
	replayedHeader        = "Idempotent-Replayed"
)

// storedResponse is what a completed request leaves under its key.
type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

// captureWriter tees the response body so it can be stored.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// mutating requests, so a retried purchase initiation never creates a second
// payment. A request whose key is still being processed gets 409, and a key
// reused with a different body gets 422. With a nil client the middleware is
// a no-op.
func Idempotency(client redis.Cmdable, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if client == nil || !isMutating(c.Request.Method) {
			c.Next()
			return
		}
		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		fingerprint, err := fingerprintBody(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
			return
		}

		ctx := c.Request.Context()
		storeKey := "idempotency:" + c.Request.Method + ":" + c.FullPath() + ":" + key

		claimed, err := client.SetNX(ctx, storeKey, idempotencyPending, idempotencyPendingTTL).Result()
		if err != nil {
			logger.Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			replay(c, client, storeKey, fingerprint, logger)
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		ctx = context.WithoutCancel(ctx)
		status := w.Status()
		if status >= http.StatusInternalServerError {
			// Let the client retry the same key.
			_ = client.Del(ctx, storeKey).Err()
			return
		}
		stored := storedResponse{
			Fingerprint: fingerprint,
			StatusCode:  status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		}
		if err := saveResponse(ctx, client, storeKey, &stored); err != nil {
			logger.Warn("idempotency write failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// replay answers a request whose key was already claimed.
func replay(c *gin.Context, client redis.Cmdable, storeKey, fingerprint string, logger *zap.Logger) {
	stored, err := loadResponse(c.Request.Context(), client, storeKey)
	switch {
	case err != nil && !errors.Is(err, redis.Nil):
		logger.Warn("idempotency read failed", zap.String("store_key", storeKey), zap.Error(err))
		c.Next()
		return
	case stored == nil:
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "request with this idempotency key is in progress"})
		return
	case stored.Fingerprint != fingerprint:
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "idempotency key reused with a different request"})
		return
	}

	contentType := stored.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	c.Header(replayedHeader, "true")
	c.Data(stored.StatusCode, contentType, stored.Body)
	c.Abort()
}

func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// fingerprintBody hashes the request body and restores it for the handler.
func fingerprintBody(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

// loadResponse returns nil, nil while the key is claimed but unanswered.
func loadResponse(ctx context.Context, client redis.Cmdable, key string) (*storedResponse, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	if string(data) == idempotencyPending {
		return nil, nil
	}
	var stored storedResponse
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func saveResponse(ctx context.Context, client redis.Cmdable, key string, stored *storedResponse) error {
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, data, idempotencyTTL).Err()
}
