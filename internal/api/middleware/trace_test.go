package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/engage-api/internal/api/shared"
	"github.com/phrazzld/engage-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
)

func TestTraceMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var traceID, requestID, chiID string
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(NewTraceMiddleware(base))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		requestID = logger.RequestIDFromContext(r.Context())
		chiID = chimw.GetReqID(r.Context())
		logger.FromContext(r.Context()).Info("handled")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, traceID)
	assert.Equal(t, chiID, traceID)
	assert.Equal(t, traceID, requestID)
	assert.Contains(t, buf.String(), `"request_id":"`+traceID+`"`)
}

func TestTraceMiddlewareWithoutRequestID(t *testing.T) {
	var traceID string
	h := NewTraceMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, traceID)
}
