// internal/server/router_test.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"studybuddy-payments/internal/alerts"
	"studybuddy-payments/internal/common/logger"
	"studybuddy-payments/internal/common/observability"
	paystackwebhook "studybuddy-payments/internal/endpoints/paystack-webhook"
	verifypayment "studybuddy-payments/internal/endpoints/verify-payment"
	"studybuddy-payments/internal/ledger"
	"studybuddy-payments/internal/plans"
	"studybuddy-payments/internal/subscription"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type rejectingVerifier struct{}

func (rejectingVerifier) VerifyIDToken(context.Context, string) (*firebaseauth.Token, error) {
	return nil, errors.New("token expired")
}

func newTestRouter(t *testing.T, checks map[string]Pinger) http.Handler {
	gin.SetMode(gin.TestMode)
	log := logger.NewTestLogger(t)
	store := subscription.NewMemoryStore()
	registry := plans.MustDefaultRegistry()
	upgrader := subscription.NewUpgrader(store, ledger.NopLedger{}, alerts.NopNotifier{}, log)

	verify := verifypayment.NewHandler(verifypayment.DefaultConfig(), registry, nil, upgrader, nil, log)
	webhook := paystackwebhook.NewHandler(paystackwebhook.DefaultConfig(), registry, store, upgrader, nil, log)

	return NewRouter(Options{
		Verify:        verify,
		Webhook:       webhook,
		TokenVerifier: rejectingVerifier{},
		Checks:        checks,
		Observability: &observability.Observability{},
		CORSOrigins:   []string{"https://app.example.com"},
		Logger:        log,
	})
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestReady(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		router := newTestRouter(t, map[string]Pinger{
			"redis":    pingFunc(func(context.Context) error { return nil }),
			"postgres": pingFunc(func(context.Context) error { return nil }),
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ready"`)
	})

	t.Run("failing check", func(t *testing.T) {
		router := newTestRouter(t, map[string]Pinger{
			"redis": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var body struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "not_ready", body.Status)
		assert.Equal(t, "connection refused", body.Checks["redis"])
	})
}

func TestRequestIDPropagation(t *testing.T) {
	router := newTestRouter(t, nil)
	const rid = "6f1c2a7e-4b7d-4a39-9d55-0a2c4f1e9b11"

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, rid)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, rid, w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "not a uuid")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEqual(t, "not a uuid", w.Header().Get(RequestIDHeader))
}

func TestVerifyRouteRequiresAuth(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, verifypayment.Path, strings.NewReader(`{"data":{"reference":"ref_1"}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer expired")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":{"status":"UNAUTHENTICATED","message":"User must be logged in to verify payment."}}`, w.Body.String())
}

func TestWebhookRouteAcceptsAnyMethod(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, paystackwebhook.Path, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, paystackwebhook.BodyMethodNotAllowed, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, paystackwebhook.Path, strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, paystackwebhook.BodyMisconfigured, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, verifypayment.Path, nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebhookPreflightIsNotAnsweredByCORS(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, paystackwebhook.Path, nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, paystackwebhook.BodyMethodNotAllowed, w.Body.String())
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCallableResponseCarriesCORSHeaders(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, verifypayment.Path, strings.NewReader(`{"data":{"reference":"ref_1"}}`))
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodPost, verifypayment.Path, strings.NewReader(`{"data":{"reference":"ref_1"}}`))
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryReturns500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(logger.NewNoOpLogger()), Recovery(logger.NewNoOpLogger()))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
