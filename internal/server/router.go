// internal/server/router.go
package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"studybuddy-payments/internal/common/auth"
	"studybuddy-payments/internal/common/logger"
	"studybuddy-payments/internal/common/observability"
	paystackwebhook "studybuddy-payments/internal/endpoints/paystack-webhook"
	verifypayment "studybuddy-payments/internal/endpoints/verify-payment"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is a dependency checked by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Verify        *verifypayment.Handler
	Webhook       *paystackwebhook.Handler
	TokenVerifier auth.TokenVerifier
	Checks        map[string]Pinger
	Observability *observability.Observability
	CORSOrigins   []string
	Logger        logger.Logger
}

// NewRouter assembles the HTTP surface of the payments service.
func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	r := gin.New()
	r.Use(RequestID(log), Recovery(log), AccessLog(log, opts.Observability))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.GET("/ready", readyHandler(opts.Checks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.Verify != nil {
		callableCORS := CORS(opts.CORSOrigins)
		mw := []gin.HandlerFunc{callableCORS}
		if opts.TokenVerifier != nil {
			mw = append(mw, auth.FirebaseMiddleware(opts.TokenVerifier, log))
		}
		r.OPTIONS(verifypayment.Path, callableCORS)
		r.POST(verifypayment.Path, append(mw, opts.Verify.Handle)...)
	}
	// server-to-server only, no CORS
	if opts.Webhook != nil {
		r.Any(paystackwebhook.Path, opts.Webhook.Handle)
	}

	return r
}

func readyHandler(checks map[string]Pinger) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name].Ping(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "ready"
		if status != http.StatusOK {
			state = "not_ready"
		}
		c.JSON(status, gin.H{
			"status": state,
			"checks": results,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}
