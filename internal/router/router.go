package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-finance-go/internal/category"
	"github.com/ovaphlow/pitchfork/service-finance-go/internal/expense"
	"github.com/ovaphlow/pitchfork/service-finance-go/internal/transaction"
	"github.com/ovaphlow/pitchfork/service-finance-go/internal/user"
	userentity "github.com/ovaphlow/pitchfork/service-finance-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/utilities"
)

const headerRequestID = "X-Request-ID"

var (
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finance_http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method", "status"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finance_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"path", "method", "status"})
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

func (lrw *loggingResponseWriter) statusCode() int {
	if lrw.status == 0 {
		return http.StatusOK
	}
	return lrw.status
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", lrw.statusCode(),
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
				"request_id", w.Header().Get(headerRequestID),
			)
		})
	}
}

// RequestIDMiddleware echoes X-Request-ID, generating a snowflake id when absent.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(headerRequestID)
			if id == "" {
				id = utilities.NewSnowflakeID()
				r.Header.Set(headerRequestID, id)
			}
			w.Header().Set(headerRequestID, id)
			next.ServeHTTP(w, r)
		})
	}
}

// MetricsMiddleware records request count and latency per route pattern.
// It must wrap the mux directly so r.Pattern is populated after dispatch.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lrw, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(lrw.statusCode())
		httpDuration.WithLabelValues(path, r.Method, status).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(path, r.Method, status).Inc()
	})
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			// only over TLS, 30 days
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, svcs *Services) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		utilities.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	protect := auth.RequireAuth(svcs.Auth, logger)
	guarded := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, protect(fn))
	}

	authHandler := auth.NewHandler(svcs.Auth, logger)
	mux.HandleFunc("POST /auth/login", authHandler.LoginForm)
	mux.HandleFunc("POST /auth/login-json", authHandler.LoginJSON)
	mux.HandleFunc("POST /auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)
	guarded("GET /auth/me", authHandler.Me)

	userHandler := user.NewHandler(svcs.Users, logger)
	mux.HandleFunc("POST /users/register", userHandler.Register)
	guarded("GET /users/me", authHandler.Me)
	admin := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, protect(auth.RequireRole(userentity.RoleAdmin)(fn)))
	}
	admin("GET /users", userHandler.List)
	guarded("GET /users/{id}", userHandler.Get)
	admin("PUT /users/{id}", userHandler.Update)
	admin("DELETE /users/{id}", userHandler.Delete)

	categoryHandler := category.NewHandler(svcs.Categories, logger)
	guarded("GET /categories", categoryHandler.List)
	guarded("POST /categories", categoryHandler.Create)
	guarded("GET /categories/{id}", categoryHandler.Get)
	guarded("PUT /categories/{id}", categoryHandler.Update)
	guarded("DELETE /categories/{id}", categoryHandler.Delete)

	expenseHandler := expense.NewHandler(svcs.Expenses, logger)
	guarded("GET /expenses", expenseHandler.List)
	guarded("POST /expenses", expenseHandler.Create)
	guarded("GET /expenses/{id}", expenseHandler.Get)
	guarded("PUT /expenses/{id}", expenseHandler.Update)
	guarded("DELETE /expenses/{id}", expenseHandler.Delete)

	transactionHandler := transaction.NewHandler(svcs.Transactions, logger)
	guarded("GET /transactions", transactionHandler.List)
	guarded("POST /transactions", transactionHandler.Create)
	guarded("GET /transactions/{id}", transactionHandler.Get)
	guarded("PUT /transactions/{id}", transactionHandler.Update)
	guarded("DELETE /transactions/{id}", transactionHandler.Delete)

	// outermost first: logging, request id, security headers, tracing, metrics
	var handler http.Handler = MetricsMiddleware(mux)
	handler = otelhttp.NewHandler(handler, "finance-api")
	handler = SecurityHeadersMiddleware()(handler)
	handler = RequestIDMiddleware()(handler)
	handler = LoggingMiddleware(logger)(handler)
	return handler
}
