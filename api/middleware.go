package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"agent-optimus/metrics"
	"agent-optimus/models"
	"agent-optimus/services"
	"agent-optimus/storage"
	"agent-optimus/utils"
)

// RequestLogger logs one zerolog event per request.
func RequestLogger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Str("request_id", chimw.GetReqID(r.Context())).
					Str("remote_addr", r.RemoteAddr).
					Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// Metrics records request count and latency per route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		path := routePattern(r)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// routePattern keeps metric labels bounded: unmatched paths collapse.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type contextKey string

const callerKey contextKey = "caller"

// CallerFrom returns the authenticated caller, or nil.
func CallerFrom(ctx context.Context) *models.Caller {
	c, _ := ctx.Value(callerKey).(*models.Caller)
	return c
}

// WithCaller attaches c to ctx.
func WithCaller(ctx context.Context, c *models.Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// HashToken is how API tokens are stored in users.token_hash.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Authenticator resolves bearer tokens to callers.
type Authenticator struct {
	users  storage.UserStore
	logger *utils.Logger
}

func NewAuthenticator(users storage.UserStore, logger *utils.Logger) *Authenticator {
	return &Authenticator{users: users, logger: logger}
}

// Identify attaches the caller when the request carries a known token.
// Unknown tokens pass through as anonymous and each function decides what
// that means; a failed lookup ends the request as internal.
func (a *Authenticator) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		u, err := a.users.UserByTokenHash(r.Context(), HashToken(token))
		switch {
		case errors.Is(err, storage.ErrNotFound):
			a.logger.Debug("[api] Unknown token from %s", r.RemoteAddr)
		case err != nil:
			a.logger.Error("[api] Token lookup failed: %v", err)
			writeError(w, &services.Error{Code: services.CodeInternal, Message: "Internal error.", Err: err})
			return
		default:
			r = r.WithContext(WithCaller(r.Context(), &models.Caller{ID: u.ID, Email: u.Email}))
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
