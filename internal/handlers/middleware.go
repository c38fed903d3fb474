package handlers

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"impactfamilies/internal/security"
	"impactfamilies/internal/service"
)

type contextKey string

const sessionContextKey contextKey = "session"

// MiddlewareConfig tunes the login limiter and client IP resolution
type MiddlewareConfig struct {
	LoginAttempts int
	LoginWindow   time.Duration

	// TrustProxy rewrites RemoteAddr from X-Forwarded-For or X-Real-IP
	// before anything else runs. Leave it off unless a proxy sets them.
	TrustProxy bool
}

// Middleware holds dependencies for middleware functions
type Middleware struct {
	auth       *service.AuthService
	limiter    func(http.Handler) http.Handler
	trustProxy bool
	log        zerolog.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(auth *service.AuthService, cfg MiddlewareConfig, log zerolog.Logger) *Middleware {
	m := &Middleware{
		auth:       auth,
		trustProxy: cfg.TrustProxy,
		log:        log,
	}

	// Keyed on RemoteAddr; forwarding headers only count once RealIP has
	// rewritten it for a trusted proxy.
	m.limiter = httprate.Limit(
		cfg.LoginAttempts,
		cfg.LoginWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			m.log.Warn().Str("ip", clientIP(r)).Str("path", r.URL.Path).Msg("rate limit exceeded")
			writeError(w, &APIError{Status: http.StatusTooManyRequests, Message: "Too many requests, please try again later"})
		}),
	)
	return m
}

// clientIP is the host part of RemoteAddr
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RequestLogger logs every request once it has been served
func (m *Middleware) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		m.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("ip", clientIP(r)).
			Msg("incoming_request")
	})
}

// RequireSiteAccess rejects requests without a valid site access cookie
func (m *Middleware) RequireSiteAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(security.SiteAccessCookie)
		if err != nil || cookie.Value == "" {
			writeError(w, &APIError{Status: http.StatusUnauthorized, Message: "Unauthorized: no site access"})
			return
		}

		session, err := m.auth.ValidateSession(cookie.Value)
		if err != nil {
			http.SetCookie(w, security.DeleteAccessCookie(r))
			writeError(w, &APIError{Status: http.StatusUnauthorized, Message: "Unauthorized: site access expired"})
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCSRF checks the CSRF header on state-changing requests.
// It must run after RequireSiteAccess.
func (m *Middleware) RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		session := SessionFromContext(r.Context())
		if session == nil || !m.auth.ValidateCSRF(session, r.Header.Get(security.CSRFHeader)) {
			m.log.Warn().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("path", r.URL.Path).
				Msg("rejected request with invalid CSRF token")
			writeError(w, &APIError{Status: http.StatusForbidden, Message: "Invalid CSRF token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit limits login attempts per client IP
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return m.limiter(next)
}

// SessionFromContext returns the site access session set by RequireSiteAccess
func SessionFromContext(ctx context.Context) *service.Session {
	session, ok := ctx.Value(sessionContextKey).(*service.Session)
	if !ok {
		return nil
	}
	return session
}
