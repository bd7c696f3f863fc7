package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/config"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	subjectKey
)

const requestIDHeader = "X-Request-ID"

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string) //nolint:errcheck // Absent means ""
	return id
}

func subjectFrom(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey).(string) //nolint:errcheck // Absent means ""
	return sub
}

// withRequestID keeps a client-supplied X-Request-ID or assigns a new one,
// echoing it on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// logRequests logs every request at debug once it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			// Hijacked for a WebSocket.
			status = http.StatusSwitchingProtocols
		}
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"subject", subjectFrom(r.Context()),
			"request_id", requestIDFrom(r.Context()),
		)
	})
}

// recoverPanics turns a handler panic into a logged 500.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler { //nolint:errorlint // recover() value, not a wrapped error
				panic(rec)
			}
			s.logger.Error("panic in HTTP handler",
				"panic", rec,
				"path", r.URL.Path,
				"request_id", requestIDFrom(r.Context()),
			)
			fail(w, r, http.StatusInternalServerError, "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

// corsPolicy is the CORS section resolved once at construction.
type corsPolicy struct {
	anyOrigin bool
	origins   map[string]struct{}
	methods   string
	headers   string
}

func newCORSPolicy(cfg config.CORSConfig) corsPolicy {
	p := corsPolicy{
		anyOrigin: len(cfg.AllowedOrigins) == 0,
		origins:   make(map[string]struct{}, len(cfg.AllowedOrigins)),
		methods:   "GET, OPTIONS",
		headers:   "Authorization, " + requestIDHeader,
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			p.anyOrigin = true
		}
		p.origins[o] = struct{}{}
	}
	if len(cfg.AllowedMethods) > 0 {
		p.methods = strings.Join(cfg.AllowedMethods, ", ")
	}
	if len(cfg.AllowedHeaders) > 0 {
		p.headers = strings.Join(cfg.AllowedHeaders, ", ")
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	if p.anyOrigin {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// applyCORS sets the CORS headers for allowed origins and answers
// preflight requests with 204.
func (s *Server) applyCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Add("Vary", "Origin")
		if origin := r.Header.Get("Origin"); origin != "" && s.cors.allows(origin) {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", s.cors.methods)
			h.Set("Access-Control-Allow-Headers", s.cors.headers)
			h.Set("Access-Control-Max-Age", "86400")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireToken rejects requests without a valid bearer token when a JWT
// secret is configured. WebSocket clients in a browser cannot set
// headers, so the token may instead be passed as ?token=.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := s.cfg.JWT.Secret
		if secret == "" {
			next.ServeHTTP(w, r)
			return
		}

		raw, ok := bearerToken(r)
		if !ok {
			s.unauthorised(w, r, "bearer token is required")
			return
		}
		claims, err := ParseToken(raw, secret)
		if err != nil {
			s.logger.Debug("API token rejected", "error", err, "path", r.URL.Path)
			s.unauthorised(w, r, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey, claims.Subject)))
	})
}

func (s *Server) unauthorised(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="`+tokenIssuer+`"`)
	fail(w, r, http.StatusUnauthorized, message)
}

// bearerToken reads the Authorization header, or the token query
// parameter when no header is sent. A non-Bearer header is not a token.
func bearerToken(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		token = strings.TrimSpace(token)
		return token, found && strings.EqualFold(scheme, "Bearer") && token != ""
	}
	token := r.URL.Query().Get("token")
	return token, token != ""
}
