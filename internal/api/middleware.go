// Package api provides the HTTP API for algoflow.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"algoflow/internal/auth"
	"algoflow/internal/db"
	"algoflow/internal/metrics"
)

type contextKey string

const (
	ctxClaims    contextKey = "claims"
	ctxRequestID contextKey = "request_id"
)

// ClaimsFromContext returns the claims from context.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(ctxClaims).(*auth.Claims); ok {
		return c
	}
	return nil
}

// RequestIDFromContext returns the request id assigned by WithDefaults.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}

// WithAuth is middleware that authenticates requests.
func (h *Handler) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization", nil)
			return
		}

		claims, err := h.tokens.ValidateAccessToken(token)
		if errors.Is(err, auth.ErrTokenExpired) {
			writeError(w, http.StatusUnauthorized, "token expired", nil)
			return
		}
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token", nil)
			return
		}

		ctx := context.WithValue(r.Context(), ctxClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithOptionalAuth is middleware that authenticates if a token is present.
// An invalid token is treated as no token.
func (h *Handler) WithOptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		if claims, err := h.tokens.ValidateAccessToken(token); err == nil {
			ctx = context.WithValue(ctx, ctxClaims, claims)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireOwner is middleware that lets only the owner of the algorithm in
// the URL through. Algorithms without an owner are open to any
// authenticated user. Must run after WithAuth.
func (h *Handler) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			writeError(w, http.StatusUnauthorized, "authentication required", nil)
			return
		}

		id, ok := pathID(w, r)
		if !ok {
			return
		}
		alg, err := h.lifecycle.Get(r.Context(), id)
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "algorithm not found", nil)
			return
		}
		if err != nil {
			h.writeServiceError(w, r, "failed to get algorithm", err)
			return
		}

		if alg.UserID != 0 && alg.UserID != claims.UserID {
			writeError(w, http.StatusForbidden, "not the owner of this algorithm", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithDefaults adds default middleware to a handler.
func WithDefaults(h http.Handler, log *slog.Logger, debug bool, origins []string) http.Handler {
	return withRequestID(withLogging(withRecovery(withCORS(h, origins), log), log, debug))
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxRequestID, id)))
	})
}

func withCORS(next http.Handler, origins []string) http.Handler {
	anyOrigin := slices.Contains(origins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case origin != "" && (anyOrigin || slices.Contains(origins, origin)):
			// Credentials rule out "*", so the origin is echoed.
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		case origin == "" && anyOrigin:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func withLogging(next http.Handler, log *slog.Logger, debug bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(wrapped.status)).Inc()
		if debug || wrapped.status >= 400 {
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration", time.Since(start),
				"request_id", RequestIDFromContext(r.Context()),
			)
		}
	})
}

func withRecovery(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("panic", "error", err, "path", r.URL.Path,
					"request_id", RequestIDFromContext(r.Context()))
				writeError(w, http.StatusInternalServerError, "internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Chain combines multiple middleware.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
