package commandiface

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/junioryono/unify"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// SessionHeader carries the session id of a request. Requests without it
// use their request id.
const SessionHeader = "X-Session-ID"

// RequestContext attaches a unify request context to every request while
// the container is started. The locale is the first Accept-Language tag;
// without one the container locale applies.
func RequestContext(c *unify.Container) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !c.IsStarted() {
				next.ServeHTTP(w, r)
				return
			}

			locale := language.Und
			if tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language")); err == nil && len(tags) > 0 {
				locale = tags[0]
			}

			session := r.Header.Get(SessionHeader)
			if session == "" {
				session = middleware.GetReqID(r.Context())
			}

			next.ServeHTTP(w, r.WithContext(c.NewRequestContext(r.Context(), session, locale)))
		})
	}
}

func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("HTTP Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// bearerToken rejects requests without "Authorization: Bearer <token>".
func bearerToken(token string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="unify"`)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
