package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/urfave/negroni/v2"

	"github.com/user/vidnest/internal/auth"
	"github.com/user/vidnest/internal/metrics"
)

func responseWriter(w http.ResponseWriter) negroni.ResponseWriter {
	if rw, ok := w.(negroni.ResponseWriter); ok {
		return rw
	}
	return negroni.NewResponseWriter(w)
}

// requestLogger logs every request once it has been served
func requestLogger(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	start := time.Now()
	rw := responseWriter(w)
	next(rw, r)

	event := log.Info()
	if rw.Status() >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", rw.Status()).
		Int("bytes", rw.Size()).
		Dur("duration", time.Since(start)).
		Msg("HTTP request")
}

// instrument records request metrics labelled by route template
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := responseWriter(w)
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.RecordRequest(r.Method, route, rw.Status(), time.Since(start))
	})
}

// authed rejects requests without a valid session token and stores the
// claims in the request context
func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.TokenFromRequest(r, s.cfg.Auth.CookieName)
		if token == "" {
			writeErrorBody(w, http.StatusUnauthorized, apiError{Code: "UNAUTHORIZED", Message: "authentication required"})
			return
		}

		claims, err := s.deps.Tokens.Parse(token)
		if err != nil {
			log.Debug().Err(err).Msg("Rejected session token")
			writeErrorBody(w, http.StatusUnauthorized, apiError{Code: "UNAUTHORIZED", Message: "invalid or expired session"})
			return
		}

		h(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// claims returns the authenticated caller. Only valid behind authed.
func claims(r *http.Request) *auth.Claims {
	c, _ := auth.ClaimsFromContext(r.Context())
	return c
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	log.Error().Msg(fmt.Sprint(v...))
}

func (recoveryLogger) Printf(format string, v ...interface{}) {
	log.Error().Msgf(format, v...)
}

// jsonPanicFormatter writes the error envelope after Recovery has already
// sent the 500 status
type jsonPanicFormatter struct{}

func (jsonPanicFormatter) FormatPanicError(w http.ResponseWriter, r *http.Request, infos *negroni.PanicInformation) {
	metrics.RecordError("panic")
	body := errorEnvelope{Error: apiError{Code: "INTERNAL_ERROR", Message: "internal server error"}}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode panic response")
	}
}
