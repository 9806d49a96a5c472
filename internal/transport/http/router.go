// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services without embedding business logic so transport concerns remain
// isolated.
package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dErrors "procura/pkg/domain-errors"
	"procura/pkg/requestcontext"
)

// MandateJWSHeader carries a signed mandate token on verify requests.
const MandateJWSHeader = "X-Mandate-JWS"

// MandateIDHeader names the mandate a privileged call is made under.
const MandateIDHeader = "X-Mandate-Id"

// Registrar is implemented by each domain handler group.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires all public endpoints plus health and metrics.
func NewRouter(handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(propagateRequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		for _, h := range handlers {
			h.Register(v1)
		}
	})
	return r
}

// propagateRequestID copies chi's request id into the request context keys
// the services log from.
func propagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			r = r.WithContext(requestcontext.WithRequestID(r.Context(), reqID))
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError centralizes domain error translation to HTTP responses so every
// handler returns the same JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "internal error"
	}

	writeJSON(w, status, map[string]string{
		"error":   string(code),
		"message": message,
	})
}
