package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	cartservice "github.com/fjod/go_storefront/internal/cart/service"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/pkg/circuitbreaker"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Error   string `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Message: message, Code: code})
}

// errorMapper turns service errors into responses. Diagnostic detail is
// attached to internal errors only when exposeDetail is set.
type errorMapper struct {
	exposeDetail bool
}

func (m errorMapper) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status  int
		code    string
		message = err.Error()
	)

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		status, code = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusUnauthorized, "forbidden"
		message = "not authorized as an admin"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, domain.ErrInvalidState):
		status, code = http.StatusBadRequest, "invalid_state"
	case errors.Is(err, cartservice.ErrConcurrentUpdate):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, circuitbreaker.ErrOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		status, code = http.StatusServiceUnavailable, "service_unavailable"
		message = "product catalog unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
		message = "request timed out"
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		resp := ErrorResponse{Message: "internal server error", Code: "internal_error"}
		if m.exposeDetail {
			resp.Error = err.Error()
		}
		respondJSON(w, http.StatusInternalServerError, resp)
		return
	}

	respondError(w, status, code, message)
}
