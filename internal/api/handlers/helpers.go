package handlers

import (
	"errors"
	"net/http"

	"github.com/aolagbe/vtuwallet/internal/api/httpx"
	"github.com/aolagbe/vtuwallet/internal/gateway"
	repo "github.com/aolagbe/vtuwallet/internal/repository"
	"github.com/aolagbe/vtuwallet/internal/services"
)

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Retryable conditions answer 503 so clients and the gateway know to
// try again shortly.
func writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *gateway.ServiceError
	var credErr *services.CreditApplicationError

	switch {
	case errors.Is(err, services.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, services.ErrInsufficientBalance):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "insufficient_balance", "insufficient balance", nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
	case errors.Is(err, repo.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "not found", nil)
	case errors.As(err, &svcErr):
		httpx.WriteError(w, http.StatusServiceUnavailable, "gateway_unavailable", "payment not yet confirmed, try again shortly", nil)
	case errors.As(err, &credErr):
		httpx.WriteError(w, http.StatusServiceUnavailable, "credit_pending_retry", "payment verified, crediting delayed; it will be retried", nil)
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
