package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
)

// EmailHandler lets other services trigger transactional emails directly.
type EmailHandler struct {
	service *service.NotificationService
	logger  *slog.Logger
}

// NewEmailHandler creates a new email HTTP handler.
func NewEmailHandler(svc *service.NotificationService, logger *slog.Logger) *EmailHandler {
	return &EmailHandler{
		service: svc,
		logger:  logger,
	}
}

// SendPasswordReset handles POST /api/v1/internal/emails/password-reset
func (h *EmailHandler) SendPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetEmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.SendPasswordReset(r.Context(), req.Email, req.ResetURL); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusAccepted, httputil.Envelope{
		"message": "Email sent to " + req.Email + " successfully",
	})
}

// SendOrderStatus handles POST /api/v1/internal/emails/order-status
func (h *EmailHandler) SendOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req OrderStatusEmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.SendOrderStatus(r.Context(), req.Email, req.Order); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusAccepted, httputil.Envelope{
		"message": "Email sent to " + req.Email + " successfully",
	})
}
