package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/utafrali/storefront/internal/domain"
	mailer "github.com/utafrali/storefront/internal/mail"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// NotificationService renders transactional emails and hands them to a sender.
type NotificationService struct {
	renderer *mailer.Renderer
	sender   mailer.Sender
	logger   *slog.Logger
}

// NewNotificationService creates a new notification service.
func NewNotificationService(renderer *mailer.Renderer, sender mailer.Sender, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		renderer: renderer,
		sender:   sender,
		logger:   logger,
	}
}

// SendPasswordReset emails a password recovery link.
func (s *NotificationService) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	if err := validateRecipient(email); err != nil {
		return err
	}
	if resetURL == "" {
		return apperrors.InvalidInput("reset url is required")
	}

	msg, err := s.renderer.PasswordResetMessage(email, resetURL)
	if err != nil {
		return fmt.Errorf("render password reset email: %w", err)
	}
	return s.send(ctx, msg, "password_reset")
}

// SendOrderStatus emails the current state of an order.
func (s *NotificationService) SendOrderStatus(ctx context.Context, email string, order domain.Order) error {
	if err := validateRecipient(email); err != nil {
		return err
	}
	if order.ID == "" {
		return apperrors.InvalidInput("order id is required")
	}

	msg, err := s.renderer.OrderStatusMessage(email, order)
	if err != nil {
		return fmt.Errorf("render order status email: %w", err)
	}
	return s.send(ctx, msg, "order_status")
}

func (s *NotificationService) send(ctx context.Context, msg *mailer.Message, kind string) error {
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "email delivery failed",
			slog.String("kind", kind),
			slog.String("sender", s.sender.Name()),
			slog.String("error", err.Error()),
		)
		return apperrors.Upstream("mail", err)
	}

	s.logger.InfoContext(ctx, "email sent",
		slog.String("kind", kind),
		slog.String("sender", s.sender.Name()),
		slog.String("subject", msg.Subject),
	)
	return nil
}

func validateRecipient(email string) error {
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperrors.InvalidInput(fmt.Sprintf("invalid email %q", email))
	}
	return nil
}
