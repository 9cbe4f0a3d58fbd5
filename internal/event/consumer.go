package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// Topics consumed from other services.
var (
	TopicOrderStatusChanged     = pkgkafka.Topic("order", "status_changed")
	TopicPasswordResetRequested = pkgkafka.Topic("user", "password_reset_requested")
)

// ConsumerGroupID is the consumer group of this service.
const ConsumerGroupID = "storefront-mailer"

// Notifier sends the transactional emails triggered by events.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, resetURL string) error
	SendOrderStatus(ctx context.Context, email string, order domain.Order) error
}

type orderStatusPayload struct {
	Email string       `json:"email"`
	Order domain.Order `json:"order"`
}

type passwordResetPayload struct {
	Email    string `json:"email"`
	ResetURL string `json:"reset_url"`
}

// ConsumerHandler routes incoming Kafka events to the notifier.
type ConsumerHandler struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewConsumerHandler creates a new event consumer handler.
func NewConsumerHandler(notifier Notifier, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{
		notifier: notifier,
		logger:   logger,
	}
}

// Handle processes an incoming Kafka event based on its event type.
func (h *ConsumerHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicOrderStatusChanged:
		return h.handleOrderStatusChanged(ctx, event)
	case TopicPasswordResetRequested:
		return h.handlePasswordResetRequested(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// A payload that cannot be decoded or lacks a recipient is logged and
// acknowledged; retrying it would never succeed.
func (h *ConsumerHandler) handleOrderStatusChanged(ctx context.Context, event *pkgkafka.Event) error {
	var payload orderStatusPayload
	if err := event.UnmarshalData(&payload); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal order.status_changed payload",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if payload.Email == "" {
		h.logger.WarnContext(ctx, "order.status_changed event has no recipient",
			slog.String("event_id", event.EventID),
			slog.String("order_id", payload.Order.ID),
		)
		return nil
	}
	if payload.Order.ID == "" {
		payload.Order.ID = event.AggregateID
	}

	if err := h.notifier.SendOrderStatus(ctx, payload.Email, payload.Order); err != nil {
		return fmt.Errorf("order status email for %s: %w", payload.Order.ID, err)
	}
	return nil
}

func (h *ConsumerHandler) handlePasswordResetRequested(ctx context.Context, event *pkgkafka.Event) error {
	var payload passwordResetPayload
	if err := event.UnmarshalData(&payload); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal user.password_reset_requested payload",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if payload.Email == "" || payload.ResetURL == "" {
		h.logger.WarnContext(ctx, "password reset event missing email or reset_url",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	if err := h.notifier.SendPasswordReset(ctx, payload.Email, payload.ResetURL); err != nil {
		return fmt.Errorf("password reset email: %w", err)
	}
	return nil
}

// Topics returns the topics the handler understands.
func Topics() []string {
	return []string{TopicOrderStatusChanged, TopicPasswordResetRequested}
}

// NewConsumer creates the group consumer for every topic in Topics. Handled
// event IDs are recorded in store so redelivered events send no second email.
func NewConsumer(brokers []string, handler *ConsumerHandler, store pkgkafka.IdempotencyStore, dlq *pkgkafka.DLQProducer, logger *slog.Logger) *pkgkafka.Consumer {
	cfg := pkgkafka.ConsumerConfig{
		Brokers: brokers,
		GroupID: ConsumerGroupID,
		Topics:  Topics(),
	}
	consumer := pkgkafka.NewConsumer(cfg, pkgkafka.IdempotentHandler(store, handler.Handle, logger), logger)
	if dlq != nil {
		consumer.WithDLQ(dlq)
	}
	return consumer
}
