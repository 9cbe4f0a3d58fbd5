package mock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/mail"
)

// MockSender is a mail.Sender that logs messages instead of delivering them.
// Sent messages are kept for inspection.
type MockSender struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []mail.Message
}

// NewMockSender creates a new logging sender.
func NewMockSender(logger *slog.Logger) *MockSender {
	return &MockSender{logger: logger}
}

// Name returns the name of this sender.
func (s *MockSender) Name() string {
	return "mock-email"
}

// Send logs the message and records it.
func (s *MockSender) Send(ctx context.Context, msg *mail.Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, *msg)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "mock sender: email sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("html_bytes", len(msg.HTML)),
	)
	return nil
}

// Sent returns a copy of the messages sent so far.
func (s *MockSender) Sent() []mail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mail.Message(nil), s.sent...)
}
