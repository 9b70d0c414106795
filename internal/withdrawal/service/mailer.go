package service

import (
	"context"
	"log/slog"
	"sync"
)

// LogMailer writes codes to the log instead of sending mail. Local and test
// environments only; the code would otherwise be unreachable.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendWithdrawalCode(ctx context.Context, to, code, deviceSummary string) error {
	m.logger.InfoContext(ctx, "withdrawal code issued",
		"to", to,
		"code", code,
		"device", deviceSummary,
	)
	return nil
}

// MemoryMailer captures sent codes for tests.
type MemoryMailer struct {
	mu   sync.Mutex
	sent []SentCode
}

// SentCode is one captured delivery.
type SentCode struct {
	To            string
	Code          string
	DeviceSummary string
}

func NewMemoryMailer() *MemoryMailer {
	return &MemoryMailer{}
}

func (m *MemoryMailer) SendWithdrawalCode(_ context.Context, to, code, deviceSummary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentCode{To: to, Code: code, DeviceSummary: deviceSummary})
	return nil
}

// Sent returns a copy of the captured deliveries.
func (m *MemoryMailer) Sent() []SentCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentCode(nil), m.sent...)
}
