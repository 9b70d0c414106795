// Package notification delivers owner-facing events: a contribution landed,
// a withdrawal settled. Delivery is best effort; the money path never blocks
// on it.
package notification

import (
	"context"
	"sync"
	"time"

	"pampermomma/pkg/domain"
)

// Kind classifies a notification.
type Kind string

const (
	KindContributionReceived Kind = "contribution.received"
	KindWithdrawalCompleted  Kind = "withdrawal.completed"
)

// Notification is an owner-facing event.
type Notification struct {
	Kind       Kind              `json:"kind"`
	OwnerID    domain.UserID     `json:"owner_id"`
	RegistryID domain.RegistryID `json:"registry_id"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Publisher delivers notifications to the owner's feed.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
	Close() error
}

// MemoryPublisher collects notifications in memory for tests and for
// deployments without a broker.
type MemoryPublisher struct {
	mu   sync.Mutex
	sent []Notification
}

func NewMemory() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, n Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return nil
}

// Sent returns a copy of everything published so far.
func (p *MemoryPublisher) Sent() []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Notification(nil), p.sent...)
}

func (p *MemoryPublisher) Close() error { return nil }
