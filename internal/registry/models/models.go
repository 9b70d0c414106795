// Package models defines the registry aggregate: a Registry exclusively owns
// its Services, Services own their Contributions, and Withdrawals record
// transfers out of the registry. Records are destroyed with their owner,
// never independently.
package models

import (
	"fmt"
	"time"

	"pampermomma/pkg/domain"
	"pampermomma/pkg/money"
)

// ContributionStatus follows the processor's payment lifecycle. Transitions
// are server-driven (webhook), never client-driven.
type ContributionStatus string

const (
	ContributionPending   ContributionStatus = "pending"
	ContributionSucceeded ContributionStatus = "succeeded"
	ContributionFailed    ContributionStatus = "failed"
)

// Contribution is a financial contribution toward a service, immutable once
// recorded.
type Contribution struct {
	ID               domain.ContributionID
	ServiceID        domain.ServiceID
	Amount           money.Amount
	ContributorName  string
	ContributorEmail string
	Status           ContributionStatus
	// Fee and AvailableOn arrive lazily from the processor's balance
	// transaction; they stay absent until enriched.
	Fee             money.Optional
	AvailableOn     *time.Time
	ProcessorIntent string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Fulfilled reports whether the processor confirmed the payment.
func (c *Contribution) Fulfilled() bool {
	return c.Status == ContributionSucceeded
}

// Summary renders a display line for the owner's contribution feed.
func (c *Contribution) Summary() string {
	name := c.ContributorName
	if name == "" {
		name = "An anonymous contributor"
	}
	return fmt.Sprintf("%s contributed $%s", name, c.Amount)
}

// Service is a purchasable block of service-hours within a registry.
//
// Invariants:
//   - TotalCost = Hours × CostPerHour, derived, never stored
//   - TotalContributions may exceed TotalCost (overfunded is a valid state)
//   - completed = fully or over funded while active
//   - available = active and not completed; the flags are independent on the
//     wire, so a completed service can still be marked unavailable
type Service struct {
	ID             domain.ServiceID
	RegistryID     domain.RegistryID
	Name           string
	Description    string
	Hours          int64
	CostPerHour    money.Amount
	IsActive       bool
	TotalWithdrawn money.Amount
	Contributions  []Contribution
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TotalCost derives the full price of the service.
func (s *Service) TotalCost() money.Amount {
	return s.CostPerHour.MulInt(s.Hours)
}

// TotalContributions sums the confirmed contributions. Pending and failed
// payments do not count toward funding.
func (s *Service) TotalContributions() money.Amount {
	var total money.Amount
	for i := range s.Contributions {
		if s.Contributions[i].Fulfilled() {
			total = total.Add(s.Contributions[i].Amount)
		}
	}
	return total
}

// AvailableWithdrawableAmount is what the owner can still take out of this
// service's ledger.
func (s *Service) AvailableWithdrawableAmount() money.Amount {
	return s.TotalContributions().Sub(s.TotalWithdrawn)
}

// IsCompleted reports whether the service is fully or over funded.
func (s *Service) IsCompleted() bool {
	return s.IsActive && s.TotalContributions().Cmp(s.TotalCost()) >= 0
}

// IsAvailable reports whether the service accepts new contributions.
func (s *Service) IsAvailable() bool {
	return s.IsActive && !s.IsCompleted()
}

// Remaining is the unfunded portion; negative when overfunded.
func (s *Service) Remaining() money.Amount {
	return s.TotalCost().Sub(s.TotalContributions())
}

// WithdrawalStatus tracks a processor transfer.
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalSucceeded WithdrawalStatus = "succeeded"
	WithdrawalFailed    WithdrawalStatus = "failed"
)

// Withdrawal records funds moved from the registry balance to the owner's
// payout account.
type Withdrawal struct {
	ID         domain.WithdrawalID
	RegistryID domain.RegistryID
	Amount     money.Amount
	Status     WithdrawalStatus
	TransferID string
	CreatedAt  time.Time
}

// ProcessorBalance is the processor-side balance snapshot attached to the
// owner's registry view.
type ProcessorBalance struct {
	Available money.Amount `json:"available"`
	Pending   money.Amount `json:"pending"`
}

// Registry is the aggregate root. It exclusively owns its Services.
type Registry struct {
	ID             domain.RegistryID
	OwnerID        domain.UserID
	Name           string
	ShareableID    string
	IsFirstTime    bool
	BabiesCount    int
	ArrivalDate    *time.Time
	WelcomeMsg     string
	ThankYouMsg    string
	PayoutsEnabled bool
	PayoutAccount  string
	Services       []Service
	Withdrawals    []Withdrawal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TotalWithdrawn sums withdrawals that hold or will hold funds. Failed
// transfers release their amount back to the balance.
func (r *Registry) TotalWithdrawn() money.Amount {
	var total money.Amount
	for i := range r.Withdrawals {
		if r.Withdrawals[i].Status != WithdrawalFailed {
			total = total.Add(r.Withdrawals[i].Amount)
		}
	}
	return total
}

// TotalFees sums the processor fees recorded so far across all services.
func (r *Registry) TotalFees() money.Amount {
	var total money.Amount
	for i := range r.Services {
		for j := range r.Services[i].Contributions {
			c := &r.Services[i].Contributions[j]
			if c.Fulfilled() {
				total = total.Add(c.Fee.OrZero())
			}
		}
	}
	return total
}

// AvailableBalance is the authoritative withdrawable balance: confirmed
// contributions whose funds have settled, net of fees and prior withdrawals.
func (r *Registry) AvailableBalance(now time.Time) money.Amount {
	var settled money.Amount
	for i := range r.Services {
		for j := range r.Services[i].Contributions {
			c := &r.Services[i].Contributions[j]
			if !c.Fulfilled() {
				continue
			}
			if c.AvailableOn == nil || c.AvailableOn.After(now) {
				continue
			}
			settled = settled.Add(c.Amount.Sub(c.Fee.OrZero()))
		}
	}
	return settled.Sub(r.TotalWithdrawn())
}

// ServiceByID finds a service owned by this registry.
func (r *Registry) ServiceByID(id domain.ServiceID) *Service {
	for i := range r.Services {
		if r.Services[i].ID == id {
			return &r.Services[i]
		}
	}
	return nil
}
