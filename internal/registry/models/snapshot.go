package models

import (
	"time"

	"pampermomma/pkg/domain"
	"pampermomma/pkg/money"
)

// Wire snapshot types. The server serializes these from the aggregate; the
// aggregator and the client workflows consume them. Monetary fields are
// Optional: the aggregation boundary defaults absent or unparsable values to
// zero instead of aborting (see pkg/money).

// ContributionSnapshot is the wire form of a contribution.
type ContributionSnapshot struct {
	ID        string         `json:"id"`
	Amount    money.Optional `json:"amount"`
	Name      string         `json:"contributor_name"`
	Fulfilled bool           `json:"fulfilled"`
	Summary   string         `json:"summary"`
	CreatedAt time.Time      `json:"created_at"`
}

// ServiceSnapshot is the wire form of a service. Derived fields are set
// server-side and treated as authoritative by clients.
type ServiceSnapshot struct {
	ID                          string                 `json:"id"`
	Name                        string                 `json:"name"`
	Description                 string                 `json:"description"`
	Hours                       int64                  `json:"hours"`
	CostPerHour                 money.Optional         `json:"cost_per_hour"`
	TotalCost                   money.Optional         `json:"total_cost"`
	TotalContributions          money.Optional         `json:"total_contributions"`
	TotalWithdrawn              money.Optional         `json:"total_withdrawn"`
	AvailableWithdrawableAmount money.Optional         `json:"available_withdrawable_amount"`
	IsActive                    bool                   `json:"is_active"`
	IsAvailable                 bool                   `json:"is_available"`
	IsCompleted                 bool                   `json:"is_completed"`
	IsOwnedByUser               bool                   `json:"is_owned_by_user"`
	Contributions               []ContributionSnapshot `json:"contributions,omitempty"`
}

// RegistrySnapshot is the wire form of a registry.
type RegistrySnapshot struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	ShareableID      string            `json:"shareable_id"`
	IsFirstTime      bool              `json:"is_first_time"`
	BabiesCount      int               `json:"babies_count"`
	ArrivalDate      *time.Time        `json:"arrival_date,omitempty"`
	WelcomeMessage   string            `json:"welcome_message"`
	ThankYouMessage  string            `json:"thank_you_message"`
	TotalFees        money.Optional    `json:"total_fees"`
	TotalWithdrawn   money.Optional    `json:"total_withdrawn"`
	ProcessorBalance *ProcessorBalance `json:"processor_balance,omitempty"`
	PayoutsEnabled   bool              `json:"payouts_enabled"`
	Services         []ServiceSnapshot `json:"services"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// SnapshotOptions controls how much of the aggregate is exposed.
type SnapshotOptions struct {
	// Viewer marks services owned by the requesting user. Nil for public views.
	Viewer domain.UserID
	// IncludeFinancials exposes withdrawn amounts, fees, and the processor
	// balance. Owner views only.
	IncludeFinancials bool
	// Balance attaches the processor-side balance snapshot when present.
	Balance *ProcessorBalance
}

// Snapshot serializes the registry for the wire.
func (r *Registry) Snapshot(opts SnapshotOptions) RegistrySnapshot {
	snap := RegistrySnapshot{
		ID:              r.ID.String(),
		Name:            r.Name,
		ShareableID:     r.ShareableID,
		IsFirstTime:     r.IsFirstTime,
		BabiesCount:     r.BabiesCount,
		ArrivalDate:     r.ArrivalDate,
		WelcomeMessage:  r.WelcomeMsg,
		ThankYouMessage: r.ThankYouMsg,
		PayoutsEnabled:  r.PayoutsEnabled,
		Services:        make([]ServiceSnapshot, 0, len(r.Services)),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if opts.IncludeFinancials {
		snap.TotalFees = money.Some(r.TotalFees())
		snap.TotalWithdrawn = money.Some(r.TotalWithdrawn())
		if opts.Balance != nil {
			b := *opts.Balance
			snap.ProcessorBalance = &b
		}
	}
	for i := range r.Services {
		snap.Services = append(snap.Services, r.Services[i].snapshot(r.OwnerID, opts))
	}
	return snap
}

func (s *Service) snapshot(owner domain.UserID, opts SnapshotOptions) ServiceSnapshot {
	out := ServiceSnapshot{
		ID:                 s.ID.String(),
		Name:               s.Name,
		Description:        s.Description,
		Hours:              s.Hours,
		CostPerHour:        money.Some(s.CostPerHour),
		TotalCost:          money.Some(s.TotalCost()),
		TotalContributions: money.Some(s.TotalContributions()),
		IsActive:           s.IsActive,
		IsAvailable:        s.IsAvailable(),
		IsCompleted:        s.IsCompleted(),
		IsOwnedByUser:      !opts.Viewer.IsNil() && opts.Viewer == owner,
	}
	if opts.IncludeFinancials {
		out.TotalWithdrawn = money.Some(s.TotalWithdrawn)
		out.AvailableWithdrawableAmount = money.Some(s.AvailableWithdrawableAmount())
		out.Contributions = make([]ContributionSnapshot, 0, len(s.Contributions))
		for i := range s.Contributions {
			c := &s.Contributions[i]
			out.Contributions = append(out.Contributions, ContributionSnapshot{
				ID:        c.ID.String(),
				Amount:    money.Some(c.Amount),
				Name:      c.ContributorName,
				Fulfilled: c.Fulfilled(),
				Summary:   c.Summary(),
				CreatedAt: c.CreatedAt,
			})
		}
	}
	return out
}
