package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pampermomma/pkg/domain"
	"pampermomma/pkg/money"
)

func fulfilledContribution(amount, fee string, availableOn *time.Time) Contribution {
	c := Contribution{
		ID:     domain.NewContributionID(),
		Amount: money.MustParse(amount),
		Status: ContributionSucceeded,
	}
	if fee != "" {
		c.Fee = money.Some(money.MustParse(fee))
	}
	c.AvailableOn = availableOn
	return c
}

func TestService_FundingStates(t *testing.T) {
	svc := Service{
		ID:          domain.NewServiceID(),
		Hours:       10,
		CostPerHour: money.MustParse("20.00"),
		IsActive:    true,
	}

	assert.Equal(t, "200.00", svc.TotalCost().String())
	assert.True(t, svc.IsAvailable())
	assert.False(t, svc.IsCompleted())

	svc.Contributions = []Contribution{fulfilledContribution("50.00", "", nil)}
	assert.Equal(t, "50.00", svc.TotalContributions().String())
	assert.Equal(t, "150.00", svc.Remaining().String())
	assert.True(t, svc.IsAvailable())

	// Overfunded: still a valid, completed state.
	svc.Contributions = append(svc.Contributions, fulfilledContribution("200.00", "", nil))
	assert.Equal(t, "250.00", svc.TotalContributions().String())
	assert.True(t, svc.IsCompleted())
	assert.False(t, svc.IsAvailable())
	assert.Equal(t, "-50.00", svc.Remaining().String())
}

func TestService_PendingContributionsDoNotFund(t *testing.T) {
	svc := Service{Hours: 1, CostPerHour: money.MustParse("100.00"), IsActive: true}
	svc.Contributions = []Contribution{
		{Amount: money.MustParse("100.00"), Status: ContributionPending},
		{Amount: money.MustParse("40.00"), Status: ContributionFailed},
	}
	assert.True(t, svc.TotalContributions().IsZero())
	assert.False(t, svc.IsCompleted())
}

func TestService_InactiveNeverAvailableNorCompleted(t *testing.T) {
	svc := Service{Hours: 1, CostPerHour: money.MustParse("10.00"), IsActive: false}
	svc.Contributions = []Contribution{fulfilledContribution("10.00", "", nil)}
	assert.False(t, svc.IsAvailable())
	assert.False(t, svc.IsCompleted())
}

func TestRegistry_AvailableBalance(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	reg := Registry{
		ID: domain.NewRegistryID(),
		Services: []Service{
			{
				ID:          domain.NewServiceID(),
				Hours:       10,
				CostPerHour: money.MustParse("20.00"),
				IsActive:    true,
				Contributions: []Contribution{
					fulfilledContribution("50.00", "1.75", &past),
					// Settles tomorrow, not yet withdrawable.
					fulfilledContribution("30.00", "1.10", &future),
					// No settlement data yet, not withdrawable.
					fulfilledContribution("20.00", "", nil),
				},
			},
		},
	}

	assert.Equal(t, "48.25", reg.AvailableBalance(now).String())

	reg.Withdrawals = []Withdrawal{
		{Amount: money.MustParse("10.00"), Status: WithdrawalSucceeded},
		{Amount: money.MustParse("5.00"), Status: WithdrawalPending},
		{Amount: money.MustParse("99.00"), Status: WithdrawalFailed},
	}
	assert.Equal(t, "15.00", reg.TotalWithdrawn().String())
	assert.Equal(t, "33.25", reg.AvailableBalance(now).String())
}

func TestContribution_Summary(t *testing.T) {
	c := Contribution{ContributorName: "Sam", Amount: money.MustParse("25.00")}
	assert.Equal(t, "Sam contributed $25.00", c.Summary())

	anon := Contribution{Amount: money.MustParse("5.00")}
	assert.Equal(t, "An anonymous contributor contributed $5.00", anon.Summary())
}

func TestSnapshot_FinancialRedaction(t *testing.T) {
	owner := domain.NewUserID()
	now := time.Now().UTC().Add(-time.Hour)
	reg := Registry{
		ID:      domain.NewRegistryID(),
		OwnerID: owner,
		Services: []Service{
			{
				ID:          domain.NewServiceID(),
				Hours:       2,
				CostPerHour: money.MustParse("30.00"),
				IsActive:    true,
				Contributions: []Contribution{
					fulfilledContribution("25.00", "0.90", &now),
				},
			},
		},
	}

	public := reg.Snapshot(SnapshotOptions{})
	assert.False(t, public.TotalFees.Valid)
	assert.False(t, public.TotalWithdrawn.Valid)
	assert.Nil(t, public.ProcessorBalance)
	assert.Empty(t, public.Services[0].Contributions)
	assert.False(t, public.Services[0].IsOwnedByUser)
	// Funding progress stays visible to guests.
	assert.Equal(t, "25.00", public.Services[0].TotalContributions.OrZero().String())

	full := reg.Snapshot(SnapshotOptions{
		Viewer:            owner,
		IncludeFinancials: true,
		Balance:           &ProcessorBalance{Available: money.MustParse("40.00")},
	})
	assert.True(t, full.TotalFees.Valid)
	assert.Equal(t, "0.90", full.TotalFees.OrZero().String())
	assert.NotNil(t, full.ProcessorBalance)
	assert.Len(t, full.Services[0].Contributions, 1)
	assert.True(t, full.Services[0].IsOwnedByUser)
}
