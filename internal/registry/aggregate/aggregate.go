// Package aggregate derives registry-level financial totals from a registry
// snapshot. It is a pure projection: no I/O, no mutation, O(n) over the
// services, safe to recompute on every snapshot change.
package aggregate

import (
	"pampermomma/internal/registry/models"
	"pampermomma/pkg/money"
)

// Totals is the derived aggregate. It is never persisted; callers recompute
// it whenever the underlying snapshot changes. Service slices are never nil.
type Totals struct {
	AvailableServices []models.ServiceSnapshot
	CompletedServices []models.ServiceSnapshot
	TotalRaised       money.Amount
	TotalCost         money.Amount
	TotalWithdrawn    money.Amount
	TotalFees         money.Amount
	AvailableBalance  money.Amount
}

// Compute projects registry-level totals from a snapshot.
//
// Absent or unparsable monetary fields contribute zero rather than failing
// the whole aggregate; a malformed service must never blank out the page.
// TotalFees comes from the registry record, not the services, because it
// reflects processor-side deductions outside the service ledger. A nil
// registry yields all-zero totals and empty lists.
func Compute(reg *models.RegistrySnapshot) Totals {
	totals := Totals{
		AvailableServices: []models.ServiceSnapshot{},
		CompletedServices: []models.ServiceSnapshot{},
	}
	if reg == nil {
		return totals
	}

	for _, svc := range reg.Services {
		if svc.IsAvailable && !svc.IsCompleted {
			totals.AvailableServices = append(totals.AvailableServices, svc)
		}
		if svc.IsCompleted {
			totals.CompletedServices = append(totals.CompletedServices, svc)
		}

		totals.TotalRaised = totals.TotalRaised.Add(svc.TotalContributions.OrZero())
		totals.TotalCost = totals.TotalCost.Add(svc.TotalCost.OrZero())
		totals.TotalWithdrawn = totals.TotalWithdrawn.Add(svc.TotalWithdrawn.OrZero())
		totals.AvailableBalance = totals.AvailableBalance.Add(svc.AvailableWithdrawableAmount.OrZero())
	}

	totals.TotalFees = reg.TotalFees.OrZero()
	return totals
}
