package contribution

import (
	"pampermomma/internal/registry/aggregate"
	"pampermomma/pkg/money"
)

// TargetsFrom derives the contributable targets from computed registry
// totals. Only open services are offered; the remaining balance rides
// along as the client-side cap when the service cost is known.
func TargetsFrom(totals aggregate.Totals) []Target {
	targets := make([]Target, 0, len(totals.AvailableServices))
	for _, svc := range totals.AvailableServices {
		t := Target{ServiceID: svc.ID, ServiceName: svc.Name}
		if svc.TotalCost.Valid {
			remaining := svc.TotalCost.Amount.Sub(svc.TotalContributions.OrZero())
			if remaining.IsPositive() {
				t.Remaining = money.Some(remaining)
			}
		}
		targets = append(targets, t)
	}
	return targets
}
