package contribution

import (
	"net/url"

	"pampermomma/pkg/money"
)

// Outcome is what the return page renders after the processor redirect.
type Outcome struct {
	State       State
	ShareableID string
	// Amount is the pledge the client itself carried through the redirect.
	// It is display continuity only; absent or unparsable values stay absent.
	Amount money.Optional
}

// ClassifyRedirect maps a processor redirect_status to a terminal state.
// Anything other than an explicit "succeeded" or "processing", including
// an empty status, is a failure.
func ClassifyRedirect(redirectStatus string) State {
	switch redirectStatus {
	case "succeeded":
		return StateSucceeded
	case "processing":
		return StateProcessing
	default:
		return StateFailed
	}
}

// ParseReturnURL derives the return-page outcome from the redirect URL.
// The classification comes from redirect_status alone; the other query
// parameters never imply success.
func ParseReturnURL(raw string) (Outcome, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Outcome{State: StateFailed}, err
	}
	q := u.Query()

	out := Outcome{
		State:       ClassifyRedirect(q.Get("redirect_status")),
		ShareableID: q.Get("sharable_id"),
	}
	if amount, err := money.Parse(q.Get("amount")); err == nil {
		out.Amount = money.Some(amount)
	}
	return out, nil
}
