// Package processor talks to the card payment processor. The wire shapes
// follow the processor's REST API: form-encoded requests, amounts in cents,
// bearer auth with the account's secret key.
package processor

import (
	"context"
	"time"

	"pampermomma/pkg/money"
)

// Client is the processor surface the payment and withdrawal services need.
type Client interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error)
	GetIntent(ctx context.Context, intentID string) (*Intent, error)
	CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error)
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	GetBalance(ctx context.Context, accountID string) (*Balance, error)
}

// CreateIntentRequest describes a new payment intent. Metadata rides along
// to the webhook unchanged.
type CreateIntentRequest struct {
	Amount       money.Amount
	Currency     string
	ReceiptEmail string
	Metadata     map[string]string
}

// Intent is a processor payment intent. GetIntent expands the latest charge
// and its balance transaction so fee data comes back in one call.
type Intent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	ReceiptEmail string            `json:"receipt_email"`
	Metadata     map[string]string `json:"metadata"`
	LatestCharge *Charge           `json:"latest_charge"`
	Created      int64             `json:"created"`
}

// AmountMoney converts the cent amount to a decimal amount.
func (i *Intent) AmountMoney() money.Amount {
	return money.FromCents(i.Amount)
}

// Charge is the capture attempt behind an intent.
type Charge struct {
	ID                 string              `json:"id"`
	BalanceTransaction *BalanceTransaction `json:"balance_transaction"`
}

// BalanceTransaction carries the processor's fee breakdown for a charge.
type BalanceTransaction struct {
	ID          string `json:"id"`
	Fee         int64  `json:"fee"`
	Net         int64  `json:"net"`
	AvailableOn int64  `json:"available_on"`
}

// FeeMoney converts the cent fee to a decimal amount.
func (bt *BalanceTransaction) FeeMoney() money.Amount {
	return money.FromCents(bt.Fee)
}

// AvailableOnTime converts the settlement timestamp to UTC time.
func (bt *BalanceTransaction) AvailableOnTime() time.Time {
	return time.Unix(bt.AvailableOn, 0).UTC()
}

// TransferRequest moves funds to a connected payout account.
type TransferRequest struct {
	Amount      money.Amount
	Currency    string
	Destination string
	Description string
}

// Transfer is a processor transfer record.
type Transfer struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Destination string `json:"destination"`
	Created     int64  `json:"created"`
}

// Account is the connected payout account.
type Account struct {
	ID             string `json:"id"`
	PayoutsEnabled bool   `json:"payouts_enabled"`
	ChargesEnabled bool   `json:"charges_enabled"`
}

// Balance is the processor-side balance for a connected account.
type Balance struct {
	Available []BalancePart `json:"available"`
	Pending   []BalancePart `json:"pending"`
}

// BalancePart is one currency bucket of a balance.
type BalancePart struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// AvailableTotal sums the available buckets.
func (b *Balance) AvailableTotal() money.Amount {
	var total money.Amount
	for _, part := range b.Available {
		total = total.Add(money.FromCents(part.Amount))
	}
	return total
}

// PendingTotal sums the pending buckets.
func (b *Balance) PendingTotal() money.Amount {
	var total money.Amount
	for _, part := range b.Pending {
		total = total.Add(money.FromCents(part.Amount))
	}
	return total
}
