// Package withdrawal reifies the owner-side withdrawal flow as an explicit
// state machine: amount entry, out-of-band code verification, finalize.
// The machine holds the opaque device identity between the two server
// calls and never interprets it.
package withdrawal

import (
	"context"
	"log/slog"
	"sync"

	"pampermomma/internal/apiclient"
	"pampermomma/internal/registry/aggregate"
	"pampermomma/internal/registry/models"
	dErrors "pampermomma/pkg/domain-errors"
	"pampermomma/pkg/money"
)

// State is the closed set of withdrawal workflow states.
type State string

const (
	StateIdle                  State = "idle"
	StateAmountEntry           State = "amount_entry"
	StateVerificationRequested State = "verification_requested"
	StateCodeEntry             State = "code_entry"
	StateFinalizing            State = "finalizing"
	StateSucceeded             State = "succeeded"
	StateFailed                State = "failed"
)

const codeLength = 6

// Client is the server surface the flow calls. *apiclient.Client
// satisfies it.
type Client interface {
	InitiateWithdrawalVerification(ctx context.Context, registryID string, amount money.Amount, ownerEmail string) (string, error)
	Withdraw(ctx context.Context, registryID string, amount money.Amount, otp, deviceIdentity string) (*apiclient.WithdrawalReceipt, error)
}

// Workflow is a single withdrawal session for one registry. Only one may
// be open per registry at a time; Sessions enforces that.
type Workflow struct {
	mu sync.Mutex

	state            State
	registryID       string
	ownerEmail       string
	availableBalance money.Amount
	amount           money.Amount
	deviceIdentity   string
	receipt          *apiclient.WithdrawalReceipt
	message          string
	epoch            int

	client  Client
	logger  *slog.Logger
	onClose func()
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger attaches a logger for transition diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

// New builds an idle workflow bound to one registry.
func New(client Client, registryID, ownerEmail string, opts ...Option) *Workflow {
	w := &Workflow{
		state:      StateIdle,
		client:     client,
		registryID: registryID,
		ownerEmail: ownerEmail,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State reports the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Message reports the user-facing message for the last failure.
func (w *Workflow) Message() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.message
}

// Amount is the amount entered at amount_entry, preserved across
// wrong-code retries.
func (w *Workflow) Amount() money.Amount {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.amount
}

// DeviceIdentity exposes the opaque session binding, for assertions only.
func (w *Workflow) DeviceIdentity() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.deviceIdentity
}

// Receipt is the recorded withdrawal once the flow succeeds.
func (w *Workflow) Receipt() *apiclient.WithdrawalReceipt {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.receipt
}

// Open starts amount entry. availableBalance is the owner's current
// withdrawable balance from a fresh snapshot; the client-side amount
// check is an optimistic pre-check, the server re-validates at both
// steps.
func (w *Workflow) Open(availableBalance money.Amount) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateIdle {
		return dErrors.Newf(dErrors.CodeConflict, "withdrawal already in progress (state %s)", w.state)
	}
	w.availableBalance = availableBalance
	w.state = StateAmountEntry
	w.message = ""
	return nil
}

// OpenFromSnapshot starts amount entry with the withdrawable balance
// computed from a fresh registry snapshot.
func (w *Workflow) OpenFromSnapshot(snap *models.RegistrySnapshot) error {
	return w.Open(aggregate.Compute(snap).AvailableBalance)
}

// RequestVerification validates the amount locally and asks the server to
// dispatch a one-time code. Invalid amounts never reach the network. On
// success the flow holds the device identity and waits for the code.
func (w *Workflow) RequestVerification(ctx context.Context, amount money.Amount) error {
	w.mu.Lock()
	if w.state != StateAmountEntry {
		w.mu.Unlock()
		return dErrors.Newf(dErrors.CodeConflict, "cannot request verification from state %s", w.state)
	}
	if err := w.checkAmount(amount); err != nil {
		w.message = err.Error()
		w.mu.Unlock()
		return err
	}

	w.amount = amount
	w.state = StateVerificationRequested
	w.message = ""
	epoch := w.epoch
	w.mu.Unlock()

	deviceIdentity, err := w.client.InitiateWithdrawalVerification(ctx, w.registryID, amount, w.ownerEmail)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		w.logger.Debug("discarding stale verification response", "registry_id", w.registryID)
		return nil
	}
	if err != nil {
		w.state = StateAmountEntry
		w.message = userMessage(err)
		return err
	}
	w.deviceIdentity = deviceIdentity
	w.state = StateCodeEntry
	return nil
}

func (w *Workflow) checkAmount(amount money.Amount) error {
	if !amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "withdrawal amount must be greater than zero")
	}
	if amount.GreaterThan(w.availableBalance) {
		return dErrors.Newf(dErrors.CodeValidation, "amount exceeds your available balance of $%s", w.availableBalance)
	}
	return nil
}

// Finalize submits the emailed code. The client checks only that the code
// is six digits; everything semantic is server-side. Retryable failures
// (wrong code, expired code, balance moved) return to code_entry with the
// amount and device identity intact, so a mistyped code costs one retry,
// not the whole flow. A conflict means the payout account cannot receive
// transfers; no retry within this flow can fix that, so it is terminal.
func (w *Workflow) Finalize(ctx context.Context, otp string) error {
	w.mu.Lock()
	if w.state != StateCodeEntry {
		w.mu.Unlock()
		return dErrors.Newf(dErrors.CodeConflict, "cannot finalize from state %s", w.state)
	}
	if err := checkCode(otp); err != nil {
		w.message = err.Error()
		w.mu.Unlock()
		return err
	}

	w.state = StateFinalizing
	w.message = ""
	epoch := w.epoch
	amount := w.amount
	deviceIdentity := w.deviceIdentity
	w.mu.Unlock()

	receipt, err := w.client.Withdraw(ctx, w.registryID, amount, otp, deviceIdentity)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		w.logger.Debug("discarding stale finalize response", "registry_id", w.registryID)
		return nil
	}
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			w.state = StateFailed
			w.message = userMessage(err)
			if w.onClose != nil {
				w.onClose()
			}
			return err
		}
		w.state = StateCodeEntry
		w.message = userMessage(err)
		return err
	}
	w.receipt = receipt
	w.state = StateSucceeded
	w.message = ""
	if w.onClose != nil {
		w.onClose()
	}
	return nil
}

func checkCode(otp string) error {
	if len(otp) != codeLength {
		return dErrors.Newf(dErrors.CodeValidation, "enter the %d-digit code from your email", codeLength)
	}
	for _, r := range otp {
		if r < '0' || r > '9' {
			return dErrors.Newf(dErrors.CodeValidation, "enter the %d-digit code from your email", codeLength)
		}
	}
	return nil
}

// Cancel abandons the session. Late responses from a cancelled attempt
// are discarded; any server-side pending code simply expires.
func (w *Workflow) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateSucceeded || w.state == StateFailed {
		return
	}
	w.epoch++
	w.state = StateIdle
	w.amount = money.Zero()
	w.deviceIdentity = ""
	w.message = ""
	if w.onClose != nil {
		w.onClose()
	}
}

// userMessage maps an error to what the owner sees. Unauthorized carries
// its own advice since the session handler will also force re-auth.
func userMessage(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeConflict, dErrors.CodeUnauthorized:
		return err.Error()
	default:
		return "something went wrong, please try again"
	}
}
