// Package contribution reifies the contributor-side payment flow as an
// explicit state machine. The workflow shepherds a pledge from amount
// selection through processor confirmation; the server, not this machine,
// is authoritative for whether the charge actually landed.
package contribution

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"pampermomma/internal/apiclient"
	dErrors "pampermomma/pkg/domain-errors"
	"pampermomma/pkg/money"
)

// State is the closed set of contribution workflow states.
type State string

const (
	StateIdle            State = "idle"
	StateSelectingAmount State = "selecting_amount"
	StateCreatingIntent  State = "creating_intent"
	StateAwaitingPayment State = "awaiting_payment"
	StateRedirecting     State = "redirecting"
	StateSucceeded       State = "succeeded"
	StateProcessing      State = "processing"
	StateFailed          State = "failed"
)

// MinimumContribution is the smallest pledge the flow accepts. The server
// enforces its own processor floor; this is the UI floor.
var MinimumContribution = money.MustParse("10.00")

// IntentCreator obtains a processor client secret for a pledge.
// *apiclient.Client satisfies it.
type IntentCreator interface {
	CreatePaymentIntent(ctx context.Context, serviceID string, amount money.Amount, name, email string) (*apiclient.IntentHandle, error)
}

// Confirmer submits the processor confirmation for a client secret,
// directing the browser to returnURL when the processor is done.
type Confirmer interface {
	Confirm(ctx context.Context, clientSecret, returnURL string) error
}

// Target identifies the service being contributed to. Remaining carries
// the unfunded balance when the caller has a fresh snapshot; an absent
// value disables the client-side cap (overfunding stays a valid end
// state either way).
type Target struct {
	ServiceID   string
	ServiceName string
	Remaining   money.Optional
}

// Workflow is a single contribution session for one service. Transitions
// happen on user events and network callbacks only; methods are safe for
// the callback reentry that implies, but a Workflow is not meant to be
// shared across sessions.
type Workflow struct {
	mu sync.Mutex

	state       State
	target      Target
	amount      money.Amount
	handle      *apiclient.IntentHandle
	message     string
	shareableID string

	// epoch invalidates responses issued by a cancelled attempt.
	epoch int

	intents   IntentCreator
	confirmer Confirmer
	returnURL string
	minimum   money.Amount
	logger    *slog.Logger
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithMinimum overrides the contribution floor.
func WithMinimum(m money.Amount) Option {
	return func(w *Workflow) { w.minimum = m }
}

// WithLogger attaches a logger for transition diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

// New builds an idle workflow. returnURL is the application page the
// processor redirects back to; shareableID is appended to it so the
// return page can re-load the public registry view. An empty returnURL
// defers to the server-configured one carried on the intent handle.
func New(intents IntentCreator, confirmer Confirmer, shareableID, returnURL string, opts ...Option) *Workflow {
	w := &Workflow{
		state:       StateIdle,
		intents:     intents,
		confirmer:   confirmer,
		shareableID: shareableID,
		returnURL:   returnURL,
		minimum:     MinimumContribution,
		logger:      slog.Default(),
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

// Message reports the user-facing message for the last failure, empty
// when the last transition succeeded.
func (w *Workflow) Message() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.message
}

// SubmittedAmount is the amount the contributor chose. Success display
// uses this and nothing else.
func (w *Workflow) SubmittedAmount() money.Amount {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.amount
}

// Handle exposes the intent handle once one exists.
func (w *Workflow) Handle() *apiclient.IntentHandle {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.handle
}

// Open starts amount selection for a service.
func (w *Workflow) Open(target Target) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateIdle {
		return dErrors.Newf(dErrors.CodeConflict, "contribution already in progress (state %s)", w.state)
	}
	w.target = target
	w.state = StateSelectingAmount
	w.message = ""
	return nil
}

// Submit validates the chosen amount and performs the one server round-trip
// that precedes any processor UI. Validation failures never reach the
// network. On success the workflow holds a client secret and awaits the
// payment element.
func (w *Workflow) Submit(ctx context.Context, amount money.Amount, contributorName, contributorEmail string) error {
	w.mu.Lock()
	if w.state != StateSelectingAmount {
		w.mu.Unlock()
		return dErrors.Newf(dErrors.CodeConflict, "cannot submit amount from state %s", w.state)
	}
	if err := w.checkAmount(amount); err != nil {
		w.message = err.Error()
		w.mu.Unlock()
		return err
	}

	w.amount = amount
	w.state = StateCreatingIntent
	w.message = ""
	epoch := w.epoch
	target := w.target
	w.mu.Unlock()

	handle, err := w.intents.CreatePaymentIntent(ctx, target.ServiceID, amount, contributorName, contributorEmail)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		// Cancelled while in flight; an orphaned unconfirmed intent on the
		// server is a no-op.
		w.logger.Debug("discarding stale intent response", "service_id", target.ServiceID)
		return nil
	}
	if err != nil {
		w.state = StateSelectingAmount
		w.message = userMessage(err)
		return err
	}
	w.handle = handle
	if w.returnURL == "" {
		w.returnURL = handle.ReturnURL
	}
	w.state = StateAwaitingPayment
	return nil
}

func (w *Workflow) checkAmount(amount money.Amount) error {
	if amount.LessThan(w.minimum) {
		return dErrors.Newf(dErrors.CodeValidation, "minimum contribution is $%s", w.minimum)
	}
	if w.target.Remaining.Valid && amount.GreaterThan(w.target.Remaining.Amount) {
		return dErrors.Newf(dErrors.CodeValidation, "amount exceeds the $%s still needed", w.target.Remaining.Amount)
	}
	return nil
}

// Confirm submits the processor confirmation. The processor redirects the
// browser to the return URL; the return page classifies the outcome from
// redirect_status alone. Processor-side card errors keep the payment
// element open for another try.
func (w *Workflow) Confirm(ctx context.Context) error {
	w.mu.Lock()
	if w.state != StateAwaitingPayment {
		w.mu.Unlock()
		return dErrors.Newf(dErrors.CodeConflict, "cannot confirm from state %s", w.state)
	}
	w.state = StateRedirecting
	w.message = ""
	epoch := w.epoch
	secret := w.handle.ClientSecret
	returnURL := w.buildReturnURL()
	w.mu.Unlock()

	err := w.confirmer.Confirm(ctx, secret, returnURL)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		return nil
	}
	if err != nil {
		w.state = StateAwaitingPayment
		w.message = userMessage(err)
		return err
	}
	return nil
}

// ReturnURL is the application-controlled redirect target, carrying the
// registry's public identifier and the pledged amount for display
// continuity only.
func (w *Workflow) ReturnURL() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buildReturnURL()
}

func (w *Workflow) buildReturnURL() string {
	q := url.Values{}
	q.Set("sharable_id", w.shareableID)
	q.Set("amount", w.amount.String())
	return w.returnURL + "?" + q.Encode()
}

// CompleteRedirect applies the processor's redirect status. Only an
// explicit "succeeded" or "processing" reaches those states; anything else,
// including an absent status, is a failure.
func (w *Workflow) CompleteRedirect(redirectStatus string) State {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch redirectStatus {
	case "succeeded":
		w.state = StateSucceeded
		w.message = fmt.Sprintf("thank you for contributing $%s", w.amount)
	case "processing":
		w.state = StateProcessing
		w.message = "your payment is processing"
	default:
		w.state = StateFailed
		w.message = "payment was not completed"
	}
	return w.state
}

// Cancel closes the flow. Before an intent exists this is side-effect
// free; afterwards the unconfirmed intent is left orphaned on the server,
// which treats it as a no-op. A cancelled attempt's late responses are
// discarded.
func (w *Workflow) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case StateSucceeded, StateProcessing, StateFailed:
		return
	}
	w.epoch++
	w.state = StateIdle
	w.handle = nil
	w.message = ""
}

// userMessage maps an error to what the contributor sees. Validation and
// conflict detail is safe to surface; anything else gets a generic line.
func userMessage(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeConflict:
		return err.Error()
	case dErrors.CodeUnauthorized:
		return "your session has expired, please sign in again"
	default:
		return "something went wrong, please try again"
	}
}
