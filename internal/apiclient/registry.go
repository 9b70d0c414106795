package apiclient

import (
	"context"

	"pampermomma/internal/registry/models"
	"pampermomma/pkg/money"
)

// OwnerRegistry fetches the owner's financial view of a registry.
func (c *Client) OwnerRegistry(ctx context.Context, registryID string) (*models.RegistrySnapshot, error) {
	var snapshot models.RegistrySnapshot
	if err := c.Get(ctx, "/registries/r/"+registryID, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// SharedRegistry fetches the shared-link view of a registry.
func (c *Client) SharedRegistry(ctx context.Context, registryID string) (*models.RegistrySnapshot, error) {
	var snapshot models.RegistrySnapshot
	if err := c.Get(ctx, "/registries/shared/"+registryID, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// PublicRegistry resolves a shareable id to the guest view.
func (c *Client) PublicRegistry(ctx context.Context, shareableID string) (*models.RegistrySnapshot, error) {
	var snapshot models.RegistrySnapshot
	if err := c.Get(ctx, "/registries/public/"+shareableID, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// IntentHandle is what the card form needs from intent creation.
// ReturnURL is the server-configured confirmation return page.
type IntentHandle struct {
	ClientSecret   string `json:"clientSecret"`
	PublishableKey string `json:"publishableKey"`
	IntentID       string `json:"intent_id"`
	ReturnURL      string `json:"returnUrl"`
}

type createIntentRequest struct {
	ServiceID        string `json:"service_id"`
	Amount           string `json:"amount"`
	ContributorName  string `json:"contributor_name,omitempty"`
	ContributorEmail string `json:"contributor_email,omitempty"`
}

// CreatePaymentIntent opens a processor intent for a pledge.
func (c *Client) CreatePaymentIntent(ctx context.Context, serviceID string, amount money.Amount, name, contributorEmail string) (*IntentHandle, error) {
	var handle IntentHandle
	req := createIntentRequest{
		ServiceID:        serviceID,
		Amount:           amount.String(),
		ContributorName:  name,
		ContributorEmail: contributorEmail,
	}
	if err := c.Post(ctx, "/registries/payments/create-payment-intent", req, &handle); err != nil {
		return nil, err
	}
	return &handle, nil
}

type initiateWithdrawalRequest struct {
	Amount string `json:"amount"`
	Email  string `json:"email,omitempty"`
}

type initiateWithdrawalResponse struct {
	DeviceIdentity string `json:"device_identity"`
}

// InitiateWithdrawalVerification starts the withdrawal verification flow and
// returns the opaque device identity for this session.
func (c *Client) InitiateWithdrawalVerification(ctx context.Context, registryID string, amount money.Amount, ownerEmail string) (string, error) {
	var resp initiateWithdrawalResponse
	req := initiateWithdrawalRequest{Amount: amount.String(), Email: ownerEmail}
	err := c.Post(ctx, "/registries/r/"+registryID+"/initiate-withdrawal-verification", req, &resp)
	if err != nil {
		return "", err
	}
	return resp.DeviceIdentity, nil
}

type withdrawRequest struct {
	Amount         string `json:"amount"`
	OTP            string `json:"otp"`
	DeviceIdentity string `json:"device_identity"`
}

// WithdrawalReceipt is the recorded withdrawal returned on finalize.
type WithdrawalReceipt struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
	Status string `json:"status"`
}

// Withdraw finalizes a withdrawal with the emailed code and the device
// identity from initiation.
func (c *Client) Withdraw(ctx context.Context, registryID string, amount money.Amount, otp, deviceIdentity string) (*WithdrawalReceipt, error) {
	var receipt WithdrawalReceipt
	req := withdrawRequest{Amount: amount.String(), OTP: otp, DeviceIdentity: deviceIdentity}
	if err := c.Post(ctx, "/registries/r/"+registryID+"/withdraw", req, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}
