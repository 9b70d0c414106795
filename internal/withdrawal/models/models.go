// Package models defines the withdrawal verification types.
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"pampermomma/pkg/domain"
	"pampermomma/pkg/money"
)

// OTPRequest is a pending withdrawal verification. One lives per registry at
// a time; starting a new one replaces the old.
//
// The code is compared against user input and only ever lives inside the TTL
// window. The device token never touches storage in the clear: the caller
// holds the plain token, we hold the bcrypt hash.
type OTPRequest struct {
	RegistryID domain.RegistryID `json:"registry_id"`
	OwnerID    domain.UserID     `json:"owner_id"`
	Code       string            `json:"code"`
	DeviceHash []byte            `json:"device_hash"`
	Amount     money.Amount      `json:"amount"`
	Attempts   int               `json:"attempts"`
	CreatedAt  time.Time         `json:"created_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// Expired reports whether the verification window has closed.
func (r *OTPRequest) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// MatchesDevice checks a plain device token against the stored hash.
func (r *OTPRequest) MatchesDevice(deviceIdentity string) bool {
	return bcrypt.CompareHashAndPassword(r.DeviceHash, []byte(deviceIdentity)) == nil
}
