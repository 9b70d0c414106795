// Package domain defines typed identifiers shared across services. Distinct
// UUID types prevent a service ID from being passed where a registry ID is
// expected; the compiler enforces what would otherwise be runtime checks.
package domain

import (
	"github.com/google/uuid"

	dErrors "pampermomma/pkg/domain-errors"
)

type (
	// UserID identifies an account holder (registry owner or shared-with user).
	UserID uuid.UUID
	// RegistryID identifies a registry.
	RegistryID uuid.UUID
	// ServiceID identifies a service within a registry.
	ServiceID uuid.UUID
	// ContributionID identifies a recorded contribution.
	ContributionID uuid.UUID
	// WithdrawalID identifies a recorded withdrawal.
	WithdrawalID uuid.UUID
)

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id RegistryID) String() string     { return uuid.UUID(id).String() }
func (id ServiceID) String() string      { return uuid.UUID(id).String() }
func (id ContributionID) String() string { return uuid.UUID(id).String() }
func (id WithdrawalID) String() string   { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id RegistryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ServiceID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// The IDs serialize as canonical UUID strings, not byte arrays.

func (id UserID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id RegistryID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id ServiceID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id ContributionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id WithdrawalID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(text []byte) error {
	u, err := parseUUID(string(text))
	*id = UserID(u)
	return err
}

func (id *RegistryID) UnmarshalText(text []byte) error {
	u, err := parseUUID(string(text))
	*id = RegistryID(u)
	return err
}

func (id *ServiceID) UnmarshalText(text []byte) error {
	u, err := parseUUID(string(text))
	*id = ServiceID(u)
	return err
}

func (id *ContributionID) UnmarshalText(text []byte) error {
	u, err := parseUUID(string(text))
	*id = ContributionID(u)
	return err
}

func (id *WithdrawalID) UnmarshalText(text []byte) error {
	u, err := parseUUID(string(text))
	*id = WithdrawalID(u)
	return err
}

// NewUserID generates a fresh user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewRegistryID generates a fresh registry ID.
func NewRegistryID() RegistryID { return RegistryID(uuid.New()) }

// NewServiceID generates a fresh service ID.
func NewServiceID() ServiceID { return ServiceID(uuid.New()) }

// NewContributionID generates a fresh contribution ID.
func NewContributionID() ContributionID { return ContributionID(uuid.New()) }

// NewWithdrawalID generates a fresh withdrawal ID.
func NewWithdrawalID() WithdrawalID { return WithdrawalID(uuid.New()) }

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "invalid id %q", s)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be nil")
	}
	return u, nil
}

// ParseUserID parses and validates a user ID string.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	return UserID(u), err
}

// ParseRegistryID parses and validates a registry ID string.
func ParseRegistryID(s string) (RegistryID, error) {
	u, err := parseUUID(s)
	return RegistryID(u), err
}

// ParseServiceID parses and validates a service ID string.
func ParseServiceID(s string) (ServiceID, error) {
	u, err := parseUUID(s)
	return ServiceID(u), err
}

// ParseContributionID parses and validates a contribution ID string.
func ParseContributionID(s string) (ContributionID, error) {
	u, err := parseUUID(s)
	return ContributionID(u), err
}

// ParseWithdrawalID parses and validates a withdrawal ID string.
func ParseWithdrawalID(s string) (WithdrawalID, error) {
	u, err := parseUUID(s)
	return WithdrawalID(u), err
}
