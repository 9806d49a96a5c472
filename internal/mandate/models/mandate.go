package models

import (
	"time"

	id "procura/pkg/domain"
)

// Status is the store-side lifecycle state of a mandate. The token bytes are
// immutable once issued; only this status can change post-issuance.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// CredentialType names the credential format a mandate is issued in.
type CredentialType string

const (
	// CredentialSignedToken is the compact three-segment signed token format.
	CredentialSignedToken CredentialType = "signed-token"
	// CredentialVerifiable is reserved. Issuance rejects it until a
	// verifiable-credential profile is specified.
	CredentialVerifiable CredentialType = "verifiable-credential"
)

// Mandate is one issued capability grant: a signed, time-bounded token
// carrying a named scope set, optionally capped to a maximum amount.
// A "refresh" is always a brand-new record; existing records are never
// edited in place.
type Mandate struct {
	ID             id.MandateID
	UserID         id.UserID
	Provider       id.Provider
	OrgRef         string
	Scopes         id.Scopes
	ChildID        string
	ProgramRef     string
	MaxAmountCents int64
	ValidFrom      time.Time
	ValidUntil     time.Time
	TimePeriod     string
	CredentialType CredentialType
	Status         Status
	Token          string
	CreatedAt      time.Time
}

// ActiveAt reports whether the record is usable for reuse at the given time:
// status active and validity window not yet closed.
func (m *Mandate) ActiveAt(t time.Time) bool {
	return m.Status == StatusActive && t.Before(m.ValidUntil)
}

// Covers reports whether the mandate's granted scopes include every
// requested scope. A superset request must mint a new mandate; scopes are
// never widened in place.
func (m *Mandate) Covers(requested id.Scopes) bool {
	return m.Scopes.Covers(requested)
}
