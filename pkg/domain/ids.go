// Package domain holds the typed identifiers shared across services.
//
// IDs are distinct types over uuid.UUID so the compiler rejects a mandate ID
// where a charge ID is expected. Parse helpers enforce the invariant that IDs
// are valid, non-nil UUIDs at trust boundaries (HTTP handlers, store rows).
package domain

import (
	"github.com/google/uuid"

	dErrors "procura/pkg/domain-errors"
)

type (
	// UserID identifies the account a mandate is issued for.
	UserID uuid.UUID
	// MandateID identifies one issued capability token record.
	MandateID uuid.UUID
	// EntryID identifies one audit log entry.
	EntryID uuid.UUID
	// ChargeID identifies one billing charge row.
	ChargeID uuid.UUID
	// AssetID identifies one evidence asset.
	AssetID uuid.UUID
)

// PlanExecutionID identifies one run of a larger automated task. It is owned
// by the surrounding orchestration layer, so it stays an opaque string here.
type PlanExecutionID string

func (p PlanExecutionID) IsEmpty() bool  { return p == "" }
func (p PlanExecutionID) String() string { return string(p) }

// Provider names a third-party service an agent acts against
// (e.g. "skiclubpro", "daysmart", "campminder").
type Provider string

func (p Provider) String() string { return string(p) }

func (u UserID) IsNil() bool       { return uuid.UUID(u) == uuid.Nil }
func (u UserID) String() string    { return uuid.UUID(u).String() }
func (m MandateID) IsNil() bool    { return uuid.UUID(m) == uuid.Nil }
func (m MandateID) String() string { return uuid.UUID(m).String() }
func (e EntryID) IsNil() bool      { return uuid.UUID(e) == uuid.Nil }
func (e EntryID) String() string   { return uuid.UUID(e).String() }
func (c ChargeID) IsNil() bool     { return uuid.UUID(c) == uuid.Nil }
func (c ChargeID) String() string  { return uuid.UUID(c).String() }
func (a AssetID) IsNil() bool      { return uuid.UUID(a) == uuid.Nil }
func (a AssetID) String() string   { return uuid.UUID(a).String() }

// NewUserID mints a fresh user identifier.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewMandateID mints a fresh mandate identifier.
func NewMandateID() MandateID { return MandateID(uuid.New()) }

// NewEntryID mints a fresh audit entry identifier.
func NewEntryID() EntryID { return EntryID(uuid.New()) }

// NewChargeID mints a fresh charge identifier.
func NewChargeID() ChargeID { return ChargeID(uuid.New()) }

// NewAssetID mints a fresh evidence asset identifier.
func NewAssetID() AssetID { return AssetID(uuid.New()) }

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParseMandateID parses and validates a mandate ID from its string form.
func ParseMandateID(raw string) (MandateID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return MandateID{}, err
	}
	return MandateID(parsed), nil
}

// ParseChargeID parses and validates a charge ID from its string form.
func ParseChargeID(raw string) (ChargeID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return ChargeID{}, err
	}
	return ChargeID(parsed), nil
}
