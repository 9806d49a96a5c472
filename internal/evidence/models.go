// Package evidence stores the supporting artifacts a plan execution leaves
// behind: screenshots, confirmation pages, provider receipts. Assets are
// append-only and content-addressed so a record can be checked against the
// bytes it described.
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	id "procura/pkg/domain"
)

// AssetType names what kind of artifact a reference points at.
type AssetType string

const (
	AssetScreenshot   AssetType = "screenshot"
	AssetConfirmation AssetType = "confirmation"
	AssetReceipt      AssetType = "receipt"
)

// Asset is one captured artifact. Reference is where the bytes live (object
// store key, URL); ContentHash is the hex sha256 of those bytes at capture
// time.
type Asset struct {
	ID              id.AssetID
	PlanExecutionID id.PlanExecutionID
	Type            AssetType
	Reference       string
	ContentHash     string
	CreatedAt       time.Time
}

// HashContent computes the hex sha256 digest recorded on assets.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Matches reports whether the given bytes are the ones the asset recorded.
func (a *Asset) Matches(content []byte) bool {
	return a.ContentHash == HashContent(content)
}
