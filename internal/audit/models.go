// Package audit provides the append-then-seal log of privileged calls and
// the middleware that wraps every privileged action with scope enforcement,
// logging, and redaction.
package audit

import (
	"time"

	id "procura/pkg/domain"
)

// Decision is the lifecycle state of an audit entry. An entry is created
// pending immediately before the wrapped action starts and transitions
// exactly once to allowed or denied. Entries are never deleted.
type Decision string

const (
	DecisionPending Decision = "pending"
	DecisionAllowed Decision = "allowed"
	DecisionDenied  Decision = "denied"
)

// Entry is one privileged call's durable record: its arguments verbatim and
// a redacted copy of its result.
type Entry struct {
	ID              id.EntryID
	PlanExecutionID id.PlanExecutionID
	MandateID       id.MandateID
	Tool            string
	Args            map[string]any
	Decision        Decision
	Result          any
	CreatedAt       time.Time
	SealedAt        *time.Time
}

// Sealed reports whether the entry has reached a terminal decision.
func (e *Entry) Sealed() bool {
	return e.Decision != DecisionPending
}
