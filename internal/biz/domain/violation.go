package domain

import "time"

// ViolationRecord tracks punishments for one (group, user) pair.
type ViolationRecord struct {
	GroupID  string
	UserID   string
	Count    int
	Reason   string // reason of the most recent punishment
	LastTime time.Time
}

// RejectReason identifies which guardrail suppressed a punitive action.
// A rejection is the system working as intended, not an error.
type RejectReason string

const (
	// RejectHallucinatedIdentity means the oracle named a user that does not
	// appear in the snapshot under review.
	RejectHallucinatedIdentity RejectReason = "hallucinated_identity"
	// RejectCooldownActive means the user was already punished within the
	// cooldown window.
	RejectCooldownActive RejectReason = "cooldown_active"
	// RejectNoEvidence means the user has no buffered messages in the
	// snapshot to support the verdict.
	RejectNoEvidence RejectReason = "no_evidence"
	// RejectLedgerUnavailable means the cooldown history could not be read;
	// the action is suppressed rather than risking a repeat punishment.
	RejectLedgerUnavailable RejectReason = "ledger_unavailable"
	// RejectCustomCheck means an extension check vetoed the action.
	RejectCustomCheck RejectReason = "custom_check"
)
