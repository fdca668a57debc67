package domain

// VerdictKind discriminates the outcome of parsing an oracle response.
type VerdictKind int

const (
	// VerdictNoViolation means the oracle found nothing actionable.
	VerdictNoViolation VerdictKind = iota
	// VerdictViolations means the oracle named one or more candidates.
	VerdictViolations
	// VerdictParseFailure means the response could not be understood.
	// Treated as an oracle fault, never as a valid verdict.
	VerdictParseFailure
)

// Violation is one candidate named by the oracle. Untrusted until it passes
// the guardrails.
type Violation struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// Verdict is the parsed oracle response.
type Verdict struct {
	Kind       VerdictKind
	Violations []Violation
	Raw        string // original response text, kept for logging
}
