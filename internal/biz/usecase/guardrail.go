package usecase

import (
	"context"
	"fmt"
	"time"

	"chatwarden/internal/biz/domain"
	"chatwarden/internal/biz/repo"
)

// GuardrailConfig contains guardrail tuning.
type GuardrailConfig struct {
	Cooldown time.Duration // minimum gap between punishments of the same user
}

// DefaultGuardrailConfig returns the default guardrail configuration.
func DefaultGuardrailConfig() GuardrailConfig {
	return GuardrailConfig{Cooldown: time.Hour}
}

// Check is an extension guardrail: a pure function of the snapshot, the
// candidate and the verdict reason. Returning false suppresses the action.
type Check func(snap domain.Snapshot, userID, reason string) (bool, string)

// GuardrailUsecase gates every punitive action. The oracle's output is
// untrusted; nothing is punished until the candidate passes every check.
type GuardrailUsecase struct {
	ledger repo.LedgerRepo
	config GuardrailConfig
	extra  []Check
	now    func() time.Time
}

// NewGuardrailUsecase creates a guardrail validator backed by the ledger.
func NewGuardrailUsecase(ledger repo.LedgerRepo, config GuardrailConfig) *GuardrailUsecase {
	return &GuardrailUsecase{
		ledger: ledger,
		config: config,
		now:    time.Now,
	}
}

// AddCheck appends an extension check. Checks run after the built-in ones,
// in registration order.
func (uc *GuardrailUsecase) AddCheck(check Check) {
	uc.extra = append(uc.extra, check)
}

// Validate runs the checks in fixed order, short-circuiting on the first
// failure. Each failure is logged with its specific reason; the action is
// suppressed, never queued or retried.
func (uc *GuardrailUsecase) Validate(ctx context.Context, groupID, userID string, snap domain.Snapshot, reason string) (bool, domain.RejectReason) {
	// 1. Membership: a candidate absent from the snapshot is a hallucinated
	// or injected identity. Reject unconditionally.
	if !snap.HasUser(userID) {
		fmt.Printf("[Guardrail] User %s not in snapshot for group %s, likely oracle hallucination, skipping\n", userID, groupID)
		return false, domain.RejectHallucinatedIdentity
	}

	// 2. Cooldown: a prior punishment inside the window means oracle noise
	// must not stack punishments on the same user.
	record, err := uc.ledger.Get(ctx, groupID, userID)
	if err != nil {
		fmt.Printf("[Guardrail] Ledger lookup failed for group %s user %s: %v, suppressing action\n", groupID, userID, err)
		return false, domain.RejectLedgerUnavailable
	}
	if record != nil && record.Count > 0 {
		if elapsed := uc.now().Sub(record.LastTime); elapsed < uc.config.Cooldown {
			fmt.Printf("[Guardrail] User %s punished %v ago (cooldown %v), skipping\n", userID, elapsed.Round(time.Second), uc.config.Cooldown)
			return false, domain.RejectCooldownActive
		}
	}

	// 3. Evidence: a user with zero buffered messages cannot have produced
	// the violation the oracle reports.
	if len(snap[userID]) == 0 {
		fmt.Printf("[Guardrail] User %s has no messages in snapshot, skipping\n", userID)
		return false, domain.RejectNoEvidence
	}

	for _, check := range uc.extra {
		if ok, why := check(snap, userID, reason); !ok {
			fmt.Printf("[Guardrail] Extension check rejected user %s: %s\n", userID, why)
			return false, domain.RejectCustomCheck
		}
	}

	fmt.Printf("[Guardrail] User %s passed all checks, action allowed (reason: %s)\n", userID, reason)
	return true, ""
}
