package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatwarden/internal/biz/domain"
)

// mockLedger is an in-memory LedgerRepo for guardrail tests.
type mockLedger struct {
	records map[string]*domain.ViolationRecord
	getErr  error
}

func newMockLedger() *mockLedger {
	return &mockLedger{records: make(map[string]*domain.ViolationRecord)}
}

func (m *mockLedger) Get(_ context.Context, groupID, userID string) (*domain.ViolationRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.records[groupID+"/"+userID], nil
}

func (m *mockLedger) Record(_ context.Context, groupID, userID, reason string, at time.Time) error {
	key := groupID + "/" + userID
	if rec := m.records[key]; rec != nil {
		rec.Count++
		rec.Reason = reason
		rec.LastTime = at
		return nil
	}
	m.records[key] = &domain.ViolationRecord{
		GroupID:  groupID,
		UserID:   userID,
		Count:    1,
		Reason:   reason,
		LastTime: at,
	}
	return nil
}

func (m *mockLedger) Recent(_ context.Context, limit int) ([]*domain.ViolationRecord, error) {
	out := make([]*domain.ViolationRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockLedger) Prune(_ context.Context, before time.Time) (int64, error) { return 0, nil }

func (m *mockLedger) Close() error { return nil }

func snapWith(users ...string) domain.Snapshot {
	snap := domain.Snapshot{}
	for i, u := range users {
		snap[u] = []domain.MessageRecord{msg("g1", u, int64(i), "something rude")}
	}
	return snap
}

func TestValidateAllowsCleanCandidate(t *testing.T) {
	uc := NewGuardrailUsecase(newMockLedger(), DefaultGuardrailConfig())

	ok, reject := uc.Validate(context.Background(), "g1", "1001", snapWith("1001"), "insult")
	if !ok {
		t.Errorf("clean candidate rejected: %s", reject)
	}
}

func TestValidateRejectsHallucinatedIdentity(t *testing.T) {
	uc := NewGuardrailUsecase(newMockLedger(), DefaultGuardrailConfig())

	ok, reject := uc.Validate(context.Background(), "g1", "9999", snapWith("1001"), "insult")
	if ok {
		t.Fatal("user absent from snapshot was allowed")
	}
	if reject != domain.RejectHallucinatedIdentity {
		t.Errorf("reject reason = %s, want hallucinated identity", reject)
	}
}

func TestValidateCooldown(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		lastPun time.Time
		wantOK  bool
		wantWhy domain.RejectReason
	}{
		{"ten minutes ago rejected", base.Add(-10 * time.Minute), false, domain.RejectCooldownActive},
		{"two hours ago allowed", base.Add(-2 * time.Hour), true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ledger := newMockLedger()
			ledger.Record(context.Background(), "g1", "1001", "prior", tc.lastPun)

			uc := NewGuardrailUsecase(ledger, GuardrailConfig{Cooldown: time.Hour})
			uc.now = func() time.Time { return base }

			ok, reject := uc.Validate(context.Background(), "g1", "1001", snapWith("1001"), "insult")
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if reject != tc.wantWhy {
				t.Errorf("reject reason = %s, want %s", reject, tc.wantWhy)
			}
		})
	}
}

func TestValidateLedgerErrorFailsClosed(t *testing.T) {
	ledger := newMockLedger()
	ledger.getErr = errors.New("disk on fire")

	uc := NewGuardrailUsecase(ledger, DefaultGuardrailConfig())

	ok, reject := uc.Validate(context.Background(), "g1", "1001", snapWith("1001"), "insult")
	if ok {
		t.Fatal("action allowed despite ledger failure")
	}
	if reject != domain.RejectLedgerUnavailable {
		t.Errorf("reject reason = %s, want ledger unavailable", reject)
	}
}

func TestValidateRejectsNoEvidence(t *testing.T) {
	snap := domain.Snapshot{"1001": {}}
	uc := NewGuardrailUsecase(newMockLedger(), DefaultGuardrailConfig())

	ok, reject := uc.Validate(context.Background(), "g1", "1001", snap, "insult")
	if ok {
		t.Fatal("user with zero messages was allowed")
	}
	if reject != domain.RejectNoEvidence {
		t.Errorf("reject reason = %s, want no evidence", reject)
	}
}

func TestValidateExtensionCheck(t *testing.T) {
	uc := NewGuardrailUsecase(newMockLedger(), DefaultGuardrailConfig())
	uc.AddCheck(func(snap domain.Snapshot, userID, reason string) (bool, string) {
		return reason != "spam", "spam verdicts handled elsewhere"
	})

	ok, reject := uc.Validate(context.Background(), "g1", "1001", snapWith("1001"), "spam")
	if ok {
		t.Fatal("extension check did not suppress the action")
	}
	if reject != domain.RejectCustomCheck {
		t.Errorf("reject reason = %s, want custom check", reject)
	}

	ok, _ = uc.Validate(context.Background(), "g1", "1001", snapWith("1001"), "insult")
	if !ok {
		t.Error("extension check rejected an unrelated reason")
	}
}
