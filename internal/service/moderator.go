package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"chatwarden/internal/biz/domain"
	"chatwarden/internal/biz/repo"
	"chatwarden/internal/biz/usecase"
	"chatwarden/internal/conf"
)

// ModeratorService owns the moderation core: per-group buffers, the lock
// registry that serializes processing per group, the last-check clock, and
// the pipeline that turns buffered messages into (guarded) mutes.
type ModeratorService struct {
	bufferUC   *usecase.BufferUsecase
	guardUC    *usecase.GuardrailUsecase
	oracleRepo repo.OracleRepo
	actionRepo repo.ActionRepo
	ledgerRepo repo.LedgerRepo

	config          conf.ModerationConfig
	warningTemplate string

	// One mutex per group, created lazily exactly once. Processing cycles
	// for the same group serialize on it; different groups run in parallel.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	checkMu   sync.Mutex
	lastCheck map[string]time.Time

	enabledGroups map[string]struct{}
	whitelist     map[string]struct{}
	admins        map[string]struct{}

	now func() time.Time
}

// NewModeratorService creates the moderation core.
func NewModeratorService(
	bufferUC *usecase.BufferUsecase,
	guardUC *usecase.GuardrailUsecase,
	oracleRepo repo.OracleRepo,
	actionRepo repo.ActionRepo,
	ledgerRepo repo.LedgerRepo,
	config conf.ModerationConfig,
	warningTemplate string,
) *ModeratorService {
	s := &ModeratorService{
		bufferUC:        bufferUC,
		guardUC:         guardUC,
		oracleRepo:      oracleRepo,
		actionRepo:      actionRepo,
		ledgerRepo:      ledgerRepo,
		config:          config,
		warningTemplate: warningTemplate,
		locks:           make(map[string]*sync.Mutex),
		lastCheck:       make(map[string]time.Time),
		enabledGroups:   toSet(config.EnabledGroups),
		whitelist:       toSet(config.WhitelistUsers),
		admins:          toSet(config.AdminUsers),
		now:             time.Now,
	}
	return s
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// groupLock returns the group's mutex, creating it exactly once. The
// registry mutex makes concurrent first-access safe: two callers racing on
// a new group ID always end up with the same lock.
func (s *ModeratorService) groupLock(groupID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[groupID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[groupID] = lock
	}
	return lock
}

func (s *ModeratorService) lastCheckTime(groupID string) (time.Time, bool) {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()
	t, ok := s.lastCheck[groupID]
	return t, ok
}

func (s *ModeratorService) setLastCheck(groupID string, t time.Time) {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()
	s.lastCheck[groupID] = t
}

// armClock initializes the group's check clock on first contact so hybrid
// mode does not fire on the very first message.
func (s *ModeratorService) armClock(groupID string) {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()
	if _, ok := s.lastCheck[groupID]; !ok {
		s.lastCheck[groupID] = s.now()
	}
}

// HandleMessage filters and buffers an inbound group message, then
// evaluates the count trigger. selfID guards against the bot observing its
// own output.
func (s *ModeratorService) HandleMessage(msg domain.MessageRecord, selfID string) {
	if msg.GroupID == "" || msg.UserID == "" || strings.TrimSpace(msg.Text) == "" {
		return
	}
	if selfID != "" && msg.UserID == selfID {
		return
	}

	if _, exempt := s.whitelist[msg.UserID]; exempt {
		return
	}
	if len(s.enabledGroups) > 0 {
		if _, ok := s.enabledGroups[msg.GroupID]; !ok {
			return
		}
	}

	s.armClock(msg.GroupID)

	total := s.bufferUC.Append(msg)
	fmt.Printf("[Moderator] Group %s buffered %d/%d messages (mode=%s)\n",
		msg.GroupID, total, s.config.BatchSize, s.config.TriggerMode)

	if s.shouldTrigger(msg.GroupID, total, false) {
		// Run the cycle off the intake path; the group lock serializes it
		// against any concurrent periodic or forced cycle.
		go s.Process(context.Background(), msg.GroupID)
	}
}

// shouldTrigger evaluates the trigger conditions for one group. periodic
// marks evaluation from the timer loop, where time_only fires on staleness
// alone.
func (s *ModeratorService) shouldTrigger(groupID string, total int, periodic bool) bool {
	if total == 0 {
		return false
	}

	elapsed := s.config.CheckInterval
	if last, ok := s.lastCheckTime(groupID); ok {
		elapsed = s.now().Sub(last)
	}
	timeOK := elapsed >= s.config.CheckInterval
	countOK := total >= s.config.BatchSize

	switch s.config.TriggerMode {
	case conf.TriggerTimeOnly:
		return periodic && timeOK
	case conf.TriggerCountOnly:
		return countOK
	case conf.TriggerStrictHybrid:
		return timeOK && countOK
	default: // hybrid
		return timeOK || countOK
	}
}

// Process runs one processing cycle for a group: snapshot, transcript,
// oracle, guardrails, action, convergence. Serialized per group by the
// group lock; a duplicate firing that was blocked on the lock finds an
// empty snapshot and returns without calling the oracle.
func (s *ModeratorService) Process(ctx context.Context, groupID string) {
	lock := s.groupLock(groupID)
	lock.Lock()
	defer lock.Unlock()

	snap := s.bufferUC.Snapshot(groupID)

	// Convergence runs on every exit path, normal or fault: clear exactly
	// what was snapshotted and refresh the check clock, so one failed cycle
	// never leaves the group stuck or the buffer growing unchecked.
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Moderator] Panic while processing group %s: %v\n", groupID, r)
		}
		s.bufferUC.ClearSnapshot(groupID, snap)
		s.setLastCheck(groupID, s.now())
	}()

	total := snap.TotalCount()
	if total == 0 {
		return
	}

	fmt.Printf("[Moderator] Analyzing %d messages from group %s\n", total, groupID)

	transcript := usecase.BuildTranscript(snap)
	raw, err := s.oracleRepo.Judge(ctx, transcript)
	if err != nil {
		fmt.Printf("[Moderator] Oracle call failed for group %s: %v\n", groupID, err)
		return
	}

	verdict := usecase.ParseVerdict(raw)
	switch verdict.Kind {
	case domain.VerdictParseFailure:
		fmt.Printf("[Moderator] Unusable oracle response for group %s, no action this cycle\n", groupID)
		return
	case domain.VerdictNoViolation:
		fmt.Printf("[Moderator] No violations found in group %s\n", groupID)
		return
	}

	fmt.Printf("[Moderator] Oracle reported %d violation(s) in group %s\n", len(verdict.Violations), groupID)
	for _, v := range verdict.Violations {
		reason := v.Reason
		if reason == "" {
			reason = "rule violation"
		}
		if ok, _ := s.guardUC.Validate(ctx, groupID, v.UserID, snap, reason); ok {
			s.punish(ctx, groupID, v.UserID, reason)
		}
	}
}

// punish executes the mute, records it in the ledger and optionally posts
// a warning. Action failures are logged and abandoned; the next scheduled
// cycle is the retry mechanism.
func (s *ModeratorService) punish(ctx context.Context, groupID, userID, reason string) {
	duration := s.config.BanDuration

	if s.config.DryRun {
		fmt.Printf("[Moderator] Dry run: would mute user %s in group %s for %v (%s)\n", userID, groupID, duration, reason)
		return
	}

	err := s.actionRepo.Mute(ctx, groupID, userID, duration)
	if errors.Is(err, repo.ErrMuteUnsupported) {
		// Warn-only platform: the warning is the action.
		fmt.Printf("[Moderator] Mute unsupported, warning user %s in group %s instead\n", userID, groupID)
		err = nil
	} else if err != nil {
		fmt.Printf("[Moderator] Mute failed for user %s in group %s: %v\n", userID, groupID, err)
		return
	} else {
		fmt.Printf("[Moderator] Muted user %s in group %s for %v (%s)\n", userID, groupID, duration, reason)
	}

	if err := s.ledgerRepo.Record(ctx, groupID, userID, reason, s.now()); err != nil {
		fmt.Printf("[Moderator] Failed to record violation for user %s: %v\n", userID, err)
	}

	if s.config.SendWarning {
		warning := s.formatWarning(userID, reason, duration)
		if err := s.actionRepo.SendText(ctx, groupID, warning); err != nil {
			fmt.Printf("[Moderator] Failed to send warning to group %s: %v\n", groupID, err)
		}
	}
}

func (s *ModeratorService) formatWarning(userID, reason string, duration time.Duration) string {
	warning := s.warningTemplate
	if warning == "" {
		warning = "⚠️ User {user} has been muted for {duration} seconds: {reason}."
	}
	warning = strings.ReplaceAll(warning, "{user}", userID)
	warning = strings.ReplaceAll(warning, "{reason}", reason)
	warning = strings.ReplaceAll(warning, "{duration}", strconv.Itoa(int(duration.Seconds())))
	return warning
}

// ForceCheck runs an immediate processing cycle for a group, regardless of
// trigger conditions. Returns the number of messages that were buffered
// when the check was requested.
func (s *ModeratorService) ForceCheck(ctx context.Context, groupID string) int {
	total := s.bufferUC.TotalCount(groupID)
	s.Process(ctx, groupID)
	return total
}

// IsAdmin reports whether userID may run privileged commands.
func (s *ModeratorService) IsAdmin(userID string) bool {
	_, ok := s.admins[userID]
	return ok
}

// HandleCommand parses and executes an administrative chat command.
// Returns the reply text and whether the message was a command at all.
// Unprivileged callers are refused: an open forced check is a
// denial-of-service and moderation-noise vector.
func (s *ModeratorService) HandleCommand(ctx context.Context, groupID, userID, text string) (string, bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || fields[0] != "/warden" {
		return "", false
	}
	if !s.IsAdmin(userID) {
		return "Permission denied: admin only.", true
	}
	if len(fields) < 2 {
		return "Usage: /warden status|check|testban", true
	}

	switch fields[1] {
	case "status":
		return s.Status(), true
	case "check":
		total := s.bufferUC.TotalCount(groupID)
		if total == 0 {
			return "Buffer is empty, nothing to review.", true
		}
		s.ForceCheck(ctx, groupID)
		return fmt.Sprintf("Forced review of %d buffered messages complete.", total), true
	case "testban":
		// One-minute self-mute to verify the bot's platform permissions.
		if err := s.actionRepo.Mute(ctx, groupID, userID, time.Minute); err != nil {
			return fmt.Sprintf("Test mute failed: %v", err), true
		}
		return fmt.Sprintf("Test mute OK: user %s muted for 60 seconds.", userID), true
	default:
		return "Unknown command. Usage: /warden status|check|testban", true
	}
}

// Status returns a human-readable configuration and buffer overview.
func (s *ModeratorService) Status() string {
	groups, messages := s.bufferUC.Stats()
	return fmt.Sprintf(
		"Moderation status:\n"+
			"- trigger_mode: %s\n"+
			"- check_interval: %v\n"+
			"- batch_size: %d\n"+
			"- recent_message_limit: %d\n"+
			"- ban_duration: %v\n"+
			"- cooldown: %v\n"+
			"- dry_run: %v\n"+
			"- buffer_groups: %d\n"+
			"- buffer_messages: %d",
		s.config.TriggerMode, s.config.CheckInterval, s.config.BatchSize,
		s.config.RecentMessageLimit, s.config.BanDuration, s.config.Cooldown,
		s.config.DryRun, groups, messages,
	)
}

// periodicPass is invoked by the scheduler: trims oversized buffers and
// runs a cycle for every group whose trigger conditions hold.
func (s *ModeratorService) periodicPass(ctx context.Context) {
	for _, groupID := range s.bufferUC.GroupIDs() {
		s.bufferUC.TrimToRecent(groupID, s.config.RecentMessageLimit)

		total := s.bufferUC.TotalCount(groupID)
		if s.shouldTrigger(groupID, total, true) {
			fmt.Printf("[Moderator] Periodic trigger for group %s (%d messages)\n", groupID, total)
			s.Process(ctx, groupID)
		}
	}
}
