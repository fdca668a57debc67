package usecase

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"chatwarden/internal/biz/domain"
)

// BuildTranscript flattens a snapshot into a single chronological transcript
// for the oracle: one line per message, globally sorted by timestamp across
// all users (stable, so same-second messages keep their relative order).
// Per-user grouping alone would hide cross-user interleaving, and the oracle
// needs true chronology to judge escalation and who said what first.
func BuildTranscript(snap domain.Snapshot) string {
	flattened := make([]domain.MessageRecord, 0, snap.TotalCount())

	// Iterate users in a fixed order so ties between users are deterministic.
	userIDs := make([]string, 0, len(snap))
	for userID := range snap {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)
	for _, userID := range userIDs {
		flattened = append(flattened, snap[userID]...)
	}

	sort.SliceStable(flattened, func(i, j int) bool {
		return flattened[i].Timestamp < flattened[j].Timestamp
	})

	var sb strings.Builder
	for _, rec := range flattened {
		name := rec.UserName
		if name == "" {
			name = "unknown"
		}
		clock := time.Unix(rec.Timestamp, 0).Format("15:04:05")
		sb.WriteString(fmt.Sprintf("[%s|%s] %s: %s\n", rec.UserID, name, clock, rec.Text))
	}
	return strings.TrimRight(sb.String(), "\n")
}
