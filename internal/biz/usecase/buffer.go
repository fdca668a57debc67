package usecase

import (
	"fmt"
	"sort"
	"sync"

	"chatwarden/internal/biz/domain"
)

// BufferUsecase owns the in-memory message record store: one buffer per
// group, one ordered message list per user inside it. All access goes
// through the internal mutex; group entries are created on first append and
// removed once the stale-message sweep empties them.
type BufferUsecase struct {
	mu     sync.Mutex
	groups map[string]map[string][]domain.MessageRecord
}

// NewBufferUsecase creates an empty buffer store.
func NewBufferUsecase() *BufferUsecase {
	return &BufferUsecase{
		groups: make(map[string]map[string][]domain.MessageRecord),
	}
}

// Append adds a message to its group's buffer and returns the group's new
// total message count.
func (uc *BufferUsecase) Append(rec domain.MessageRecord) int {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	group, ok := uc.groups[rec.GroupID]
	if !ok {
		group = make(map[string][]domain.MessageRecord)
		uc.groups[rec.GroupID] = group
	}
	group[rec.UserID] = append(group[rec.UserID], rec)

	total := 0
	for _, msgs := range group {
		total += len(msgs)
	}
	return total
}

// Snapshot returns an independent copy of the group's buffer. The live
// buffer is untouched and keeps accepting appends while the snapshot is
// analyzed.
func (uc *BufferUsecase) Snapshot(groupID string) domain.Snapshot {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	group := uc.groups[groupID]
	snap := make(domain.Snapshot, len(group))
	for userID, msgs := range group {
		if len(msgs) == 0 {
			continue
		}
		cp := make([]domain.MessageRecord, len(msgs))
		copy(cp, msgs)
		snap[userID] = cp
	}
	return snap
}

// ClearSnapshot removes exactly the messages captured in snap from the live
// buffer. Removal is by record identity, not by count: TrimToRecent or
// DropOlderThan may have already deleted snapshotted records while the cycle
// ran, and a length-based clear would then eat messages appended after the
// snapshot was taken.
func (uc *BufferUsecase) ClearSnapshot(groupID string, snap domain.Snapshot) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	group, ok := uc.groups[groupID]
	if !ok {
		return
	}
	for userID, taken := range snap {
		live := group[userID]
		if len(live) == 0 {
			continue
		}
		counts := make(map[domain.MessageRecord]int, len(taken))
		for _, rec := range taken {
			counts[rec]++
		}
		remaining := make([]domain.MessageRecord, 0, len(live))
		for _, rec := range live {
			if counts[rec] > 0 {
				counts[rec]--
				continue
			}
			remaining = append(remaining, rec)
		}
		if len(remaining) == 0 {
			delete(group, userID)
		} else {
			group[userID] = remaining
		}
	}
}

// TotalCount returns the group's buffered message count.
func (uc *BufferUsecase) TotalCount(groupID string) int {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	total := 0
	for _, msgs := range uc.groups[groupID] {
		total += len(msgs)
	}
	return total
}

// GroupIDs returns the IDs of all groups that currently have an entry.
func (uc *BufferUsecase) GroupIDs() []string {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	ids := make([]string, 0, len(uc.groups))
	for id := range uc.groups {
		ids = append(ids, id)
	}
	return ids
}

// Stats returns the number of tracked groups and the total buffered
// message count across all of them.
func (uc *BufferUsecase) Stats() (groups, messages int) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	for _, group := range uc.groups {
		groups++
		for _, msgs := range group {
			messages += len(msgs)
		}
	}
	return groups, messages
}

// TrimToRecent keeps only the group's most recent limit messages across all
// users. The cheap path is a count check; the flatten-and-sort cost is paid
// only when the buffer actually exceeds the limit. limit <= 0 disables
// trimming.
func (uc *BufferUsecase) TrimToRecent(groupID string, limit int) {
	if limit <= 0 {
		return
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	group, ok := uc.groups[groupID]
	if !ok {
		return
	}
	total := 0
	for _, msgs := range group {
		total += len(msgs)
	}
	if total <= limit {
		return
	}

	flattened := make([]domain.MessageRecord, 0, total)
	for _, msgs := range group {
		flattened = append(flattened, msgs...)
	}
	sort.SliceStable(flattened, func(i, j int) bool {
		return flattened[i].Timestamp < flattened[j].Timestamp
	})
	kept := flattened[total-limit:]

	rebuilt := make(map[string][]domain.MessageRecord, len(group))
	for _, rec := range kept {
		rebuilt[rec.UserID] = append(rebuilt[rec.UserID], rec)
	}
	uc.groups[groupID] = rebuilt

	fmt.Printf("[Buffer] Trimmed group %s: %d -> %d messages\n", groupID, total, limit)
}

// DropOlderThan removes messages with a timestamp before cutoff from every
// group. Emptied user lists and group entries are deleted.
func (uc *BufferUsecase) DropOlderThan(cutoff int64) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	for groupID, group := range uc.groups {
		for userID, msgs := range group {
			kept := msgs[:0]
			for _, rec := range msgs {
				if rec.Timestamp >= cutoff {
					kept = append(kept, rec)
				}
			}
			if len(kept) == 0 {
				delete(group, userID)
			} else {
				group[userID] = kept
			}
		}
		if len(group) == 0 {
			delete(uc.groups, groupID)
		}
	}
}
