package domain

// MessageRecord is one observed group message. Records are immutable once
// buffered; the buffer owns them until a processing cycle consumes them.
type MessageRecord struct {
	GroupID   string
	UserID    string
	UserName  string
	Timestamp int64 // unix seconds
	Text      string
}

// Snapshot is an independent point-in-time copy of one group's buffer,
// keyed by user ID. The live buffer keeps accepting appends while a
// snapshot is being analyzed.
type Snapshot map[string][]MessageRecord

// TotalCount returns the number of messages across all users.
func (s Snapshot) TotalCount() int {
	total := 0
	for _, msgs := range s {
		total += len(msgs)
	}
	return total
}

// HasUser reports whether the snapshot contains an entry for userID.
func (s Snapshot) HasUser(userID string) bool {
	_, ok := s[userID]
	return ok
}
