package domain

import "testing"

func TestSnapshotTotalCount(t *testing.T) {
	snap := Snapshot{
		"a": {{UserID: "a", Text: "1"}, {UserID: "a", Text: "2"}},
		"b": {{UserID: "b", Text: "3"}},
		"c": {},
	}
	if got := snap.TotalCount(); got != 3 {
		t.Errorf("TotalCount = %d, want 3", got)
	}
	if got := (Snapshot{}).TotalCount(); got != 0 {
		t.Errorf("empty TotalCount = %d, want 0", got)
	}
}

func TestSnapshotHasUser(t *testing.T) {
	snap := Snapshot{"a": {{UserID: "a"}}, "empty": {}}

	if !snap.HasUser("a") {
		t.Error("HasUser(a) = false")
	}
	if !snap.HasUser("empty") {
		t.Error("HasUser should report users present with zero messages")
	}
	if snap.HasUser("ghost") {
		t.Error("HasUser(ghost) = true")
	}
}
