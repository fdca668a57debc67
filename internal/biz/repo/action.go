package repo

import (
	"context"
	"errors"
	"time"
)

// ErrMuteUnsupported is returned by platforms that cannot mute a single
// member for a bounded duration. The pipeline falls back to a warning.
var ErrMuteUnsupported = errors.New("timed mute not supported on this platform")

// ActionRepo performs moderation actions on the host platform.
type ActionRepo interface {
	// Mute silences userID in groupID for the given duration.
	Mute(ctx context.Context, groupID, userID string, duration time.Duration) error
	// SendText posts a plain text message to the group.
	SendText(ctx context.Context, groupID, text string) error
}
