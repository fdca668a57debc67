package data

import (
	"context"
	"time"

	"chatwarden/internal/biz/repo"
	"chatwarden/lark"
)

// larkRepo implements moderation actions for Lark chats. Lark offers no
// per-member timed mute, so Mute reports ErrMuteUnsupported and the
// pipeline degrades to a warning message.
type larkRepo struct {
	client *lark.Client
}

// NewLarkRepo creates a Lark action repository.
func NewLarkRepo(client *lark.Client) repo.ActionRepo {
	if client == nil {
		return nil
	}
	return &larkRepo{client: client}
}

func (r *larkRepo) Mute(ctx context.Context, groupID, userID string, duration time.Duration) error {
	return repo.ErrMuteUnsupported
}

func (r *larkRepo) SendText(ctx context.Context, groupID, text string) error {
	return r.client.SendText(groupID, text)
}
