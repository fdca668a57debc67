package data

import (
	"context"
	"time"

	"chatwarden/internal/biz/repo"
	"chatwarden/onebot"
)

// onebotRepo implements moderation actions through a OneBot v11 connection.
type onebotRepo struct {
	client *onebot.Client
}

// NewOneBotRepo creates a OneBot action repository.
func NewOneBotRepo(client *onebot.Client) repo.ActionRepo {
	if client == nil {
		return nil
	}
	return &onebotRepo{client: client}
}

// Mute silences a group member via set_group_ban.
func (r *onebotRepo) Mute(ctx context.Context, groupID, userID string, duration time.Duration) error {
	return r.client.SetGroupBan(ctx, groupID, userID, duration)
}

// SendText posts a plain text message to the group.
func (r *onebotRepo) SendText(ctx context.Context, groupID, text string) error {
	return r.client.SendGroupMsg(ctx, groupID, text)
}
