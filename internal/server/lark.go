package server

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"chatwarden/internal/biz/domain"
	"chatwarden/internal/service"
	"chatwarden/lark"
)

// LarkServer feeds Lark group message events into the moderation core.
// The platform is warn-only (no timed mute), which the action repository
// handles; intake is identical to OneBot apart from event shape.
type LarkServer struct {
	client *lark.Client
	mod    *service.ModeratorService

	dedup *lru.Cache[string, struct{}]
}

// NewLarkServer creates a new Lark intake server.
func NewLarkServer(client *lark.Client, mod *service.ModeratorService) (*LarkServer, error) {
	dedup, err := lru.New[string, struct{}](dedupCacheSize)
	if err != nil {
		return nil, err
	}
	return &LarkServer{
		client: client,
		mod:    mod,
		dedup:  dedup,
	}, nil
}

// Start registers the message handler and runs the client event loop.
// Blocks until ctx is canceled.
func (s *LarkServer) Start(ctx context.Context) error {
	s.client.OnGroupMessage(s.handleMessage)
	return s.client.Start(ctx)
}

// Stop stops the underlying client.
func (s *LarkServer) Stop() {
	s.client.Stop()
}

func (s *LarkServer) handleMessage(msg lark.GroupMessage) {
	if msg.MessageID != "" {
		if _, seen := s.dedup.Get(msg.MessageID); seen {
			return
		}
		s.dedup.Add(msg.MessageID, struct{}{})
	}

	ctx := context.Background()

	if reply, handled := s.mod.HandleCommand(ctx, msg.ChatID, msg.SenderID, msg.Text); handled {
		if err := s.client.SendText(msg.ChatID, reply); err != nil {
			fmt.Printf("[LarkServer] Failed to send command reply: %v\n", err)
		}
		return
	}

	s.mod.HandleMessage(domain.MessageRecord{
		GroupID:   msg.ChatID,
		UserID:    msg.SenderID,
		Timestamp: msg.Time,
		Text:      msg.Text,
	}, "")
}
