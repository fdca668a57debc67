package server

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"chatwarden/internal/biz/domain"
	"chatwarden/internal/service"
	"chatwarden/onebot"
)

const dedupCacheSize = 4096

// OneBotServer feeds OneBot group message events into the moderation core
// and answers administrative chat commands.
type OneBotServer struct {
	client *onebot.Client
	mod    *service.ModeratorService

	// Some OneBot implementations redeliver events after a reconnect.
	dedup *lru.Cache[int64, struct{}]
}

// NewOneBotServer creates a new OneBot intake server.
func NewOneBotServer(client *onebot.Client, mod *service.ModeratorService) (*OneBotServer, error) {
	dedup, err := lru.New[int64, struct{}](dedupCacheSize)
	if err != nil {
		return nil, err
	}
	return &OneBotServer{
		client: client,
		mod:    mod,
		dedup:  dedup,
	}, nil
}

// Start registers the message handler and runs the client event loop.
// Blocks until ctx is canceled.
func (s *OneBotServer) Start(ctx context.Context) error {
	s.client.OnGroupMessage(s.handleMessage)
	return s.client.Start(ctx)
}

// Stop stops the underlying client.
func (s *OneBotServer) Stop() {
	s.client.Stop()
}

func (s *OneBotServer) handleMessage(msg onebot.GroupMessage) {
	if msg.MessageID != 0 {
		if _, seen := s.dedup.Get(msg.MessageID); seen {
			return
		}
		s.dedup.Add(msg.MessageID, struct{}{})
	}

	ctx := context.Background()

	if reply, handled := s.mod.HandleCommand(ctx, msg.GroupID, msg.UserID, msg.Text); handled {
		if err := s.client.SendGroupMsg(ctx, msg.GroupID, reply); err != nil {
			fmt.Printf("[OneBotServer] Failed to send command reply: %v\n", err)
		}
		return
	}

	s.mod.HandleMessage(domain.MessageRecord{
		GroupID:   msg.GroupID,
		UserID:    msg.UserID,
		UserName:  msg.UserName,
		Timestamp: msg.Time,
		Text:      msg.Text,
	}, msg.SelfID)
}
