package onebot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	reconnectDelay = 5 * time.Second
	defaultTimeout = 15 * time.Second
)

// Client speaks the OneBot v11 protocol over a single WebSocket connection:
// event frames stream in, action calls go out and are matched to their
// responses by the echo field.
type Client struct {
	url         string
	accessToken string
	timeout     time.Duration

	connMu  sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan actionResponse
	nextID    atomic.Uint64

	onGroupMessage func(GroupMessage)

	ctx    context.Context
	cancel context.CancelFunc
}

// GroupMessage is a normalized inbound group message event.
type GroupMessage struct {
	MessageID int64
	GroupID   string
	UserID    string
	SelfID    string
	UserName  string
	Text      string
	Time      int64 // unix seconds
}

// NewClient creates a OneBot client for the given websocket endpoint.
func NewClient(url, accessToken string) *Client {
	return &Client{
		url:         url,
		accessToken: accessToken,
		timeout:     defaultTimeout,
		pending:     make(map[string]chan actionResponse),
	}
}

// OnGroupMessage registers the inbound group message handler.
func (c *Client) OnGroupMessage(handler func(GroupMessage)) {
	c.onGroupMessage = handler
}

// Start connects and reads events until the context is canceled,
// reconnecting on connection loss. Blocks the caller.
func (c *Client) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	for {
		if err := c.runOnce(); err != nil {
			fmt.Printf("[OneBot] Connection error: %v\n", err)
		}

		select {
		case <-c.ctx.Done():
			return c.ctx.Err()
		case <-time.After(reconnectDelay):
			fmt.Println("[OneBot] Reconnecting...")
		}
	}
}

// Stop closes the connection and stops the read loop.
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()
}

func (c *Client) runOnce() error {
	header := http.Header{}
	if c.accessToken != "" {
		header.Set("Authorization", "Bearer "+c.accessToken)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(c.ctx, c.url, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	fmt.Printf("[OneBot] Connected to %s\n", c.url)

	defer func() {
		c.connMu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.connMu.Unlock()
		conn.Close()
		c.failPending(fmt.Errorf("connection closed"))
	}()

	for {
		select {
		case <-c.ctx.Done():
			return nil
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		c.dispatch(data)
	}
}

// frame covers both event pushes and action responses; responses are
// recognized by a non-empty echo.
type frame struct {
	PostType    string          `json:"post_type"`
	MessageType string          `json:"message_type"`
	MessageID   int64           `json:"message_id"`
	GroupID     int64           `json:"group_id"`
	UserID      int64           `json:"user_id"`
	SelfID      int64           `json:"self_id"`
	RawMessage  string          `json:"raw_message"`
	Time        int64           `json:"time"`
	Sender      *senderInfo     `json:"sender"`
	Status      string          `json:"status"`
	Retcode     int             `json:"retcode"`
	Message     string          `json:"message"`
	Echo        string          `json:"echo"`
	Data        json.RawMessage `json:"data"`
}

type senderInfo struct {
	Nickname string `json:"nickname"`
	Card     string `json:"card"` // group display name, preferred over nickname
}

type actionResponse struct {
	status  string
	retcode int
	message string
	err     error
}

func (c *Client) dispatch(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		fmt.Printf("[OneBot] Failed to parse frame: %v\n", err)
		return
	}

	if f.Echo != "" {
		c.resolve(f.Echo, actionResponse{status: f.Status, retcode: f.Retcode, message: f.Message})
		return
	}

	if f.PostType != "message" || f.MessageType != "group" {
		return
	}
	if c.onGroupMessage == nil {
		return
	}

	name := ""
	if f.Sender != nil {
		name = f.Sender.Card
		if name == "" {
			name = f.Sender.Nickname
		}
	}

	c.onGroupMessage(GroupMessage{
		MessageID: f.MessageID,
		GroupID:   strconv.FormatInt(f.GroupID, 10),
		UserID:    strconv.FormatInt(f.UserID, 10),
		SelfID:    strconv.FormatInt(f.SelfID, 10),
		UserName:  name,
		Text:      f.RawMessage,
		Time:      f.Time,
	})
}

func (c *Client) resolve(echo string, resp actionResponse) {
	c.pendingMu.Lock()
	ch, ok := c.pending[echo]
	if ok {
		delete(c.pending, echo)
	}
	c.pendingMu.Unlock()
	if ok {
		ch <- resp
	}
}

func (c *Client) failPending(err error) {
	c.pendingMu.Lock()
	for echo, ch := range c.pending {
		delete(c.pending, echo)
		ch <- actionResponse{err: err}
	}
	c.pendingMu.Unlock()
}

type actionCall struct {
	Action string      `json:"action"`
	Params interface{} `json:"params"`
	Echo   string      `json:"echo"`
}

func (c *Client) callAction(ctx context.Context, action string, params interface{}) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	echo := fmt.Sprintf("warden-%d", c.nextID.Add(1))
	ch := make(chan actionResponse, 1)

	c.pendingMu.Lock()
	c.pending[echo] = ch
	c.pendingMu.Unlock()

	call := actionCall{Action: action, Params: params, Echo: echo}
	c.writeMu.Lock()
	err := conn.WriteJSON(call)
	c.writeMu.Unlock()
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, echo)
		c.pendingMu.Unlock()
		return fmt.Errorf("write %s: %w", action, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, echo)
		c.pendingMu.Unlock()
		return fmt.Errorf("%s: %w", action, ctx.Err())
	case resp := <-ch:
		if resp.err != nil {
			return fmt.Errorf("%s: %w", action, resp.err)
		}
		if resp.status == "failed" || (resp.retcode != 0 && resp.status != "async") {
			return fmt.Errorf("%s failed: retcode=%d %s", action, resp.retcode, resp.message)
		}
		return nil
	}
}

// SetGroupBan mutes a group member for the given duration.
func (c *Client) SetGroupBan(ctx context.Context, groupID, userID string, duration time.Duration) error {
	gid, err := strconv.ParseInt(groupID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid group id %q: %w", groupID, err)
	}
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	return c.callAction(ctx, "set_group_ban", map[string]interface{}{
		"group_id": gid,
		"user_id":  uid,
		"duration": int64(duration.Seconds()),
	})
}

// SendGroupMsg posts a plain text message to a group.
func (c *Client) SendGroupMsg(ctx context.Context, groupID, text string) error {
	gid, err := strconv.ParseInt(groupID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid group id %q: %w", groupID, err)
	}

	return c.callAction(ctx, "send_group_msg", map[string]interface{}{
		"group_id": gid,
		"message":  text,
	})
}
