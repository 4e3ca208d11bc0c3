// Package meshws talks to a mesh gateway daemon over a websocket. The
// gateway bridges to the radio mesh; this client only deals in JSON frames,
// never in device specifics.
package meshws

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"mesh-jeopardy-service/internal/game"
)

// Frame is the gateway wire format. A "send" frame with To set is a direct
// message; otherwise it goes to Channel.
type Frame struct {
	Type     string   `json:"type"`
	From     string   `json:"from,omitempty"`
	FromName string   `json:"fromName,omitempty"`
	To       string   `json:"to,omitempty"`
	Channel  int      `json:"channel"`
	Text     string   `json:"text,omitempty"`
	Channels []string `json:"channels,omitempty"`
}

// Message is an inbound text notification handed to the message handler.
type Message struct {
	SenderID   string
	SenderName string
	Channel    int
	Text       string
}

// Options tunes the client. Zero values get mesh-safe defaults.
type Options struct {
	// ChannelName is the broadcast channel to resolve by name; index 0 is
	// used until (or unless) the gateway announces a matching channel.
	ChannelName string
	// ChunkSize is the maximum runes per outbound frame.
	ChunkSize int
	// ChunkDelay paces sequential chunks to one recipient.
	ChunkDelay time.Duration
	OutboxSize int
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 200
	}
	if o.ChunkDelay <= 0 {
		o.ChunkDelay = 500 * time.Millisecond
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = 64
	}
	return o
}

// Client is a connected gateway session. Broadcast and Direct enqueue and
// return immediately; the write pump chunks and paces off the caller's
// goroutine, so callers may hold locks.
type Client struct {
	conn    *websocket.Conn
	opts    Options
	outbox  chan Frame
	handler func(Message)

	mu           sync.Mutex
	channelIndex int
}

var _ game.Sender = (*Client)(nil)

// Dial connects to the gateway websocket endpoint.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial mesh gateway %s: %w", url, err)
	}
	opts = opts.withDefaults()
	return &Client{
		conn:   conn,
		opts:   opts,
		outbox: make(chan Frame, opts.OutboxSize),
	}, nil
}

// OnMessage registers the inbound text handler. Must be called before Run.
func (c *Client) OnMessage(fn func(Message)) {
	c.handler = fn
}

// Run drives the read and write pumps until ctx is cancelled or the
// connection fails.
func (c *Client) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		c.conn.Close()
		return ctx.Err()
	})
	g.Go(func() error { return c.readPump() })
	g.Go(func() error { return c.writePump(ctx) })
	return g.Wait()
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Broadcast queues text for the resolved game channel.
func (c *Client) Broadcast(_ context.Context, text string) error {
	return c.enqueue(Frame{Type: "send", Channel: c.broadcastChannel(), Text: text})
}

// Direct queues text for a single recipient.
func (c *Client) Direct(_ context.Context, recipientID, text string) error {
	return c.enqueue(Frame{Type: "send", To: recipientID, Text: text})
}

func (c *Client) enqueue(frame Frame) error {
	select {
	case c.outbox <- frame:
		return nil
	default:
		return fmt.Errorf("gateway outbox full, dropping %d chars", len(frame.Text))
	}
}

func (c *Client) broadcastChannel() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelIndex
}

func (c *Client) readPump() error {
	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			return fmt.Errorf("gateway read: %w", err)
		}
		switch frame.Type {
		case "channels":
			c.resolveChannel(frame.Channels)
		case "text":
			if c.handler != nil {
				c.handler(Message{
					SenderID:   frame.From,
					SenderName: frame.FromName,
					Channel:    frame.Channel,
					Text:       frame.Text,
				})
			}
		}
	}
}

// resolveChannel matches the configured channel name case-insensitively;
// an unknown name falls back to index 0.
func (c *Client) resolveChannel(names []string) {
	index := 0
	found := false
	for i, name := range names {
		if name != "" && strings.EqualFold(name, c.opts.ChannelName) {
			index = i
			found = true
			break
		}
	}
	if !found && c.opts.ChannelName != "" {
		log.Printf("channel %q not found on gateway, using channel 0", c.opts.ChannelName)
	}
	c.mu.Lock()
	c.channelIndex = index
	c.mu.Unlock()
}

func (c *Client) writePump(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-c.outbox:
			chunks := splitText(frame.Text, c.opts.ChunkSize)
			for i, chunk := range chunks {
				out := frame
				out.Text = chunk
				if err := c.conn.WriteJSON(out); err != nil {
					return fmt.Errorf("gateway write: %w", err)
				}
				if i < len(chunks)-1 {
					time.Sleep(c.opts.ChunkDelay)
				}
			}
		}
	}
}

// splitText cuts text into rune-safe segments of at most limit runes.
func splitText(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(runes) > 0 {
		n := limit
		if n > len(runes) {
			n = len(runes)
		}
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}
