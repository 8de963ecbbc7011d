// Package delivery implements the C8 outbound channel: a background
// goroutine owning a reconnecting websocket, a bounded non-blocking outbound
// queue, and a keep-alive ping ticker (spec §4.8).
package delivery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"

	"github.com/voxstream/voxstream/pkg/logging"
	"github.com/voxstream/voxstream/pkg/transcript"
)

// Channel is the background sender. Its loop lives entirely in Run; Send is
// the only method safe to call from other goroutines.
type Channel struct {
	url              string
	connectTimeout   time.Duration
	reconnectSeconds float64
	pingSeconds      float64
	log              logging.Logger

	outbound chan []byte
}

// Config groups the constructor parameters, mirroring pkg/config.Delivery.
type Config struct {
	URL              string
	ConnectTimeout   time.Duration
	ReconnectSeconds float64
	PingSeconds      float64
	QueueCapacity    int
}

// New returns a Channel that is not yet connected; call Run in its own
// goroutine to start the reconnect loop.
func New(cfg Config, log logging.Logger) *Channel {
	if log == nil {
		log = logging.NoOp{}
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 256
	}
	return &Channel{
		url:              cfg.URL,
		connectTimeout:   cfg.ConnectTimeout,
		reconnectSeconds: cfg.ReconnectSeconds,
		pingSeconds:      cfg.PingSeconds,
		log:              log,
		outbound:         make(chan []byte, cfg.QueueCapacity),
	}
}

// Send serializes v to JSON and enqueues it for delivery. It never blocks: if
// the outbound queue is full the message is dropped, since the caller must
// not stall on a slow network (spec §4.8).
func (c *Channel) Send(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.log.Error("marshal outbound record", "error", err)
		return
	}
	select {
	case c.outbound <- payload:
	default:
		c.log.Warn("outbound queue full, dropping message")
	}
}

// Run owns the connection for as long as ctx is alive: dial, then loop
// send/ping until an error forces a reconnect, sleeping reconnectSeconds
// between attempts. Returns when ctx is canceled.
func (c *Channel) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.dial(ctx)
		if err != nil {
			c.log.Warn("delivery connect failed", "error", err)
			if !sleepOrDone(ctx, c.reconnectSeconds) {
				return
			}
			continue
		}

		c.serve(ctx, conn)
		conn.Close(websocket.StatusNormalClosure, "")

		if ctx.Err() != nil {
			return
		}
		if !sleepOrDone(ctx, c.reconnectSeconds) {
			return
		}
	}
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx := ctx
	if c.connectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.connectTimeout)
		defer cancel()
	}
	conn, _, err := websocket.Dial(dialCtx, c.url, nil)
	return conn, err
}

// serve runs the connected send/ping loop until a send error or ctx
// cancellation. Pending messages lost on disconnect are lost by design.
func (c *Channel) serve(ctx context.Context, conn *websocket.Conn) {
	pingPayload, _ := json.Marshal(transcript.NewPing())

	var lastPing time.Time
	if c.pingSeconds > 0 {
		lastPing = time.Now()
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case payload := <-c.outbound:
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				c.log.Warn("delivery send failed", "error", err)
				return
			}

		case <-ticker.C:
			if c.pingSeconds <= 0 {
				continue
			}
			if time.Since(lastPing) < time.Duration(c.pingSeconds*float64(time.Second)) {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, pingPayload); err != nil {
				c.log.Warn("delivery ping failed", "error", err)
				return
			}
			lastPing = time.Now()
		}
	}
}

func sleepOrDone(ctx context.Context, seconds float64) bool {
	if seconds <= 0 {
		seconds = 1
	}
	select {
	case <-time.After(time.Duration(seconds * float64(time.Second))):
		return true
	case <-ctx.Done():
		return false
	}
}
