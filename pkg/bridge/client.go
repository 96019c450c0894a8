package bridge

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// Client is a REQ/REP peer: it dials a Bridge's endpoint and issues one
// request at a time, matching the server's single-outstanding discipline.
type Client struct {
	conn net.Conn
	mu   sync.Mutex
}

// Dial connects to a running Bridge's REQ/REP endpoint.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bridge: dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Request sends payload as one request frame and returns the matching
// reply frame. Only one Request may be in flight at a time; callers
// wanting concurrent requests must use separate Clients.
func (c *Client) Request(ctx context.Context, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}

	if err := writeFrame(c.conn, payload); err != nil {
		return nil, fmt.Errorf("bridge: send request: %w", err)
	}
	reply, err := readFrame(c.conn)
	if err != nil {
		return nil, fmt.Errorf("bridge: read reply: %w", err)
	}
	return reply, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
