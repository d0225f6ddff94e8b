package internal

import (
	"context"
	"time"

	"github.com/driftchat/drift-sdk-go/driftchat/internal/stomp"

	"github.com/coder/websocket"
)

// Conn wraps websocket.Conn with per-call timeouts and STOMP framing.
type Conn struct {
	ws           *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewConn(ws *websocket.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{ws: ws, readTimeout: readTimeout, writeTimeout: writeTimeout}
}

// ReadFrame reads one frame. The read timeout doubles as the heartbeat
// monitor: the server heartbeats on a fixed interval, so a timeout here means
// heartbeats stopped arriving. A *stomp.ParseError return leaves the
// connection usable; any other error does not.
func (c *Conn) ReadFrame(ctx context.Context) (*stomp.Frame, error) {
	if c.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.readTimeout)
		defer cancel()
	}
	_, data, err := c.ws.Read(ctx)
	if err != nil {
		return nil, err
	}
	return stomp.Parse(data)
}

func (c *Conn) WriteFrame(ctx context.Context, f *stomp.Frame) error {
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	return c.ws.Write(ctx, websocket.MessageText, f.Marshal())
}

func (c *Conn) Close(code websocket.StatusCode, reason string) error {
	return c.ws.Close(code, reason)
}
