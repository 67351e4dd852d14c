package testutil

import (
	"testing"
	"time"

	"github.com/dom/tps-identity/internal/domain"
	"github.com/dom/tps-identity/internal/websocket"
	gorillaWS "github.com/gorilla/websocket"
)

// WSClient watches the admin audit stream in tests.
type WSClient struct {
	t      *testing.T
	conn   *gorillaWS.Conn
	frames chan *websocket.Message
}

// NewWSClient dials url and starts reading in the background. The
// connection is closed on test cleanup.
func NewWSClient(t *testing.T, url string) *WSClient {
	t.Helper()

	dialer := gorillaWS.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect to websocket: %v", err)
	}

	c := &WSClient{
		t:      t,
		conn:   conn,
		frames: make(chan *websocket.Message, 64),
	}
	go c.read()

	t.Cleanup(c.Close)
	return c
}

func (c *WSClient) read() {
	defer close(c.frames)
	for {
		var msg websocket.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.frames <- &msg
	}
}

// Close sends a normal close frame and drops the connection. Safe to call
// more than once.
func (c *WSClient) Close() {
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(gorillaWS.CloseMessage,
		gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""), deadline)
	_ = c.conn.Close()
}

// ExpectMessage returns the next message of msgType, skipping others. It
// fails the test on timeout or when the stream ends first.
func (c *WSClient) ExpectMessage(msgType websocket.MessageType, timeout time.Duration) *websocket.Message {
	c.t.Helper()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case msg, ok := <-c.frames:
			if !ok {
				c.t.Fatalf("stream closed while waiting for %s", msgType)
				return nil
			}
			if msg.Type == msgType {
				return msg
			}
		case <-timer.C:
			c.t.Fatalf("timeout waiting for %s", msgType)
			return nil
		}
	}
}

// ExpectAuditEvent waits for the next audit event and decodes it.
func (c *WSClient) ExpectAuditEvent(timeout time.Duration) (domain.AuditEvent, *websocket.Message) {
	c.t.Helper()

	msg := c.ExpectMessage(websocket.MessageTypeAuditEvent, timeout)
	var ev domain.AuditEvent
	if err := msg.Decode(&ev); err != nil {
		c.t.Fatalf("failed to decode audit event: %v", err)
	}
	return ev, msg
}
