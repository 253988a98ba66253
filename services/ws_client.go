package services

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client is one websocket connection. It starts unauthenticated (userID 0)
// and is bound to a user by an auth frame.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	log  *logrus.Entry

	userID atomic.Uint64

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeCode int
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		ID:     uuid.NewString(),
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, h.cfg.SendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
	c.log = h.log.WithFields(logrus.Fields{"conn_id": c.ID, "remote": conn.RemoteAddr().String()})
	return c
}

// UserID returns the bound user, or 0 while unauthenticated.
func (c *Client) UserID() uint {
	return uint(c.userID.Load())
}

func (c *Client) bind(userID uint) {
	c.userID.Store(uint64(userID))
}

// enqueue hands a frame to the write pump. A full buffer means the peer is
// not keeping up; the connection is dropped instead of blocking the caller.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		c.hub.dropSlow(c)
		return false
	}
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.log.WithError(err).Error("marshal outbound frame")
		return
	}
	c.enqueue(payload)
}

func (c *Client) sendError(text string) {
	c.sendJSON(ErrorFrame{Type: FrameError, Message: text})
}

// close is idempotent and the first code wins; the write pump sends the
// close frame on its way out. The server never closes with 1000: clients
// read that as a sign-out and stop reconnecting.
func (c *Client) close(code int) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.cancel()
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.close(websocket.CloseGoingAway)
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.WithError(err).Debug("read failed")
			}
			return
		}
		c.hub.handleFrame(c, data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.close(websocket.CloseGoingAway)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close(websocket.CloseGoingAway)
				return
			}
		case <-c.ctx.Done():
			deadline := time.Now().Add(c.hub.cfg.WriteWait)
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(c.closeCode, ""), deadline)
			return
		}
	}
}
