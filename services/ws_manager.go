package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"social-hub/metrics"
	"social-hub/models"
)

// AuthMode decides how an auth frame is turned into a user id.
type AuthMode string

const (
	// AuthToken binds the subject of the JWT carried in the frame.
	AuthToken AuthMode = "token"
	// AuthTrust binds the userId the client declares.
	AuthTrust AuthMode = "trust"
)

// BroadcastScope decides which authenticated sockets receive a message.
type BroadcastScope string

const (
	ScopeParticipants BroadcastScope = "participants"
	ScopeAll          BroadcastScope = "all"
)

// MessageStore is the persistence the hub needs.
type MessageStore interface {
	SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error)
	ParticipantIDs(ctx context.Context, conversationID uint) ([]uint, error)
}

type TokenParser interface {
	ParseToken(token string) (uint, error)
}

type HubConfig struct {
	AuthMode       AuthMode
	Scope          BroadcastScope
	SendBuffer     int
	MaxFrameBytes  int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	PersistTimeout time.Duration
	CheckOrigin    func(r *http.Request) bool
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		AuthMode:       AuthToken,
		Scope:          ScopeParticipants,
		SendBuffer:     256,
		MaxFrameBytes:  64 << 10,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		PersistTimeout: 5 * time.Second,
	}
}

func (c *HubConfig) fill() {
	def := DefaultHubConfig()
	if c.AuthMode == "" {
		c.AuthMode = def.AuthMode
	}
	if c.Scope == "" {
		c.Scope = def.Scope
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = def.SendBuffer
	}
	if c.MaxFrameBytes <= 0 {
		c.MaxFrameBytes = def.MaxFrameBytes
	}
	if c.WriteWait <= 0 {
		c.WriteWait = def.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = def.PongWait
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = def.PersistTimeout
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = func(*http.Request) bool { return true }
	}
}

// Hub is the connection registry: every live socket on this node, guarded by mu.
type Hub struct {
	store  MessageStore
	tokens TokenParser
	cfg    HubConfig
	log    *logrus.Entry
	nodeID string

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
	relay   Relay
}

func NewHub(store MessageStore, tokens TokenParser, cfg HubConfig, log *logrus.Logger) *Hub {
	cfg.fill()
	h := &Hub{
		store:   store,
		tokens:  tokens,
		cfg:     cfg,
		log:     log.WithField("component", "hub"),
		nodeID:  uuid.NewString(),
		clients: make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     cfg.CheckOrigin,
	}
	return h
}

// SetRelay enables cross-node fan-out. Call before Run.
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	h.relay = r
	h.mu.Unlock()
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.Connections.Inc()
	return true
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		metrics.Connections.Dec()
		c.log.WithField("user_id", c.UserID()).Info("websocket disconnected")
	}
}

func (h *Hub) dropSlow(c *Client) {
	metrics.SlowDrops.Inc()
	c.log.WithField("user_id", c.UserID()).Warn("send buffer full, dropping connection")
	h.remove(c)
	c.close(websocket.CloseTryAgainLater)
}

// Close disconnects every socket with 1001 and refuses new ones; clients
// treat that as a restart and reconnect with backoff.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
		c.close(websocket.CloseGoingAway)
	}
}

func (h *Hub) handleFrame(c *Client, data []byte) {
	var env frameEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		metrics.Frames.WithLabelValues("invalid").Inc()
		c.sendError(errTextInvalidFormat)
		return
	}

	switch env.Type {
	case FrameAuth:
		metrics.Frames.WithLabelValues(FrameAuth).Inc()
		h.handleAuth(c, data)
	case FrameMessage:
		metrics.Frames.WithLabelValues(FrameMessage).Inc()
		h.handleMessage(c, data)
	default:
		metrics.Frames.WithLabelValues("unknown").Inc()
		c.log.WithField("type", env.Type).Debug("ignoring frame")
	}
}

func (h *Hub) handleAuth(c *Client, data []byte) {
	var f AuthFrame
	if err := json.Unmarshal(data, &f); err != nil {
		c.sendError(errTextInvalidFormat)
		return
	}
	userID, err := h.resolveIdentity(f)
	if err != nil {
		c.log.WithError(err).Info("websocket auth rejected")
		c.sendJSON(authAck{Type: FrameAuth, Success: false})
		return
	}
	c.bind(userID)
	c.log.WithField("user_id", userID).Info("websocket authenticated")
	c.sendJSON(authAck{Type: FrameAuth, Success: true})
}

func (h *Hub) resolveIdentity(f AuthFrame) (uint, error) {
	if h.cfg.AuthMode == AuthTrust {
		if f.UserID == 0 {
			return 0, errors.New("userId is required")
		}
		return f.UserID, nil
	}
	if f.Token == "" {
		return 0, errors.New("token is required")
	}
	if h.tokens == nil {
		return 0, errors.New("token auth is not configured")
	}
	userID, err := h.tokens.ParseToken(f.Token)
	if err != nil {
		return 0, err
	}
	if f.UserID != 0 && f.UserID != userID {
		return 0, fmt.Errorf("userId %d does not match token subject", f.UserID)
	}
	return userID, nil
}

// handleMessage persists a chat frame and fans it out. Frames from
// unauthenticated connections are dropped without a reply.
func (h *Hub) handleMessage(c *Client, data []byte) {
	senderID := c.UserID()
	if senderID == 0 {
		return
	}
	frame, err := decodeChatFrame(data)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, h.cfg.PersistTimeout)
	defer cancel()

	content := frame.Content
	_, err = h.Send(ctx, SendMessageInput{
		ConversationID: frame.ConversationID,
		SenderID:       senderID,
		MediaInput:     MediaInput{Content: &content},
	})
	if err != nil {
		c.log.WithError(err).WithField("conversation_id", frame.ConversationID).Warn("message not persisted")
		c.sendError(frameErrorText(err))
	}
}

// Send persists a message once and fans it out once. Socket frames and the
// REST endpoint both go through here.
func (h *Hub) Send(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	msg, err := h.store.SendMessage(ctx, in)
	if err != nil {
		return nil, err
	}
	metrics.MessagesPersisted.Inc()
	h.Publish(ctx, msg)
	return msg, nil
}

// Publish fans a persisted message out to local sockets and, when a relay is
// set, to other nodes. It returns the number of local sockets it reached.
func (h *Hub) Publish(ctx context.Context, msg *models.Message) int {
	payload, err := json.Marshal(MessageFrame{Type: FrameMessage, Message: msg})
	if err != nil {
		h.log.WithError(err).Error("marshal message frame")
		return 0
	}

	env := RelayEnvelope{Origin: h.nodeID, Payload: payload}
	if h.cfg.Scope == ScopeParticipants {
		ids, err := h.store.ParticipantIDs(ctx, msg.ConversationID)
		if err != nil {
			h.log.WithError(err).WithField("message_id", msg.ID).Error("load participants for fan-out")
			return 0
		}
		env.Scoped = true
		env.Recipients = ids
	}

	n := h.deliver(env)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		if err := relay.Publish(ctx, env); err != nil {
			h.log.WithError(err).WithField("message_id", msg.ID).Warn("relay publish failed")
		}
	}
	return n
}

func (h *Hub) deliver(env RelayEnvelope) int {
	var allowed map[uint]struct{}
	if env.Scoped {
		allowed = make(map[uint]struct{}, len(env.Recipients))
		for _, id := range env.Recipients {
			allowed[id] = struct{}{}
		}
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		uid := c.UserID()
		if uid == 0 {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[uid]; !ok {
				continue
			}
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	n := 0
	for _, c := range targets {
		if c.enqueue(env.Payload) {
			n++
		}
	}
	metrics.Deliveries.Add(float64(n))
	return n
}

// Run delivers envelopes published by other nodes until ctx is done.
// Without a relay it just waits for ctx.
func (h *Hub) Run(ctx context.Context) error {
	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay == nil {
		<-ctx.Done()
		return nil
	}

	envs, err := relay.Subscribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-envs:
			if !ok {
				return nil
			}
			if env.Origin == h.nodeID {
				continue
			}
			h.deliver(env)
		}
	}
}
