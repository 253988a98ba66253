// Package client keeps one authenticated chat socket open for a signed-in
// user and reconnects it with exponential backoff when it drops.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	BaseDelay          = time.Second
	MaxDelay           = 30 * time.Second
	DefaultMaxAttempts = 5

	dialTimeout = 10 * time.Second
	writeWait   = 10 * time.Second
)

// ErrNotConnected is returned by Send while no socket is open.
var ErrNotConnected = errors.New("not connected")

type State int

const (
	Disconnected State = iota
	Connecting
	Authenticating
	Connected
	Backoff
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Authenticating:
		return "authenticating"
	case Connected:
		return "connected"
	case Backoff:
		return "backoff"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// BackoffDelay is the wait before reconnect attempt n (zero based).
func BackoffDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return MaxDelay
	}
	if d := BaseDelay << attempt; d < MaxDelay {
		return d
	}
	return MaxDelay
}

// Dialer is satisfied by *websocket.Dialer.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Frame is any server frame. Success is set on auth acks; Message holds
// the record of a message frame or the text of an error frame.
type Frame struct {
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
}

type Options struct {
	URL         string
	Dialer      Dialer
	MaxAttempts int
	Logger      *logrus.Logger

	OnFrame  func(Frame)
	OnNotice func(string)
	OnState  func(State)
}

type stopFunc func() bool

// Manager owns the socket lifecycle. All fields below mu are guarded by it.
type Manager struct {
	opts  Options
	log   *logrus.Entry
	after func(time.Duration, func()) stopFunc

	writeMu sync.Mutex

	mu       sync.Mutex
	state    State
	attempt  int
	signedIn bool
	userID   uint
	token    string
	conn     *websocket.Conn
	gen      uint64
	stop     stopFunc
	pending  []func()
}

func New(opts Options) *Manager {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Manager{
		opts: opts,
		log:  opts.Logger.WithField("component", "chat_client"),
		after: func(d time.Duration, f func()) stopFunc {
			return time.AfterFunc(d, f).Stop
		},
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempt is the number of reconnects scheduled since the socket last opened.
func (m *Manager) Attempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt
}

// SignIn opens the socket and authenticates it once open.
func (m *Manager) SignIn(userID uint, token string) {
	m.mu.Lock()
	m.signedIn = true
	m.userID = userID
	m.token = token
	m.attempt = 0
	m.connectLocked()
	m.unlock()
}

// SignOut closes the socket with the normal closure code. No reconnect follows.
func (m *Manager) SignOut() {
	m.mu.Lock()
	m.signedIn = false
	conn := m.resetLocked()
	m.unlock()
	m.closeClean(conn)
}

// Send writes v as a JSON frame. Without an open socket the frame is
// dropped, the user is told, and a reconnect starts right away.
func (m *Manager) Send(v interface{}) error {
	m.mu.Lock()
	conn := m.conn
	if conn == nil {
		m.noticeLocked("Not connected. Reconnecting now.")
		if m.signedIn {
			m.connectLocked()
		}
		m.unlock()
		return ErrNotConnected
	}
	m.mu.Unlock()

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// SendMessage sends a chat message frame.
func (m *Manager) SendMessage(conversationID uint, content string) error {
	return m.Send(map[string]interface{}{
		"type":           "message",
		"conversationId": conversationID,
		"content":        content,
	})
}

// unlock releases mu and then runs the callbacks queued while it was held.
func (m *Manager) unlock() {
	events := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, ev := range events {
		ev()
	}
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	if cb := m.opts.OnState; cb != nil {
		m.pending = append(m.pending, func() { cb(s) })
	}
}

func (m *Manager) noticeLocked(text string) {
	m.log.Info(text)
	if cb := m.opts.OnNotice; cb != nil {
		m.pending = append(m.pending, func() { cb(text) })
	}
}

// connectLocked starts a dial unless one is in flight or a socket is open.
// A pending backoff timer is cancelled first.
func (m *Manager) connectLocked() {
	switch m.state {
	case Connecting, Authenticating, Connected:
		return
	}
	if m.stop != nil {
		m.stop()
		m.stop = nil
	}
	m.gen++
	m.setStateLocked(Connecting)
	go m.dial(m.gen, m.userID, m.token)
}

func (m *Manager) dial(gen uint64, userID uint, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	conn, _, err := m.opts.Dialer.DialContext(ctx, m.opts.URL, nil)
	cancel()

	m.mu.Lock()
	if gen != m.gen || !m.signedIn {
		m.unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		m.log.WithError(err).Debug("dial failed")
		m.scheduleLocked()
		m.unlock()
		return
	}
	// auth must be the first frame on the wire, so writeMu is held before
	// the socket becomes visible to Send.
	m.writeMu.Lock()
	m.conn = conn
	m.attempt = 0
	m.setStateLocked(Authenticating)
	events := m.pending
	m.pending = nil
	m.mu.Unlock()

	go m.readLoop(gen, conn)

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteJSON(map[string]interface{}{"type": "auth", "userId": userID, "token": token})
	m.writeMu.Unlock()
	if err != nil {
		_ = conn.Close()
	}
	for _, ev := range events {
		ev()
	}
}

func (m *Manager) readLoop(gen uint64, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.closed(gen, err)
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			m.log.WithError(err).Debug("ignoring undecodable frame")
			continue
		}
		if f.Type == "auth" && f.Success != nil {
			m.authResult(gen, *f.Success)
		}
		if cb := m.opts.OnFrame; cb != nil {
			cb(f)
		}
	}
}

func (m *Manager) authResult(gen uint64, ok bool) {
	m.mu.Lock()
	if gen != m.gen {
		m.unlock()
		return
	}
	if ok {
		m.setStateLocked(Connected)
		m.unlock()
		return
	}
	m.noticeLocked("Authentication failed. Please sign in again.")
	m.signedIn = false
	conn := m.resetLocked()
	m.unlock()
	m.closeClean(conn)
}

// closed handles the end of socket gen. A normal closure stays down; anything
// else, including a failed dial, schedules a reconnect.
func (m *Manager) closed(gen uint64, err error) {
	m.mu.Lock()
	defer m.unlock()
	if gen != m.gen {
		return
	}
	m.conn = nil
	if !m.signedIn || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		m.attempt = 0
		m.setStateLocked(Disconnected)
		return
	}
	m.scheduleLocked()
}

func (m *Manager) scheduleLocked() {
	if m.attempt >= m.opts.MaxAttempts {
		m.setStateLocked(Disconnected)
		m.noticeLocked("Unable to reconnect. Please sign in again.")
		return
	}
	delay := BackoffDelay(m.attempt)
	m.attempt++
	m.setStateLocked(Backoff)
	m.noticeLocked(fmt.Sprintf("Connection lost. Reconnecting in %s.", delay))

	gen := m.gen
	m.stop = m.after(delay, func() {
		m.mu.Lock()
		defer m.unlock()
		if gen != m.gen || m.state != Backoff {
			return
		}
		m.stop = nil
		m.connectLocked()
	})
}

// resetLocked drops the current socket and timer and returns the socket to close.
func (m *Manager) resetLocked() *websocket.Conn {
	if m.stop != nil {
		m.stop()
		m.stop = nil
	}
	m.gen++
	conn := m.conn
	m.conn = nil
	m.attempt = 0
	m.setStateLocked(Disconnected)
	return conn
}

func (m *Manager) closeClean(conn *websocket.Conn) {
	if conn == nil {
		return
	}
	m.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	m.writeMu.Unlock()
	_ = conn.Close()
}
