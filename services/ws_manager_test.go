package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"social-hub/models"
)

type fakeStore struct {
	mu           sync.Mutex
	nextID       uint
	participants map[uint][]uint
	fail         error
	sent         []SendMessageInput
}

func (f *fakeStore) SendMessage(_ context.Context, in SendMessageInput) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	if !containsID(f.participants[in.ConversationID], in.SenderID) {
		return nil, ErrNotParticipant
	}
	f.nextID++
	f.sent = append(f.sent, in)
	return &models.Message{
		ID:             f.nextID,
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Content:        in.Content,
		CreatedAt:      time.Now(),
	}, nil
}

func (f *fakeStore) ParticipantIDs(_ context.Context, conversationID uint) ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint(nil), f.participants[conversationID]...), nil
}

func (f *fakeStore) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type fakeTokens map[string]uint

func (f fakeTokens) ParseToken(token string) (uint, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return 0, ErrUnauthorized
}

type fakeRelay struct {
	mu        sync.Mutex
	published []RelayEnvelope
	inbound   chan RelayEnvelope
}

func (r *fakeRelay) Publish(_ context.Context, env RelayEnvelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, env)
	return nil
}

func (r *fakeRelay) Subscribe(context.Context) (<-chan RelayEnvelope, error) {
	return r.inbound, nil
}

func (r *fakeRelay) Close() error { return nil }

func (r *fakeRelay) publishedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.published)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func startHub(t *testing.T, store MessageStore, tokens TokenParser, cfg HubConfig) (*Hub, string) {
	t.Helper()
	h := NewHub(store, tokens, cfg, quietLogger())
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func trustConfig(scope BroadcastScope) HubConfig {
	cfg := DefaultHubConfig()
	cfg.AuthMode = AuthTrust
	cfg.Scope = scope
	return cfg
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type frame struct {
	Type    string          `json:"type"`
	Success bool            `json:"success"`
	Message json.RawMessage `json:"message"`
}

func (f frame) errorText(t *testing.T) string {
	t.Helper()
	var text string
	require.NoError(t, json.Unmarshal(f.Message, &text))
	return text
}

func (f frame) record(t *testing.T) models.Message {
	t.Helper()
	var msg models.Message
	require.NoError(t, json.Unmarshal(f.Message, &msg))
	return msg
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// expectSilence must be the last read on conn: a timed out read poisons it.
func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame %s", data)
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	require.True(t, netErr.Timeout())
}

func send(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func authenticate(t *testing.T, conn *websocket.Conn, userID uint) {
	t.Helper()
	send(t, conn, AuthFrame{Type: FrameAuth, UserID: userID})
	ack := readFrame(t, conn)
	require.Equal(t, FrameAuth, ack.Type)
	require.True(t, ack.Success)
}

func chat(conversationID uint, content string) ChatFrame {
	return ChatFrame{Type: FrameMessage, ConversationID: conversationID, Content: content}
}

func TestAuthenticatedMessageCarriesBoundSender(t *testing.T) {
	store := &fakeStore{participants: map[uint][]uint{1: {7, 8}}}
	_, url := startHub(t, store, nil, trustConfig(ScopeAll))

	conn := dial(t, url)
	authenticate(t, conn, 7)
	send(t, conn, chat(1, "  hello  "))

	f := readFrame(t, conn)
	require.Equal(t, FrameMessage, f.Type)
	msg := f.record(t)
	require.Equal(t, uint(7), msg.SenderID)
	require.Equal(t, uint(1), msg.ConversationID)
	require.Equal(t, "hello", *msg.Content)
	require.Equal(t, 1, store.sentCount())
}

func TestMessageBeforeAuthIsIgnored(t *testing.T) {
	store := &fakeStore{participants: map[uint][]uint{1: {7}}}
	_, url := startHub(t, store, nil, trustConfig(ScopeAll))

	conn := dial(t, url)
	send(t, conn, chat(1, "too early"))
	send(t, conn, AuthFrame{Type: FrameAuth, UserID: 7})

	ack := readFrame(t, conn)
	require.Equal(t, FrameAuth, ack.Type)
	require.True(t, ack.Success)
	require.Zero(t, store.sentCount())
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	store := &fakeStore{participants: map[uint][]uint{1: {7}}}
	_, url := startHub(t, store, nil, trustConfig(ScopeAll))

	conn := dial(t, url)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	f := readFrame(t, conn)
	require.Equal(t, FrameError, f.Type)
	require.Equal(t, errTextInvalidFormat, f.errorText(t))

	authenticate(t, conn, 7)
	send(t, conn, chat(1, "still here"))
	require.Equal(t, FrameMessage, readFrame(t, conn).Type)
}

func TestInvalidChatFrameGetsErrorFrame(t *testing.T) {
	store := &fakeStore{participants: map[uint][]uint{1: {7}}}
	_, url := startHub(t, store, nil, trustConfig(ScopeAll))

	conn := dial(t, url)
	authenticate(t, conn, 7)

	send(t, conn, chat(1, "   "))
	f := readFrame(t, conn)
	require.Equal(t, FrameError, f.Type)
	require.Equal(t, "content is required", f.errorText(t))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"message","conversationId":"1","content":"x"}`)))
	f = readFrame(t, conn)
	require.Equal(t, errTextInvalidFormat, f.errorText(t))
	require.Zero(t, store.sentCount())
}

func TestUnknownFrameTypeIsIgnored(t *testing.T) {
	store := &fakeStore{}
	_, url := startHub(t, store, nil, trustConfig(ScopeAll))

	conn := dial(t, url)
	send(t, conn, map[string]string{"type": "typing"})
	expectSilence(t, conn)
}

func TestParticipantScopeLimitsFanOut(t *testing.T) {
	store := &fakeStore{participants: map[uint][]uint{1: {1, 2}}}
	_, url := startHub(t, store, nil, trustConfig(ScopeParticipants))

	alice, bob, carol := dial(t, url), dial(t, url), dial(t, url)
	authenticate(t, alice, 1)
	authenticate(t, bob, 2)
	authenticate(t, carol, 3)

	send(t, alice, chat(1, "just us"))

	require.Equal(t, uint(1), readFrame(t, alice).record(t).SenderID)
	require.Equal(t, uint(1), readFrame(t, bob).record(t).SenderID)
	expectSilence(t, carol)
}

func TestAllScopeReachesEveryAuthenticatedSocket(t *testing.T) {
	store := &fakeStore{participants: map[uint][]uint{1: {1, 2}}}
	_, url := startHub(t, store, nil, trustConfig(ScopeAll))

	alice, carol, anon := dial(t, url), dial(t, url), dial(t, url)
	authenticate(t, alice, 1)
	authenticate(t, carol, 3)

	send(t, alice, chat(1, "everyone"))

	require.Equal(t, FrameMessage, readFrame(t, alice).Type)
	require.Equal(t, FrameMessage, readFrame(t, carol).Type)
	expectSilence(t, anon)
}

func TestNonParticipantGetsErrorFrame(t *testing.T) {
	store := &fakeStore{participants: map[uint][]uint{1: {1, 2}}}
	_, url := startHub(t, store, nil, trustConfig(ScopeAll))

	mallory, bob := dial(t, url), dial(t, url)
	authenticate(t, mallory, 9)
	authenticate(t, bob, 2)

	send(t, mallory, chat(1, "let me in"))
	f := readFrame(t, mallory)
	require.Equal(t, FrameError, f.Type)
	require.Equal(t, errTextNotParticipant, f.errorText(t))
	expectSilence(t, bob)
}

func TestPersistenceFailureBecomesErrorFrame(t *testing.T) {
	store := &fakeStore{
		participants: map[uint][]uint{1: {7}},
		fail:         fmt.Errorf("%w: connection refused", ErrPersistence),
	}
	_, url := startHub(t, store, nil, trustConfig(ScopeAll))

	conn := dial(t, url)
	authenticate(t, conn, 7)
	send(t, conn, chat(1, "lost"))

	f := readFrame(t, conn)
	require.Equal(t, FrameError, f.Type)
	require.Equal(t, errTextSendFailed, f.errorText(t))

	// connection survives the failure
	authenticate(t, conn, 7)
}

func TestTokenModeBindsTokenSubject(t *testing.T) {
	store := &fakeStore{participants: map[uint][]uint{1: {5}}}
	cfg := DefaultHubConfig()
	cfg.Scope = ScopeAll
	_, url := startHub(t, store, fakeTokens{"good": 5}, cfg)

	conn := dial(t, url)

	send(t, conn, AuthFrame{Type: FrameAuth, Token: "bad"})
	require.False(t, readFrame(t, conn).Success)

	send(t, conn, AuthFrame{Type: FrameAuth, UserID: 6, Token: "good"})
	require.False(t, readFrame(t, conn).Success)

	send(t, conn, AuthFrame{Type: FrameAuth, UserID: 6})
	require.False(t, readFrame(t, conn).Success)

	send(t, conn, AuthFrame{Type: FrameAuth, Token: "good"})
	require.True(t, readFrame(t, conn).Success)

	send(t, conn, chat(1, "signed"))
	require.Equal(t, uint(5), readFrame(t, conn).record(t).SenderID)
}

func TestConcurrentSendersAreAllDelivered(t *testing.T) {
	const senders, perSender = 4, 10
	members := []uint{100}
	for i := 1; i <= senders; i++ {
		members = append(members, uint(i))
	}
	store := &fakeStore{participants: map[uint][]uint{1: members}}
	_, url := startHub(t, store, nil, trustConfig(ScopeParticipants))

	observer := dial(t, url)
	authenticate(t, observer, 100)

	conns := make([]*websocket.Conn, senders)
	for i := range conns {
		conns[i] = dial(t, url)
		authenticate(t, conns[i], uint(i+1))
	}

	var wg sync.WaitGroup
	for i, conn := range conns {
		wg.Add(1)
		go func(i int, conn *websocket.Conn) {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				_ = conn.WriteJSON(chat(1, fmt.Sprintf("%d-%d", i, j)))
			}
		}(i, conn)
	}
	wg.Wait()

	seen := map[uint]bool{}
	for len(seen) < senders*perSender {
		msg := readFrame(t, observer).record(t)
		require.False(t, seen[msg.ID], "duplicate delivery of %d", msg.ID)
		seen[msg.ID] = true
	}
	require.Equal(t, senders*perSender, store.sentCount())
}

func TestDisconnectRemovesConnection(t *testing.T) {
	h, url := startHub(t, &fakeStore{}, nil, trustConfig(ScopeAll))

	conn := dial(t, url)
	authenticate(t, conn, 1)
	require.Equal(t, 1, h.Count())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestClosedHubRefusesConnections(t *testing.T) {
	h, url := startHub(t, &fakeStore{}, nil, trustConfig(ScopeAll))
	existing := dial(t, url)
	authenticate(t, existing, 1)

	h.Close()
	require.Zero(t, h.Count())

	require.NoError(t, existing.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := existing.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	fresh := dial(t, url)
	require.NoError(t, fresh.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = fresh.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestSlowPeerIsDroppedWithoutStallingOthers(t *testing.T) {
	cfg := trustConfig(ScopeAll)
	cfg.SendBuffer = 1
	h, url := startHub(t, &fakeStore{}, nil, cfg)

	slow := dial(t, url)
	authenticate(t, slow, 1)
	fast := []*websocket.Conn{dial(t, url), dial(t, url)}
	for i, conn := range fast {
		authenticate(t, conn, uint(i+2))
	}
	require.Equal(t, 3, h.Count())

	// 1MB bodies fill the slow peer's socket buffers until its write pump blocks.
	body := strings.Repeat("x", 1<<20)
	publish := func(id uint) {
		h.Publish(context.Background(), &models.Message{ID: id, ConversationID: 1, SenderID: 2, Content: &body})
		for _, conn := range fast {
			require.Equal(t, id, readFrame(t, conn).record(t).ID)
		}
	}

	next := uint(1)
	for ; next <= 200 && h.Count() == 3; next++ {
		publish(next)
	}
	require.Equal(t, 2, h.Count(), "slow peer was never dropped")

	for i := 0; i < 3; i++ {
		publish(next)
		next++
	}

	require.NoError(t, slow.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, _, err := slow.ReadMessage()
		if err != nil {
			require.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater), "got %v", err)
			break
		}
	}
}

func TestRelayCarriesFanOutBetweenNodes(t *testing.T) {
	store := &fakeStore{participants: map[uint][]uint{1: {1, 2}}}
	h, url := startHub(t, store, nil, trustConfig(ScopeParticipants))
	relay := &fakeRelay{inbound: make(chan RelayEnvelope, 2)}
	h.SetRelay(relay)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	bob, carol := dial(t, url), dial(t, url)
	authenticate(t, bob, 2)
	authenticate(t, carol, 3)

	remote := []byte(`{"type":"message","message":{"id":99,"conversationId":1,"senderId":1}}`)
	relay.inbound <- RelayEnvelope{Origin: h.nodeID, Scoped: true, Recipients: []uint{2}, Payload: []byte(`{"type":"message","message":{"id":1}}`)}
	relay.inbound <- RelayEnvelope{Origin: "other-node", Scoped: true, Recipients: []uint{2}, Payload: remote}

	require.Equal(t, uint(99), readFrame(t, bob).record(t).ID)

	send(t, bob, chat(1, "local"))
	require.Equal(t, uint(2), readFrame(t, bob).record(t).SenderID)
	require.Eventually(t, func() bool { return relay.publishedCount() == 1 }, time.Second, 10*time.Millisecond)
	require.ElementsMatch(t, []uint{1, 2}, relay.published[0].Recipients)

	expectSilence(t, carol)
}
