package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"social-hub/controllers"
	"social-hub/models"
	"social-hub/services"
)

type testAPI struct {
	router *gin.Engine
	mock   sqlmock.Sqlmock
	tokens *services.TokenIssuer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = sqlDB.Close()
	})

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := services.NewStore(db)
	tokens := services.NewTokenIssuer("test-secret", time.Hour)
	hub := services.NewHub(store, tokens, services.DefaultHubConfig(), log)
	t.Cleanup(hub.Close)

	r := RegisterRoutes(Deps{
		Controller:  controllers.New(store, tokens, hub, log),
		Tokens:      tokens,
		Log:         log,
		CORSOrigins: []string{"*"},
	})
	return &testAPI{router: r, mock: mock, tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}, userID uint) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, err := a.tokens.GenerateToken(&models.User{ID: userID})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/healthz", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodGet, "/healthz", nil, 0)
	rec := api.do(t, http.MethodGet, "/metrics", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `route="/healthz"`)
}

func TestRegisterReturnsToken(t *testing.T) {
	api := newTestAPI(t)
	api.mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	api.mock.ExpectBegin()
	api.mock.ExpectExec("INSERT INTO `users`").WillReturnResult(sqlmock.NewResult(11, 1))
	api.mock.ExpectCommit()

	rec := api.do(t, http.MethodPost, "/api/register", map[string]string{
		"username": "alice",
		"email":    "Alice@Example.com",
		"password": "secret1",
	}, 0)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var data struct {
		Token string          `json:"token"`
		User  json.RawMessage `json:"user"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	userID, err := api.tokens.ParseToken(data.Token)
	require.NoError(t, err)
	require.Equal(t, uint(11), userID)
	require.NotContains(t, string(data.User), "password")
	require.Contains(t, string(data.User), `"email":"alice@example.com"`)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/api/user", "/api/conversations", "/api/wallet"} {
		rec := api.do(t, http.MethodGet, path, nil, 0)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestEmptySearchReturnsEmptyList(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/api/search/users?q=", "/api/search/posts?q=%20"} {
		rec := api.do(t, http.MethodGet, path, nil, 0)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `[]`, string(decode(t, rec).Data))
	}
}

func TestInvalidPathID(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/posts/abc/comments", nil, 0)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid postId", decode(t, rec).Message)
}

func TestWithdrawWithoutFunds(t *testing.T) {
	api := newTestAPI(t)
	api.mock.ExpectBegin()
	api.mock.ExpectExec("UPDATE `users` SET `wallet_balance`").WillReturnResult(sqlmock.NewResult(0, 0))
	api.mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	api.mock.ExpectRollback()

	rec := api.do(t, http.MethodPost, "/api/wallet/withdraw", map[string]string{"amount": "50.00"}, 3)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "insufficient funds", decode(t, rec).Message)
}

func TestSendMessageRequiresMembership(t *testing.T) {
	api := newTestAPI(t)
	api.mock.ExpectBegin()
	api.mock.ExpectQuery("SELECT count\\(\\*\\) FROM `conversation_participants`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	api.mock.ExpectRollback()

	rec := api.do(t, http.MethodPost, "/api/messages", map[string]interface{}{
		"conversationId": 4,
		"content":        "hi",
	}, 3)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSendMessageRejectsOverlongContent(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/messages", map[string]interface{}{
		"conversationId": 4,
		"content":        strings.Repeat("a", 4001),
	}, 3)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decode(t, rec).Message, "at most 4000 characters")
}

func TestSendMessagePersistsAndReturnsRecord(t *testing.T) {
	api := newTestAPI(t)
	api.mock.ExpectBegin()
	api.mock.ExpectQuery("SELECT count\\(\\*\\) FROM `conversation_participants`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	api.mock.ExpectExec("INSERT INTO `messages`").WillReturnResult(sqlmock.NewResult(77, 1))
	api.mock.ExpectExec("UPDATE `conversations` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	api.mock.ExpectCommit()
	api.mock.ExpectQuery("SELECT `user_id` FROM `conversation_participants`").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(3).AddRow(4))

	rec := api.do(t, http.MethodPost, "/api/messages", map[string]interface{}{
		"conversationId": 4,
		"content":        "hi",
	}, 3)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var msg models.Message
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &msg))
	require.Equal(t, uint(77), msg.ID)
	require.Equal(t, uint(3), msg.SenderID)
	require.Equal(t, "hi", *msg.Content)
}

func TestCannotStartConversationWithSelf(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/conversations", map[string]interface{}{"participantId": 5}, 5)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
