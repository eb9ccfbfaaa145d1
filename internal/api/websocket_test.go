package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"go-board/internal/auth"
	boardsvc "go-board/internal/board"
	"go-board/internal/message"
	ws "go-board/internal/websocket"
	"go-board/pkg/board"
)

type testServer struct {
	srv    *httptest.Server
	db     *gorm.DB
	hub    *ws.Hub
	boards *boardsvc.BoardService
}

func setupTestServer(t *testing.T, cfg ws.Config) *testServer {
	return setupTestServerOrigin(t, cfg, "")
}

func setupTestServerOrigin(t *testing.T, cfg ws.Config, allowedOrigin string) *testServer {
	auth.SetSecret("integration-test-secret")
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&board.User{}, &board.RefreshToken{}, &board.Board{}, &board.BoardMember{}, &board.ChatMessage{}))

	// Handler goroutines share the in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	hub := ws.NewHub(zerolog.Nop())
	relay := ws.NewRelay(hub, boardsvc.NewMembershipGate(db), message.NewMessageService(db), zerolog.Nop())

	engine := gin.New()
	NewRouter(db, hub, relay, cfg, allowedOrigin, zerolog.Nop()).RegisterRoutes(engine)

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	return &testServer{
		srv:    srv,
		db:     db,
		hub:    hub,
		boards: boardsvc.NewBoardService(db),
	}
}

func (ts *testServer) createUser(t *testing.T, email, name string) (*board.User, string) {
	user := board.User{Email: email, Name: name, Password: "x"}
	require.NoError(t, ts.db.Create(&user).Error)

	token, err := auth.GenerateToken(user.ID, user.Email, nil)
	require.NoError(t, err)

	return &user, token
}

func (ts *testServer) dial(t *testing.T, token string) *gws.Conn {
	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws?token=" + token
	conn, resp, err := gws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *gws.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(gws.TextMessage, []byte(frame)))
}

func readFrame(t *testing.T, conn *gws.Conn, timeout time.Duration) (map[string]any, error) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out, nil
}

func (ts *testServer) awaitSubscribers(t *testing.T, boardID uint, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return ts.hub.SubscriberCount(boardID) == n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWebSocket_OriginRestriction(t *testing.T) {
	ts := setupTestServerOrigin(t, ws.DefaultConfig(), "http://app.example.com")

	_, token := ts.createUser(t, "alice@example.com", "Alice")
	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws?token=" + token

	// A browser request from a foreign origin is refused before the upgrade.
	header := http.Header{"Origin": []string{"http://evil.example.com"}}
	conn, resp, err := gws.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The configured origin passes.
	header = http.Header{"Origin": []string{"http://app.example.com"}}
	conn, resp, err = gws.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	resp.Body.Close()
	conn.Close()

	// Non-browser clients send no Origin header and always pass.
	ts.dial(t, token)
}

func TestWebSocket_RejectsBadCredential(t *testing.T) {
	ts := setupTestServer(t, ws.DefaultConfig())

	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws?token=garbage"
	conn, resp, err := gws.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_ActionBroadcast(t *testing.T) {
	ts := setupTestServer(t, ws.DefaultConfig())

	alice, aliceToken := ts.createUser(t, "alice@example.com", "Alice")
	bob, bobToken := ts.createUser(t, "bob@example.com", "Bob")

	b, err := ts.boards.CreateBoard(alice.ID, "Sketches")
	require.NoError(t, err)
	require.NoError(t, ts.boards.JoinBoard(bob.ID, b.ID, b.InviteCode))

	aliceConn := ts.dial(t, aliceToken)
	bobConn := ts.dial(t, bobToken)

	sendJSON(t, aliceConn, fmt.Sprintf(`{"kind":"subscribe","boardId":%d}`, b.ID))
	sendJSON(t, bobConn, fmt.Sprintf(`{"kind":"subscribe","boardId":%d}`, b.ID))
	ts.awaitSubscribers(t, b.ID, 2)

	sendJSON(t, aliceConn, fmt.Sprintf(
		`{"kind":"action","boardId":%d,"type":"OBJECT_ADD","payload":{"shape":"circle","r":5},"instanceId":"abc-1"}`, b.ID))

	for _, conn := range []*gws.Conn{aliceConn, bobConn} {
		frame, err := readFrame(t, conn, 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "action", frame["kind"])
		assert.Equal(t, "OBJECT_ADD", frame["type"])
		assert.Equal(t, "abc-1", frame["instanceId"])
		assert.Equal(t, float64(b.ID), frame["boardId"])

		sender := frame["sender"].(map[string]any)
		assert.Equal(t, "alice@example.com", sender["email"])
		assert.Equal(t, "Alice", sender["name"])
	}
}

func TestWebSocket_ChatBroadcastAndHistory(t *testing.T) {
	ts := setupTestServer(t, ws.DefaultConfig())

	alice, aliceToken := ts.createUser(t, "alice@example.com", "Alice")
	bob, bobToken := ts.createUser(t, "bob@example.com", "Bob")

	b, err := ts.boards.CreateBoard(alice.ID, "Sketches")
	require.NoError(t, err)
	require.NoError(t, ts.boards.JoinBoard(bob.ID, b.ID, b.InviteCode))

	aliceConn := ts.dial(t, aliceToken)
	bobConn := ts.dial(t, bobToken)
	sendJSON(t, aliceConn, fmt.Sprintf(`{"kind":"subscribe","boardId":%d}`, b.ID))
	sendJSON(t, bobConn, fmt.Sprintf(`{"kind":"subscribe","boardId":%d}`, b.ID))
	ts.awaitSubscribers(t, b.ID, 2)

	sendJSON(t, aliceConn, fmt.Sprintf(`{"kind":"chat","boardId":%d,"content":"hello bob","instanceId":"c-1"}`, b.ID))

	frame, err := readFrame(t, bobConn, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "chat", frame["kind"])
	assert.Equal(t, "hello bob", frame["content"])
	assert.Equal(t, "c-1", frame["instanceId"])
	assert.Equal(t, "alice@example.com", frame["senderEmail"])
	assert.Equal(t, "Alice", frame["senderName"])
	assert.NotContains(t, frame, "id", "live frame omits the durable id")
	assert.NotEmpty(t, frame["timestamp"])

	// The durable copy shows up in history with its persisted id.
	require.Eventually(t, func() bool {
		var count int64
		ts.db.Model(&board.ChatMessage{}).Where("board_id = ?", b.ID).Count(&count)
		return count == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_OrderingPreservedPerBoard(t *testing.T) {
	ts := setupTestServer(t, ws.DefaultConfig())

	alice, aliceToken := ts.createUser(t, "alice@example.com", "Alice")
	bob, bobToken := ts.createUser(t, "bob@example.com", "Bob")

	b, err := ts.boards.CreateBoard(alice.ID, "Sketches")
	require.NoError(t, err)
	require.NoError(t, ts.boards.JoinBoard(bob.ID, b.ID, b.InviteCode))

	aliceConn := ts.dial(t, aliceToken)
	bobConn := ts.dial(t, bobToken)
	sendJSON(t, aliceConn, fmt.Sprintf(`{"kind":"subscribe","boardId":%d}`, b.ID))
	sendJSON(t, bobConn, fmt.Sprintf(`{"kind":"subscribe","boardId":%d}`, b.ID))
	ts.awaitSubscribers(t, b.ID, 2)

	const n = 20
	for i := 0; i < n; i++ {
		sendJSON(t, aliceConn, fmt.Sprintf(
			`{"kind":"action","boardId":%d,"type":"OBJECT_UPDATE","payload":{},"instanceId":"seq-%d"}`, b.ID, i))
	}

	for i := 0; i < n; i++ {
		frame, err := readFrame(t, bobConn, 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("seq-%d", i), frame["instanceId"])
	}
}

func TestWebSocket_NonMemberIsIsolated(t *testing.T) {
	ts := setupTestServer(t, ws.DefaultConfig())

	alice, aliceToken := ts.createUser(t, "alice@example.com", "Alice")
	_, eveToken := ts.createUser(t, "eve@example.com", "Eve")

	b, err := ts.boards.CreateBoard(alice.ID, "Private")
	require.NoError(t, err)

	aliceConn := ts.dial(t, aliceToken)
	sendJSON(t, aliceConn, fmt.Sprintf(`{"kind":"subscribe","boardId":%d}`, b.ID))
	ts.awaitSubscribers(t, b.ID, 1)

	// Eve authenticates fine but is not a member of the board.
	eveConn := ts.dial(t, eveToken)
	sendJSON(t, eveConn, fmt.Sprintf(`{"kind":"subscribe","boardId":%d}`, b.ID))
	sendJSON(t, eveConn, fmt.Sprintf(
		`{"kind":"action","boardId":%d,"type":"OBJECT_DELETE","payload":{},"instanceId":"x-1"}`, b.ID))

	// Nothing reaches the member, and the subscriber set never grew.
	_, err = readFrame(t, aliceConn, 300*time.Millisecond)
	require.Error(t, err)
	netErr, ok := err.(interface{ Timeout() bool })
	require.True(t, ok, "expected a read timeout, got %v", err)
	assert.True(t, netErr.Timeout())
	assert.Equal(t, 1, ts.hub.SubscriberCount(b.ID))

	// Eve's connection stays open; the drop is silent.
	sendJSON(t, eveConn, fmt.Sprintf(`{"kind":"unsubscribe","boardId":%d}`, b.ID))
	_, err = readFrame(t, eveConn, 300*time.Millisecond)
	require.Error(t, err)
	netErr, ok = err.(interface{ Timeout() bool })
	require.True(t, ok, "connection should still be open, got %v", err)
	assert.True(t, netErr.Timeout())
}

func TestWebSocket_RevocationMidSession(t *testing.T) {
	ts := setupTestServer(t, ws.DefaultConfig())

	alice, aliceToken := ts.createUser(t, "alice@example.com", "Alice")
	bob, bobToken := ts.createUser(t, "bob@example.com", "Bob")

	b, err := ts.boards.CreateBoard(alice.ID, "Sketches")
	require.NoError(t, err)
	require.NoError(t, ts.boards.JoinBoard(bob.ID, b.ID, b.InviteCode))

	aliceConn := ts.dial(t, aliceToken)
	bobConn := ts.dial(t, bobToken)
	sendJSON(t, aliceConn, fmt.Sprintf(`{"kind":"subscribe","boardId":%d}`, b.ID))
	sendJSON(t, bobConn, fmt.Sprintf(`{"kind":"subscribe","boardId":%d}`, b.ID))
	ts.awaitSubscribers(t, b.ID, 2)

	// Admin removes Bob while his socket is up.
	require.NoError(t, ts.boards.RemoveMember(alice.ID, b.ID, bob.ID))

	sendJSON(t, bobConn, fmt.Sprintf(
		`{"kind":"action","boardId":%d,"type":"OBJECT_ADD","payload":{},"instanceId":"late-1"}`, b.ID))

	_, err = readFrame(t, aliceConn, 300*time.Millisecond)
	require.Error(t, err, "revoked member's action must not be broadcast")
}

func TestWebSocket_OversizedFrameClosesConnection(t *testing.T) {
	cfg := ws.DefaultConfig()
	cfg.MaxFrameBytes = 256
	ts := setupTestServer(t, cfg)

	alice, aliceToken := ts.createUser(t, "alice@example.com", "Alice")
	b, err := ts.boards.CreateBoard(alice.ID, "Sketches")
	require.NoError(t, err)

	conn := ts.dial(t, aliceToken)
	sendJSON(t, conn, fmt.Sprintf(`{"kind":"subscribe","boardId":%d}`, b.ID))
	ts.awaitSubscribers(t, b.ID, 1)

	big := strings.Repeat("x", 2048)
	sendJSON(t, conn, fmt.Sprintf(`{"kind":"chat","boardId":%d,"content":"%s","instanceId":"c-1"}`, b.ID, big))

	// Server drops the connection rather than truncating, and the registry
	// entry goes with it.
	_, err = readFrame(t, conn, 2*time.Second)
	require.Error(t, err)
	require.Eventually(t, func() bool {
		return ts.hub.SubscriberCount(b.ID) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_DisconnectUnsubscribesEverywhere(t *testing.T) {
	ts := setupTestServer(t, ws.DefaultConfig())

	alice, aliceToken := ts.createUser(t, "alice@example.com", "Alice")
	bob, bobToken := ts.createUser(t, "bob@example.com", "Bob")

	b1, err := ts.boards.CreateBoard(alice.ID, "Board A")
	require.NoError(t, err)
	b2, err := ts.boards.CreateBoard(alice.ID, "Board B")
	require.NoError(t, err)
	require.NoError(t, ts.boards.JoinBoard(bob.ID, b1.ID, b1.InviteCode))

	aliceConn := ts.dial(t, aliceToken)
	bobConn := ts.dial(t, bobToken)
	sendJSON(t, aliceConn, fmt.Sprintf(`{"kind":"subscribe","boardId":%d}`, b1.ID))
	sendJSON(t, aliceConn, fmt.Sprintf(`{"kind":"subscribe","boardId":%d}`, b2.ID))
	sendJSON(t, bobConn, fmt.Sprintf(`{"kind":"subscribe","boardId":%d}`, b1.ID))
	ts.awaitSubscribers(t, b1.ID, 2)
	ts.awaitSubscribers(t, b2.ID, 1)

	// Alice was the sole subscriber of b2, so its channel entry disappears.
	aliceConn.Close()
	require.Eventually(t, func() bool {
		return ts.hub.SubscriberCount(b1.ID) == 1 && ts.hub.SubscriberCount(b2.ID) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, ts.hub.BoardCount())
}
