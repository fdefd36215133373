package http

import (
	"bytes"
	"chat-relay/domain"
	"chat-relay/infrastructure/http/controller"
	"chat-relay/infrastructure/realtime"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/services"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server   *httptest.Server
	contacts *repositories.ContactRepository
	registry *runtime.Registry
	sessions *controller.Sessions
}

func newFixture(t *testing.T) fixture {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	messages, err := repositories.NewMessageRepository(db, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = messages.Close() })
	contacts := repositories.NewContactRepository(db, log)

	registry := runtime.NewRegistry()
	sessions := controller.NewSessions()
	relay := runtime.NewRelay(log, registry, messages, 100, time.Second)
	router := NewRouter(log,
		services.NewChatService(relay),
		services.NewQueryService(log, messages, contacts),
		RouterConfig{
			RequestTimeout: 5 * time.Second,
			Socket: controller.SocketConfig{
				BufferSize:      16,
				ReadTimeout:     time.Minute,
				InflightTimeout: 5 * time.Second,
				Sessions:        sessions,
			},
		})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return fixture{server: server, contacts: contacts, registry: registry, sessions: sessions}
}

func (f fixture) dial(t *testing.T) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	frame := readFrame(t, ws)
	require.Equal(t, realtime.FrameConnected, frame.Type)
	require.NotEmpty(t, frame.ConnectionID)
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) realtime.OutboundFrame {
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame realtime.OutboundFrame
	require.NoError(t, ws.ReadJSON(&frame))
	return frame
}

func join(t *testing.T, ws *websocket.Conn, conversationID string) {
	require.NoError(t, ws.WriteJSON(map[string]any{"type": "join", "conversation_id": conversationID}))
	frame := readFrame(t, ws)
	require.Equal(t, realtime.FrameJoined, frame.Type)
	require.Equal(t, domain.ConversationID(conversationID), frame.ConversationID)
}

func (f fixture) get(t *testing.T, path string, out any) int {
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f fixture) post(t *testing.T, path string, body any) int {
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func (f fixture) put(t *testing.T, path string, body any, out any) int {
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	request, err := http.NewRequest(http.MethodPut, f.server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestSocket_Message_Reaches_Every_Member_And_History(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Given two clients joined conversation 42
	alice := f.dial(t)
	bob := f.dial(t)
	join(t, alice, "42")
	join(t, bob, "42")

	// When alice sends a lead message
	req.NoError(alice.WriteJSON(map[string]any{
		"type":                   "message",
		"conversation_id":        42,
		"sender_id":              "lead-1",
		"sender_role":            "lead",
		"communication_category": "lead",
		"body":                   "hello",
	}))

	// Then both receive the persisted message with its id
	for _, ws := range []*websocket.Conn{alice, bob} {
		frame := readFrame(t, ws)
		req.Equal(realtime.FrameMessage, frame.Type)
		req.NotNil(frame.Message)
		req.Equal(int64(1), frame.Message.ID)
		req.Equal("hello", frame.Message.Body)
	}

	// And the history lists it
	var history []domain.Message
	req.Equal(http.StatusOK, f.get(t, "/api/v1/messages?conversation_id=42", &history))
	req.Len(history, 1)
	req.Equal(int64(1), history[0].ID)
}

func TestSocket_Message_Before_Join(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ws := f.dial(t)

	// When a client sends a message without joining first
	req.NoError(ws.WriteJSON(map[string]any{"type": "message", "sender_id": "u1", "body": "hi"}))

	// Then it gets a not_joined error frame
	frame := readFrame(t, ws)
	req.Equal(realtime.FrameError, frame.Type)
	req.Equal("not_joined", frame.Code)
}

func TestSocket_Internal_Sender_Without_Category(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ws := f.dial(t)
	join(t, ws, "42")

	// When an internal sender omits the category
	req.NoError(ws.WriteJSON(map[string]any{
		"type":        "message",
		"sender_id":   "staff-1",
		"sender_role": "internal",
		"body":        "note",
	}))

	// Then the client is asked to choose one
	frame := readFrame(t, ws)
	req.Equal(realtime.FrameError, frame.Type)
	req.Equal("category_required", frame.Code)

	// And nothing was persisted
	var history []domain.Message
	req.Equal(http.StatusOK, f.get(t, "/api/v1/messages?conversation_id=42", &history))
	req.Empty(history)
}

func TestSocket_Join_Another_Conversation(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ws := f.dial(t)
	join(t, ws, "42")

	// When the same connection joins another conversation
	req.NoError(ws.WriteJSON(map[string]any{"type": "join", "conversation_id": "43"}))

	// Then it is refused
	frame := readFrame(t, ws)
	req.Equal(realtime.FrameError, frame.Type)
	req.Equal("already_joined", frame.Code)
}

func TestSocket_Invalid_Payload(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ws := f.dial(t)

	// When garbage is sent
	req.NoError(ws.WriteMessage(websocket.TextMessage, []byte("{not json")))

	// Then a bad_request frame comes back and the connection stays usable
	frame := readFrame(t, ws)
	req.Equal("bad_request", frame.Code)
	join(t, ws, "42")
}

func TestSocket_Leave_Closes_Connection(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ws := f.dial(t)
	join(t, ws, "42")

	// When the client leaves
	req.NoError(ws.WriteJSON(map[string]any{"type": "leave"}))

	// Then it is acknowledged and the socket is closed
	frame := readFrame(t, ws)
	req.Equal(realtime.FrameLeft, frame.Type)
	req.Equal(domain.ConversationID("42"), frame.ConversationID)
	req.NoError(ws.SetReadDeadline(time.Now().Add(5 * time.Second)))
	_, _, err := ws.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestSocket_Dropped_Connection_Leaves_Room(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ws := f.dial(t)
	join(t, ws, "42")
	req.Equal(1, f.registry.RoomCount())

	// When the network drops without a close handshake
	req.NoError(ws.UnderlyingConn().Close())

	// Then the session still leaves its room
	req.Eventually(func() bool {
		return f.registry.RoomCount() == 0
	}, 5*time.Second, 10*time.Millisecond)
	req.Empty(f.registry.Members("42"))
}

func TestSocket_Drain_Closes_Sessions(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ws := f.dial(t)
	join(t, ws, "42")

	// When the server drains its sessions
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req.NoError(f.sessions.Drain(ctx))

	// Then the client is told the server is going away and its room is gone
	req.NoError(ws.SetReadDeadline(time.Now().Add(5 * time.Second)))
	_, _, err := ws.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseGoingAway))
	req.Zero(f.registry.RoomCount())

	// And new sockets are refused
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMessages_Viewer_Visibility(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Given a lead message and an internal note in conversation 7
	req.Equal(http.StatusCreated, f.post(t, "/api/v1/messages", map[string]any{
		"conversation_id": "7", "sender_id": "lead-1", "body": "question",
	}))
	req.Equal(http.StatusCreated, f.post(t, "/api/v1/messages", map[string]any{
		"conversation_id": "7", "sender_id": "staff-1", "sender_role": "internal",
		"communication_category": "internal", "body": "note",
	}))

	// When the lead reads the conversation
	var lead []domain.Message
	req.Equal(http.StatusOK, f.get(t, "/api/v1/messages?applicant_id=7&viewer=lead", &lead))

	// Then only the lead message is visible
	req.Len(lead, 1)
	req.Equal("question", lead[0].Body)

	// And staff sees both, in id order
	var internal []domain.Message
	req.Equal(http.StatusOK, f.get(t, "/api/v1/messages?conversation_id=7", &internal))
	req.Len(internal, 2)
	req.Less(internal[0].ID, internal[1].ID)

	// And an unknown viewer is rejected
	req.Equal(http.StatusBadRequest, f.get(t, "/api/v1/messages?viewer=admin", nil))
}

func TestMessages_Post_Category_Required(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	status := f.post(t, "/api/v1/messages", map[string]any{
		"conversation_id": "7", "sender_id": "staff-1", "sender_role": "internal", "body": "note",
	})

	req.Equal(http.StatusBadRequest, status)
}

func TestContacts_Endpoints(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	// Given one active staff member, one inactive and one lead
	req.NoError(f.contacts.SaveContact(ctx, domain.Contact{ID: "s1", Category: domain.CategoryInternal, DisplayName: "Jane Doe", Status: domain.ContactActive}))
	req.NoError(f.contacts.SaveContact(ctx, domain.Contact{ID: "s2", Category: domain.CategoryInternal, DisplayName: "Old Timer", Status: domain.ContactInactive}))
	req.NoError(f.contacts.SaveContact(ctx, domain.Contact{ID: "42", Category: domain.CategoryLead, DisplayName: "Applicant", Status: domain.ContactActive}))

	// Then only the active staff member is listed
	var internal []domain.Contact
	req.Equal(http.StatusOK, f.get(t, "/api/v1/contacts/internal", &internal))
	req.Len(internal, 1)
	req.Equal("s1", internal[0].ID)

	// And contacts resolve by id
	var contact domain.Contact
	req.Equal(http.StatusOK, f.get(t, "/api/v1/contacts/42", &contact))
	req.Equal("Applicant", contact.DisplayName)
	req.Equal(http.StatusNotFound, f.get(t, "/api/v1/contacts/unknown", nil))

	// And touching validates its input
	req.Equal(http.StatusOK, f.post(t, "/api/v1/contacts/touch", map[string]any{"contact_id": "42"}))
	req.Equal(http.StatusBadRequest, f.post(t, "/api/v1/contacts/touch", map[string]any{}))
	req.Equal(http.StatusNotFound, f.post(t, "/api/v1/contacts/touch", map[string]any{"contact_id": "unknown"}))
}

func TestContacts_Save(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// When a staff member is created through the API
	var saved domain.Contact
	req.Equal(http.StatusOK, f.put(t, "/api/v1/contacts/s1", map[string]any{
		"category": "internal", "display_name": "Jane Doe",
	}, &saved))

	// Then it is active and listed as a notification target
	req.Equal("s1", saved.ID)
	req.Equal(domain.ContactActive, saved.Status)
	var internal []domain.Contact
	req.Equal(http.StatusOK, f.get(t, "/api/v1/contacts/internal", &internal))
	req.Len(internal, 1)

	// And it can be touched once it exists
	req.Equal(http.StatusOK, f.post(t, "/api/v1/contacts/touch", map[string]any{"contact_id": "s1"}))

	// And invalid profiles are refused
	req.Equal(http.StatusBadRequest, f.put(t, "/api/v1/contacts/s2", map[string]any{}, nil))
	req.Equal(http.StatusBadRequest, f.put(t, "/api/v1/contacts/s2", map[string]any{"category": "admin"}, nil))
}

func TestRouter_Cors_And_Health(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// When a browser preflights the API
	preflight, err := http.NewRequest(http.MethodOptions, f.server.URL+"/api/v1/messages", nil)
	req.NoError(err)
	preflight.Header.Set("Origin", "http://localhost:3000")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err := http.DefaultClient.Do(preflight)
	req.NoError(err)
	defer resp.Body.Close()

	// Then every origin is allowed by default
	req.Equal(http.StatusNoContent, resp.StatusCode)
	req.Equal("*", resp.Header.Get("Access-Control-Allow-Origin"))

	// And the health check answers
	req.Equal(http.StatusOK, f.get(t, "/api/v1/up", nil))
}
