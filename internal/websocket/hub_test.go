package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	appredis "github.com/deployra/docsync/internal/redis"
	"github.com/deployra/docsync/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []Message
	closed bool
	err    error
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	f.frames = append(f.frames, msg)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := make([]string, 0, len(f.frames))
	for _, frame := range f.frames {
		events = append(events, frame.Event)
	}
	return events
}

func TestHubRooms(t *testing.T) {
	h := NewHub()
	alice, bob := &fakeConn{}, &fakeConn{}
	a, b := NewClient(alice, "alice"), NewClient(bob, "bob")
	h.Register(a)
	h.Register(b)

	room := ProjectRoom("p1")
	h.JoinRoom(a, room)
	h.JoinRoom(b, room)
	assert.Equal(t, 2, h.RoomSize(room))

	h.BroadcastToRoom(room, "ping", nil)
	assert.Equal(t, []string{"ping"}, alice.events())
	assert.Equal(t, []string{"ping"}, bob.events())

	h.LeaveRoom(b, room)
	h.BroadcastToRoom(room, "pong", nil)
	assert.Equal(t, []string{"ping", "pong"}, alice.events())
	assert.Equal(t, []string{"ping"}, bob.events())

	h.Unregister(a)
	assert.True(t, alice.closed)
	assert.Zero(t, h.RoomSize(room))

	// unknown rooms are a no-op
	h.BroadcastToRoom(ProjectRoom("missing"), "ping", nil)
}

func TestHubBroadcastSurvivesWriteErrors(t *testing.T) {
	h := NewHub()
	broken, healthy := &fakeConn{err: errors.New("broken pipe")}, &fakeConn{}
	room := ProjectRoom("p1")
	for _, client := range []*Client{NewClient(broken, "a"), NewClient(healthy, "b")} {
		h.Register(client)
		h.JoinRoom(client, room)
	}

	h.BroadcastToRoom(room, "ping", nil)
	assert.Equal(t, []string{"ping"}, healthy.events())
}

func TestDispatch(t *testing.T) {
	h := NewHub()
	conn := &fakeConn{}
	client := NewClient(conn, "alice")
	h.Register(client)
	h.JoinRoom(client, ProjectRoom("p1"))

	message, err := json.Marshal(appredis.WebhookEvent{
		ProjectID:       "p1",
		ProjectSlug:     "docs",
		IntegrationID:   "i1",
		IntegrationType: "github_webhook",
		Event:           "push",
		Payload:         json.RawMessage(`{"ref":"refs/heads/main"}`),
		ReceivedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)

	Dispatch(h, string(message))
	Dispatch(h, "not json")
	Dispatch(h, `{"integrationId":"i1"}`)

	require.Len(t, conn.frames, 1)
	frame := conn.frames[0]
	assert.Equal(t, EventWebhookReceived, frame.Event)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	assert.Equal(t, "push", payload["event"])
	assert.Equal(t, "i1", payload["integrationId"])
	assert.NotContains(t, payload, "payload")
}

func TestHandleMessage(t *testing.T) {
	db := testutils.NewDB(t)
	alice := testutils.CreateUser(t, db, "alice")
	bob := testutils.CreateUser(t, db, "bob")
	project := testutils.CreateProject(t, db, alice, "docs", "https://github.com/octo/docs")

	h := NewHub()
	join := Message{Event: "join_project", Payload: json.RawMessage(`{"projectId":"` + project.ID + `"}`)}

	t.Run("owner joins and leaves", func(t *testing.T) {
		conn := &fakeConn{}
		client := NewClient(conn, alice.ID)
		h.Register(client)

		HandleMessage(db, h, client, join)
		assert.Equal(t, []string{"joined_project"}, conn.events())
		assert.Equal(t, 1, h.RoomSize(ProjectRoom(project.ID)))

		HandleMessage(db, h, client, Message{Event: "leave_project", Payload: join.Payload})
		assert.Zero(t, h.RoomSize(ProjectRoom(project.ID)))
	})

	t.Run("other user is denied", func(t *testing.T) {
		conn := &fakeConn{}
		client := NewClient(conn, bob.ID)
		h.Register(client)

		HandleMessage(db, h, client, join)
		require.Len(t, conn.frames, 1)
		assert.Equal(t, "error", conn.frames[0].Event)
		assert.JSONEq(t, `{"message":"Access denied"}`, string(conn.frames[0].Payload))
		assert.Zero(t, h.RoomSize(ProjectRoom(project.ID)))
	})

	t.Run("unknown project", func(t *testing.T) {
		conn := &fakeConn{}
		client := NewClient(conn, alice.ID)

		HandleMessage(db, h, client, Message{Event: "join_project", Payload: json.RawMessage(`{"projectId":"missing"}`)})
		require.Len(t, conn.frames, 1)
		assert.JSONEq(t, `{"message":"Project not found"}`, string(conn.frames[0].Payload))
	})

	t.Run("invalid payload", func(t *testing.T) {
		conn := &fakeConn{}
		client := NewClient(conn, alice.ID)

		HandleMessage(db, h, client, Message{Event: "join_project", Payload: json.RawMessage(`[]`)})
		assert.Equal(t, []string{"error"}, conn.events())

		HandleMessage(db, h, client, Message{Event: "unknown"})
		assert.Len(t, conn.frames, 1)
	})
}
