package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"peerhelp/internal/model"
	"peerhelp/internal/service"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

// drain returns every event queued on c so far.
func drain(c *Conn) []Event {
	var out []Event
	for {
		select {
		case ev := <-c.send:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func lastPresence(t *testing.T, events []Event) []Presence {
	t.Helper()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Name == EventGetUsers {
			return events[i].Data.([]Presence)
		}
	}
	t.Fatalf("no %s event in %v", EventGetUsers, events)
	return nil
}

func TestHub_MultipleConnectionsPerUser(t *testing.T) {
	h := startHub(t)
	alice, bob := uuid.New(), uuid.New()

	a1 := newConn(context.Background(), alice, nil)
	a2 := newConn(context.Background(), alice, nil)
	b1 := newConn(context.Background(), bob, nil)
	h.Register(a1)
	h.Register(a2)
	h.Register(a1) // idempotent
	h.Register(b1)

	presence := lastPresence(t, drain(b1))
	assert.Len(t, presence, 2, "each user is listed once")
	assert.Len(t, h.Online(), 2)

	h.Unregister(a1)
	assert.True(t, h.IsOnline(alice), "second session keeps the user online")
	assert.Error(t, a1.ctx.Err(), "unregistered connection is closed")

	h.Unregister(a2)
	assert.False(t, h.IsOnline(alice))
	presence = lastPresence(t, drain(b1))
	assert.Equal(t, []Presence{{UserID: bob}}, presence)
}

func TestHub_RouteDeliversToEveryConnection(t *testing.T) {
	h := startHub(t)
	alice, bob := uuid.New(), uuid.New()
	b1 := newConn(context.Background(), bob, nil)
	b2 := newConn(context.Background(), bob, nil)
	h.Register(b1)
	h.Register(b2)
	drain(b1)
	drain(b2)

	payload := json.RawMessage(`{"receiverId":"` + bob.String() + `","text":"hi"}`)
	assert.True(t, h.Route(bob, payload))
	for _, c := range []*Conn{b1, b2} {
		events := drain(c)
		require.Len(t, events, 1)
		assert.Equal(t, EventGetMessage, events[0].Name)
		assert.JSONEq(t, string(payload), string(events[0].Data.(json.RawMessage)))
	}

	assert.False(t, h.Route(alice, payload), "offline receivers are dropped")
}

func TestHub_FullQueueDropsEvents(t *testing.T) {
	h := startHub(t)
	bob := uuid.New()
	c := newConn(context.Background(), bob, nil)
	h.Register(c)

	for i := 0; i < sendQueueSize*2; i++ {
		h.Publish(bob, Event{Name: "tick"})
	}
	assert.Len(t, drain(c), sendQueueSize)
}

func TestHub_NotificationSilentForOpenChat(t *testing.T) {
	h := startHub(t)
	bob := uuid.New()
	chatA, chatB := uuid.New(), uuid.New()

	viewing := newConn(context.Background(), bob, nil)
	elsewhere := newConn(context.Background(), bob, nil)
	h.Register(viewing)
	h.Register(elsewhere)
	h.SetActiveChat(viewing, &chatA)
	drain(viewing)
	drain(elsewhere)

	notify := func(chat uuid.UUID) {
		h.PublishNotification(bob, service.FeedEvent{
			Action:       service.FeedActionCreate,
			Notification: &model.Notification{RecipientID: bob, Type: model.NotificationMessage, ChatID: &chat},
		})
	}

	notify(chatA)
	got := drain(viewing)
	require.Len(t, got, 1)
	assert.True(t, got[0].Data.(NotificationPayload).Silent)
	got = drain(elsewhere)
	require.Len(t, got, 1)
	assert.False(t, got[0].Data.(NotificationPayload).Silent)

	notify(chatB)
	assert.False(t, drain(viewing)[0].Data.(NotificationPayload).Silent)

	h.SetActiveChat(viewing, nil)
	notify(chatA)
	assert.False(t, drain(viewing)[0].Data.(NotificationPayload).Silent)
}

func TestHub_StoppedHubIsInert(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	stopped := make(chan struct{})
	go func() { h.Run(ctx); close(stopped) }()

	c := newConn(context.Background(), uuid.New(), nil)
	h.Register(c)
	cancel()
	<-stopped

	assert.Error(t, c.ctx.Err())
	assert.False(t, h.IsOnline(c.UserID))
	assert.False(t, h.Route(c.UserID, nil))
	h.Publish(c.UserID, Event{Name: "late"})
}

// wsServer serves sessions for the user named in the "as" query parameter.
func wsServer(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.URL.Query().Get("as"))
		if err != nil {
			http.Error(w, "bad user", http.StatusBadRequest)
			return
		}
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		_ = Serve(r.Context(), h, ws, userID)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?as=" + userID.String()
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(websocket.StatusNormalClosure, "") })
	return c
}

type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// readUntil reads frames until one named name arrives.
func readUntil(t *testing.T, c *websocket.Conn, name string) wireEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		var ev wireEvent
		require.NoError(t, wsjson.Read(ctx, c, &ev))
		if ev.Event == name {
			return ev
		}
	}
}

func TestServe_RelaysMessagesOverWebsocket(t *testing.T) {
	h := startHub(t)
	srv := wsServer(t, h)
	alice, bob := uuid.New(), uuid.New()

	aliceWS := dial(t, srv, alice)
	bobWS := dial(t, srv, bob)
	ctx := context.Background()

	require.NoError(t, wsjson.Write(ctx, bobWS, map[string]interface{}{"event": EventAddUser, "data": bob}))
	require.Eventually(t, func() bool { return h.IsOnline(alice) && h.IsOnline(bob) }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, wsjson.Write(ctx, aliceWS, map[string]interface{}{
		"event": EventSendMessage,
		"data":  map[string]interface{}{"receiverId": bob, "text": "hello", "chatId": uuid.New(), "senderId": uuid.New()},
	}))
	got := readUntil(t, bobWS, EventGetMessage)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(got.Data, &msg))
	assert.Equal(t, "hello", msg["text"])
	assert.Equal(t, alice.String(), msg["senderId"], "sender is taken from the session, not the frame")

	// impersonation is refused
	require.NoError(t, wsjson.Write(ctx, aliceWS, map[string]interface{}{"event": EventAddUser, "data": bob}))
	readUntil(t, aliceWS, EventError)

	require.NoError(t, aliceWS.Close(websocket.StatusNormalClosure, "done"))
	require.Eventually(t, func() bool { return !h.IsOnline(alice) }, 5*time.Second, 10*time.Millisecond)
	assert.True(t, h.IsOnline(bob))
}
