package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	sendQueueSize = 64
	writeTimeout  = 10 * time.Second
	pingInterval  = 25 * time.Second
	pingTimeout   = 5 * time.Second
)

// Conn is one websocket session of a user.
type Conn struct {
	UserID uuid.UUID

	ws     *websocket.Conn
	send   chan Event
	ctx    context.Context
	cancel context.CancelFunc
}

func newConn(parent context.Context, userID uuid.UUID, ws *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(parent)
	return &Conn{
		UserID: userID,
		ws:     ws,
		send:   make(chan Event, sendQueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// enqueue queues ev without blocking. A full queue drops the event.
func (c *Conn) enqueue(ev Event) bool {
	if c.ctx.Err() != nil {
		return false
	}
	select {
	case c.send <- ev:
		return true
	default:
		slog.Debug("realtime send queue full, dropping event", "user", c.UserID, "event", ev.Name)
		return false
	}
}

func (c *Conn) close() {
	c.cancel()
}

func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.send:
			writeCtx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c.ws, ev)
			cancel()
			if err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *Conn) keepAliveLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(c.ctx, pingTimeout)
			err := c.ws.Ping(pingCtx)
			cancel()
			if err != nil {
				c.close()
				return
			}
		}
	}
}

// inbound is a client frame.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Serve runs the session of an authenticated user until the client goes
// away or ctx ends. The connection is registered with the hub on entry.
func Serve(ctx context.Context, hub *Hub, ws *websocket.Conn, userID uuid.UUID) error {
	c := newConn(ctx, userID, ws)
	defer func() {
		hub.Unregister(c)
		c.close()
		_ = ws.Close(websocket.StatusNormalClosure, "bye")
	}()

	go c.writeLoop()
	go c.keepAliveLoop()
	hub.Register(c)

	for {
		var in inbound
		if err := wsjson.Read(c.ctx, ws, &in); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway ||
				errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		c.dispatch(hub, in)
	}
}

func (c *Conn) dispatch(hub *Hub, in inbound) {
	switch in.Event {
	case EventAddUser:
		var id uuid.UUID
		if err := json.Unmarshal(in.Data, &id); err != nil || id != c.UserID {
			c.enqueue(Event{Name: EventError, Data: "add-user must carry your own user id"})
			return
		}
		hub.Register(c)

	case EventSendMessage:
		var msg struct {
			ReceiverID uuid.UUID `json:"receiverId"`
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(in.Data, &msg); err != nil || msg.ReceiverID == uuid.Nil ||
			json.Unmarshal(in.Data, &fields) != nil {
			c.enqueue(Event{Name: EventError, Data: "send-message requires receiverId"})
			return
		}
		// The sender is always the authenticated user.
		fields["senderId"], _ = json.Marshal(c.UserID)
		payload, err := json.Marshal(fields)
		if err != nil {
			slog.Error("encode relayed message", "from", c.UserID, "error", err)
			return
		}
		if !hub.Route(msg.ReceiverID, payload) {
			slog.Debug("receiver offline, message not relayed", "from", c.UserID, "to", msg.ReceiverID)
		}

	case EventActiveChat:
		var raw string
		if len(in.Data) > 0 && string(in.Data) != "null" {
			if err := json.Unmarshal(in.Data, &raw); err != nil {
				c.enqueue(Event{Name: EventError, Data: "active-chat expects a chat id"})
				return
			}
		}
		if raw == "" {
			hub.SetActiveChat(c, nil)
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			c.enqueue(Event{Name: EventError, Data: "active-chat expects a chat id"})
			return
		}
		hub.SetActiveChat(c, &id)

	default:
		c.enqueue(Event{Name: EventError, Data: "unknown event " + in.Event})
	}
}
