// Package realtime keeps the registry of connected users and pushes chat
// messages, presence and notifications to their websocket connections.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"peerhelp/internal/model"
	"peerhelp/internal/service"
)

// Event names on the wire.
const (
	EventAddUser      = "add-user"
	EventGetUsers     = "get-users"
	EventSendMessage  = "send-message"
	EventGetMessage   = "get-message"
	EventActiveChat   = "active-chat"
	EventNotification = "notification"
	EventError        = "error"
)

// Event is a websocket frame.
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data,omitempty"`
}

// Presence is one entry of the online users list.
type Presence struct {
	UserID uuid.UUID `json:"userId"`
}

// NotificationPayload is the data of a notification event.
type NotificationPayload struct {
	Action       string              `json:"action"`
	Silent       bool                `json:"silent"`
	Notification *model.Notification `json:"notification,omitempty"`
	ChatID       *uuid.UUID          `json:"chatId,omitempty"`
	Changed      int64               `json:"changed,omitempty"`
}

// Hub is the presence registry. Its maps are owned by the Run goroutine;
// every operation is a command executed on that goroutine.
type Hub struct {
	cmds chan func()
	done chan struct{}

	users  map[uuid.UUID]map[*Conn]struct{}
	active map[*Conn]uuid.UUID
}

var _ service.Feed = (*Hub)(nil)

// NewHub creates a hub. Call Run before using it.
func NewHub() *Hub {
	return &Hub{
		cmds:   make(chan func()),
		done:   make(chan struct{}),
		users:  map[uuid.UUID]map[*Conn]struct{}{},
		active: map[*Conn]uuid.UUID{},
	}
}

// Run executes hub commands until ctx is cancelled, then closes every
// connection. Operations issued after Run returned are no-ops.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.users {
				for c := range set {
					c.close()
				}
			}
			h.users = map[uuid.UUID]map[*Conn]struct{}{}
			h.active = map[*Conn]uuid.UUID{}
			slog.Info("realtime hub stopped")
			return
		case fn := <-h.cmds:
			fn()
		}
	}
}

// exec hands fn to the loop and waits until it ran. It reports false when
// the hub is stopped.
func (h *Hub) exec(fn func()) bool {
	ran := make(chan struct{})
	select {
	case h.cmds <- func() { fn(); close(ran) }:
	case <-h.done:
		return false
	}
	<-ran
	return true
}

// Register adds c under its user and broadcasts the presence list.
// Registering the same connection twice only re-broadcasts.
func (h *Hub) Register(c *Conn) {
	h.exec(func() {
		set, ok := h.users[c.UserID]
		if !ok {
			set = map[*Conn]struct{}{}
			h.users[c.UserID] = set
		}
		set[c] = struct{}{}
		h.broadcastPresence()
	})
}

// Unregister removes c. The user goes offline with its last connection.
func (h *Hub) Unregister(c *Conn) {
	h.exec(func() {
		delete(h.active, c)
		set, ok := h.users[c.UserID]
		if !ok {
			return
		}
		if _, ok := set[c]; !ok {
			return
		}
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, c.UserID)
		}
		c.close()
		h.broadcastPresence()
	})
}

// Route forwards a chat payload to every connection of receiverID. It
// reports false when the receiver is offline and the payload was dropped.
func (h *Hub) Route(receiverID uuid.UUID, payload json.RawMessage) bool {
	delivered := false
	h.exec(func() {
		for c := range h.users[receiverID] {
			if c.enqueue(Event{Name: EventGetMessage, Data: payload}) {
				delivered = true
			}
		}
	})
	return delivered
}

// SetActiveChat records the chat c has open. A nil chat clears it.
func (h *Hub) SetActiveChat(c *Conn, chatID *uuid.UUID) {
	h.exec(func() {
		if chatID == nil {
			delete(h.active, c)
			return
		}
		h.active[c] = *chatID
	})
}

// IsOnline reports whether the user has at least one connection.
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	online := false
	h.exec(func() {
		online = len(h.users[userID]) > 0
	})
	return online
}

// Online lists each connected user once.
func (h *Hub) Online() []uuid.UUID {
	var ids []uuid.UUID
	h.exec(func() {
		ids = h.onlineIDs()
	})
	return ids
}

// Publish pushes ev to every connection of userID.
func (h *Hub) Publish(userID uuid.UUID, ev Event) {
	h.exec(func() {
		for c := range h.users[userID] {
			c.enqueue(ev)
		}
	})
}

// PublishNotification delivers a notification feed change. Creations tied
// to the chat a connection has open are flagged silent for it.
func (h *Hub) PublishNotification(userID uuid.UUID, ev service.FeedEvent) {
	chatID := ev.ChatID
	if chatID == nil && ev.Notification != nil {
		chatID = ev.Notification.ChatID
	}
	h.exec(func() {
		for c := range h.users[userID] {
			open, ok := h.active[c]
			silent := ev.Action == service.FeedActionCreate && chatID != nil && ok && open == *chatID
			c.enqueue(Event{Name: EventNotification, Data: NotificationPayload{
				Action:       ev.Action,
				Silent:       silent,
				Notification: ev.Notification,
				ChatID:       ev.ChatID,
				Changed:      ev.Changed,
			}})
		}
	})
}

func (h *Hub) onlineIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(h.users))
	for id := range h.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func (h *Hub) broadcastPresence() {
	ids := h.onlineIDs()
	list := make([]Presence, 0, len(ids))
	for _, id := range ids {
		list = append(list, Presence{UserID: id})
	}
	ev := Event{Name: EventGetUsers, Data: list}
	for _, set := range h.users {
		for c := range set {
			c.enqueue(ev)
		}
	}
}
