package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is a two-member conversation. Members are stored in canonical order
// (MemberA < MemberB) so a pair maps to exactly one row.
type Chat struct {
	ID        uuid.UUID   `json:"id" gorm:"type:char(36);primaryKey"`
	MemberA   uuid.UUID   `json:"-" gorm:"type:char(36);not null;uniqueIndex:idx_chats_members"`
	MemberB   uuid.UUID   `json:"-" gorm:"type:char(36);not null;uniqueIndex:idx_chats_members;index"`
	Members   []uuid.UUID `json:"members" gorm:"-"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// NewChat builds a chat for the unordered pair (a, b).
func NewChat(a, b uuid.UUID) *Chat {
	first, second := OrderPair(a, b)
	return &Chat{MemberA: first, MemberB: second, Members: []uuid.UUID{first, second}}
}

// OrderPair returns a and b in canonical order.
func OrderPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if b.String() < a.String() {
		return b, a
	}
	return a, b
}

// BeforeCreate sets UUID and canonicalizes the member pair.
func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.MemberA, c.MemberB = OrderPair(c.MemberA, c.MemberB)
	c.Members = []uuid.UUID{c.MemberA, c.MemberB}
	return nil
}

// AfterFind fills the member list.
func (c *Chat) AfterFind(tx *gorm.DB) error {
	c.Members = []uuid.UUID{c.MemberA, c.MemberB}
	return nil
}

// HasMember reports whether id takes part in the chat.
func (c *Chat) HasMember(id uuid.UUID) bool {
	return c.MemberA == id || c.MemberB == id
}

// Other returns the member that is not id.
func (c *Chat) Other(id uuid.UUID) uuid.UUID {
	if c.MemberA == id {
		return c.MemberB
	}
	return c.MemberA
}

// Message is a chat message.
type Message struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	ChatID    uuid.UUID `json:"chatId" gorm:"type:char(36);not null;index"`
	SenderID  uuid.UUID `json:"senderId" gorm:"type:char(36);not null"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
