package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the authorization role of a user.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// IDCardRemoved replaces the ID card path once an admin approved the account
// and the image was deleted.
const IDCardRemoved = "accepted and removed"

// User represents a registered student or admin.
type User struct {
	ID                   uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Firstname            string     `json:"firstname" gorm:"size:100;not null"`
	Lastname             string     `json:"lastname" gorm:"size:100;not null"`
	Email                string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash         string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role                 Role       `json:"role" gorm:"type:varchar(20);not null;default:student;index"`
	IDCardImage          string     `json:"idCardImage,omitempty" gorm:"size:255"`
	IsApproved           bool       `json:"isApproved" gorm:"not null;default:false;index"`
	IsBlocked            bool       `json:"isBlocked" gorm:"not null;default:false"`
	BanExpires           *time.Time `json:"banExpires"`
	Picture              string     `json:"picture" gorm:"size:255"`
	Bio                  string     `json:"bio" gorm:"size:200"`
	Interests            StringList `json:"interests" gorm:"type:text"`
	ResetPasswordToken   string     `json:"-" gorm:"size:512"`
	ResetPasswordExpires *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// BeforeCreate sets UUID and default role before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleStudent
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BanActive reports whether the user is blocked at the given instant.
// A nil expiry means the ban is permanent.
func (u *User) BanActive(now time.Time) bool {
	if !u.IsBlocked {
		return false
	}
	return u.BanExpires == nil || now.Before(*u.BanExpires)
}

// BanLapsed reports whether the user is flagged blocked but the ban expired.
func (u *User) BanLapsed(now time.Time) bool {
	return u.IsBlocked && u.BanExpires != nil && !now.Before(*u.BanExpires)
}

// FullName joins first and last name.
func (u *User) FullName() string {
	if u.Lastname == "" {
		return u.Firstname
	}
	return u.Firstname + " " + u.Lastname
}

// StringList is a list of strings persisted as a JSON text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan StringList: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan StringList: %w", err)
	}
	*l = out
	return nil
}
