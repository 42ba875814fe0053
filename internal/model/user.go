package model

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRolePetugas UserRole = "petugas"
)

func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRolePetugas
}

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Name         string     `gorm:"column:nama;type:varchar(255);not null" json:"nama"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;type:text;not null" json:"-"`
	Role         UserRole   `gorm:"type:varchar(32);not null" json:"role"`
	BidangID     *uuid.UUID `gorm:"column:bidang_id;type:uuid" json:"bidang_id"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   uuid.UUID
	Name     string
	Role     UserRole
	BidangID *uuid.UUID
}

func (p Principal) IsAdmin() bool {
	return p.Role == UserRoleAdmin
}

func (p Principal) IsPetugas() bool {
	return p.Role == UserRolePetugas
}

// CanHandle reports whether the principal may act on a complaint routed to bidangID.
func (p Principal) CanHandle(bidangID *uuid.UUID) bool {
	if p.IsAdmin() {
		return true
	}
	if !p.IsPetugas() || p.BidangID == nil || bidangID == nil {
		return false
	}
	return *p.BidangID == *bidangID
}
