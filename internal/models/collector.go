package models

import (
	"strings"
	"time"
)

// Privilege levels compare by ordinal: COLLECTOR < MANAGER_PENDING < MANAGER < ADMIN.
type Privilege int

const (
	PrivilegeCollector      Privilege = 1
	PrivilegeManagerPending Privilege = 2
	PrivilegeManager        Privilege = 3
	PrivilegeAdmin          Privilege = 4
)

var privilegeNames = map[Privilege]string{
	PrivilegeCollector:      "COLLECTOR",
	PrivilegeManagerPending: "MANAGER_PENDING",
	PrivilegeManager:        "MANAGER",
	PrivilegeAdmin:          "ADMIN",
}

func (p Privilege) String() string {
	if name, ok := privilegeNames[p]; ok {
		return name
	}
	return "UNKNOWN"
}

// AtLeast reports whether p grants everything required grants.
func (p Privilege) AtLeast(required Privilege) bool {
	return p >= required
}

// ParsePrivilege maps a privilege name back to its level.
func ParsePrivilege(name string) (Privilege, bool) {
	for p, n := range privilegeNames {
		if strings.EqualFold(n, name) {
			return p, true
		}
	}
	return 0, false
}

// AllPrivileges returns every privilege in ascending order
func AllPrivileges() []Privilege {
	return []Privilege{PrivilegeCollector, PrivilegeManagerPending, PrivilegeManager, PrivilegeAdmin}
}

// PrivilegeRecord is the seeded privileges lookup table.
type PrivilegeRecord struct {
	ID   Privilege `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name string    `json:"name" gorm:"not null;uniqueIndex"`
}

func (PrivilegeRecord) TableName() string {
	return "privileges"
}

type Collector struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Email        string    `json:"email" gorm:"not null;uniqueIndex"`
	Username     string    `json:"username" gorm:"not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"not null"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	Picture      string    `json:"picture"`
	PrivilegeID  Privilege `json:"privilege" gorm:"not null;default:1;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CollectorSummary is the public slice of a profile attached to listings and offers
type CollectorSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Picture  string `json:"picture"`
}

func (c *Collector) Summary() CollectorSummary {
	if c == nil {
		return CollectorSummary{}
	}
	return CollectorSummary{ID: c.ID, Username: c.Username, Picture: c.Picture}
}

type PublicProfile struct {
	CollectorSummary
	FirstName    string `json:"first_name"`
	OpenListings int64  `json:"open_listings"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

// Identifier returns whichever of email or username the caller supplied.
func (r LoginRequest) Identifier() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=8"`
}

type AuthResponse struct {
	UserID    uint   `json:"userId"`
	Privilege string `json:"privilege"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	Picture   *string `json:"picture"`
}

type InviteManagerRequest struct {
	CollectorID uint `json:"collector_id" binding:"required"`
}
