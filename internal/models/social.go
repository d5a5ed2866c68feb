package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PremiumStatus string

const (
	PremiumNone     PremiumStatus = "none"
	PremiumTrialing PremiumStatus = "trialing"
	PremiumActive   PremiumStatus = "active"
	PremiumGrace    PremiumStatus = "grace"
	PremiumExpired  PremiumStatus = "expired"
)

type User struct {
	ID               string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username         string        `json:"username" gorm:"uniqueIndex"`
	DisplayName      string        `json:"displayName"`
	PremiumStatus    PremiumStatus `json:"premiumStatus" gorm:"type:varchar(16);not null;default:none"`
	PremiumExpiresAt *time.Time    `json:"premiumExpiresAt"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Session tracks client liveness through heartbeats.
type Session struct {
	ID              string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string    `json:"userId" gorm:"type:varchar(36);not null;index"`
	Platform        string    `json:"platform"`
	LastHeartbeatAt time.Time `json:"lastHeartbeatAt" gorm:"not null;index"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipBlocked  FriendshipStatus = "blocked"
)

type Friendship struct {
	ID        string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserA     string           `json:"userA" gorm:"type:varchar(36);not null;index"`
	UserB     string           `json:"userB" gorm:"type:varchar(36);not null;index"`
	Status    FriendshipStatus `json:"status" gorm:"type:varchar(16);not null"`
	CreatedAt time.Time        `json:"createdAt"`
}

func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// Other returns the id of the user on the other side of the friendship.
func (f Friendship) Other(userID string) string {
	if f.UserA == userID {
		return f.UserB
	}
	return f.UserA
}

type PostVisibility string

const (
	VisibilityFriends PostVisibility = "friends"
	VisibilityPrivate PostVisibility = "private"
	VisibilityPublic  PostVisibility = "public"
)

type Post struct {
	ID         string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AuthorID   string         `json:"authorId" gorm:"type:varchar(36);not null;index"`
	Caption    string         `json:"caption"`
	ImageURL   string         `json:"imageUrl"`
	Visibility PostVisibility `json:"visibility" gorm:"type:varchar(16);not null;default:friends"`
	DeletedAt  *time.Time     `json:"deletedAt,omitempty" gorm:"index"`
	CreatedAt  time.Time      `json:"createdAt" gorm:"index"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// VisibleInFeed reports whether the post can appear in a friends feed.
func (p Post) VisibleInFeed() bool {
	if p.DeletedAt != nil {
		return false
	}
	return p.Visibility == VisibilityFriends || p.Visibility == VisibilityPrivate
}
