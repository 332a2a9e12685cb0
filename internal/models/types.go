package models

import "time"

// User is the profile snapshot embedded in a session record and shown
// across screens.
type User struct {
	ID             string `json:"id"`
	PhoneNumber    string `json:"phoneNumber"`
	Name           string `json:"name"`
	DisplayName    string `json:"displayName"`
	Username       string `json:"username"`
	Avatar         string `json:"avatar"`
	Bio            string `json:"bio"`
	Status         string `json:"status"`
	IsOnline       bool   `json:"isOnline"`
	FollowersCount int    `json:"followersCount"`
	FollowingCount int    `json:"followingCount"`
	LikesCount     int    `json:"likesCount"`
}

// ChatSummary is one row of the chat list. ID is the uniqueness key;
// the list is kept most-recent-activity-first.
type ChatSummary struct {
	ID             string
	Name           string
	Avatar         string
	IsGroup        bool
	ParticipantIDs []string
	LastMessage    string
	LastMessageAt  time.Time
	UnreadCount    int
	IsOnline       bool
	IsTyping       bool
}

// Update is an ephemeral story; it disappears 24 hours after posting.
type Update struct {
	ID        string
	UserID    string
	UserName  string
	Caption   string
	MediaURL  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Session is the record the client persists locally between launches.
type Session struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"` // epoch milliseconds
	User      User   `json:"user"`
}

// Expired reports whether the session is past its expiry instant.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt <= now.UnixMilli()
}
