package model

import "time"

// Session is a server-side login session identified by an opaque token.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}
