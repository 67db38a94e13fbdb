package models

import (
	"time"
)

// User represents a signed-in viewer. Identity fields are issued by the
// Google sign-in flow and only mirrored here; the uid is the stable key.
type User struct {
	UID         string    `json:"uid" db:"uid"`
	Email       string    `json:"email" db:"email"`
	DisplayName string    `json:"display_name" db:"display_name"`
	AvatarURL   string    `json:"avatar_url" db:"avatar_url"`
	LastLogin   time.Time `json:"last_login" db:"last_login"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Profile carries the subset of identity fields merged into the stored user
// record on every sign-in. Empty fields are omitted from the merge.
type Profile struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Session is the resolved identity passed explicitly into every service
// call. A zero UID means "not signed in".
type Session struct {
	UID     string  `json:"uid"`
	Profile Profile `json:"profile"`
}

// Authenticated reports whether the session carries a resolved uid.
func (s Session) Authenticated() bool {
	return s.UID != ""
}
