// Package models defines the persistent entities of the gallery.
package models

import "time"

// User is an account record. Usernames and email addresses are unique
// case-insensitively; original casing is preserved for display.
type User struct {
	Key            int
	Username       string
	HashedPassword string
	EmailAddress   string

	// Messages are outbound notifications queued at creation time (e.g. the
	// welcome email). Delivery is handled elsewhere; this core only creates
	// them, atomically with the owning user.
	Messages []*EmailMessage

	CreatedAt time.Time
}

// EmailMessage is a queued notification owned by exactly one user.
type EmailMessage struct {
	Key     int
	Subject string
	Body    string
}

func NewUser(username, hashedPassword, emailAddress string) *User {
	return &User{
		Username:       username,
		HashedPassword: hashedPassword,
		EmailAddress:   emailAddress,
		CreatedAt:      time.Now().UTC(),
	}
}

func (u *User) EntityKey() int     { return u.Key }
func (u *User) SetEntityKey(k int) { u.Key = k }
