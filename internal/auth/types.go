package auth

import (
	"errors"
)

// Field names as they appear in the persisted document and in error fields.
const (
	FieldUserID     = "user_id"
	FieldUsername   = "username"
	FieldPassword   = "password"
	FieldPermission = "permission"
)

// Password length limits, inclusive.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 30
)

// User is one account in the users dataset.
//
// PasswordHash is persisted (as "password") but must never be sent to
// clients; use Public for responses.
type User struct {
	ID           int        `json:"user_id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"password"`
	Permission   Permission `json:"permission"`
}

// Attr implements datastore.Record.
func (u User) Attr(key string) (any, bool) {
	switch key {
	case FieldUserID:
		return u.ID, true
	case FieldUsername:
		return u.Username, true
	default:
		return nil, false
	}
}

// PublicUser is the client-facing view of a User.
type PublicUser struct {
	ID         int        `json:"user_id"`
	Username   string     `json:"username"`
	Permission Permission `json:"permission"`
}

// Public strips the password hash.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Permission: u.Permission}
}

// Document is the persisted users state.
type Document struct {
	CurrentUserID int    `json:"current_user_id"`
	Users         []User `json:"users"`
}

// NewDocument returns an empty users document.
func NewDocument() Document {
	return Document{Users: []User{}}
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrForbidden          = errors.New("insufficient permissions")
)
