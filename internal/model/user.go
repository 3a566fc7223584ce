// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents an account created on first authenticated contact.
//
// ExternalID is the identity provider's subject (e.g. "github:1234567").
// It is what palettes and likes reference, so a user keeps their data even
// if the internal ID scheme changes. The UNIQUE constraint on external_id
// guarantees one account per external identity.
//
// Username starts out nil and is claimed exactly once; after that it is
// never changed. Name mirrors the username on claim. Accounts imported
// before the username gate existed may carry a Name without a Username.
type User struct {
	ID                 string    `json:"id"                 db:"id"`
	ExternalID         string    `json:"externalId"         db:"external_id"`
	Username           *string   `json:"username,omitempty" db:"username"`
	Name               string    `json:"name"               db:"name"`
	Email              string    `json:"email"              db:"email"`
	AvatarURL          string    `json:"avatarUrl"          db:"avatar_url"`
	HasCompletedSignup bool      `json:"hasCompletedSignup" db:"has_completed_signup"`
	CreatedAt          time.Time `json:"createdAt"          db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt"          db:"updated_at"`
}

// SignupComplete reports whether the user may skip the username gate.
// A non-empty legacy Name counts as completed signup.
func (u *User) SignupComplete() bool {
	return u.HasCompletedSignup || u.Name != ""
}

// DisplayName is the name shown next to a user's palettes.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Username != nil {
		return *u.Username
	}
	return ""
}

// PublicProfile is the subset of a user that anyone may see.
type PublicProfile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Profile returns the public view of u.
func (u *User) Profile() *PublicProfile {
	return &PublicProfile{
		ID:        u.ID,
		Name:      u.DisplayName(),
		AvatarURL: u.AvatarURL,
	}
}
