package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserSignupComplete(t *testing.T) {
	name := "steve"

	assert.False(t, (&User{}).SignupComplete(), "fresh user must claim a username")
	assert.True(t, (&User{HasCompletedSignup: true, Username: &name, Name: name}).SignupComplete())
	assert.True(t, (&User{Name: "Legacy Person"}).SignupComplete(), "legacy name counts as signup")
}

func TestUserDisplayName(t *testing.T) {
	username := "alex_99"

	assert.Equal(t, "Alex", (&User{Name: "Alex", Username: &username}).DisplayName())
	assert.Equal(t, "alex_99", (&User{Username: &username}).DisplayName())
	assert.Equal(t, "", (&User{}).DisplayName())
}

func TestIdentityAnonymous(t *testing.T) {
	assert.True(t, Identity{}.Anonymous())
	assert.False(t, Identity{Subject: "github:1"}.Anonymous())
}
