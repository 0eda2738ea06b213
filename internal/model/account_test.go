package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole("")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, r)

	r, err = ParseRole("admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("root")
	assert.Error(t, err)
}

func TestAccount_OTPLifecycle(t *testing.T) {
	a := &Account{}
	assert.False(t, a.HasOTP())

	a.SetOTP("abc", time.Now().Add(time.Minute))
	assert.True(t, a.HasOTP())

	a.MarkVerified()
	assert.True(t, a.IsVerified)
	assert.Nil(t, a.OTPHash)
	assert.Nil(t, a.OTPExpiry)
	assert.False(t, a.HasOTP())
}

func TestAccount_BeforeCreate(t *testing.T) {
	a := &Account{}
	require.NoError(t, a.BeforeCreate(nil))
	assert.Len(t, a.ID, 36)

	b := &Account{ID: "fixed"}
	require.NoError(t, b.BeforeCreate(nil))
	assert.Equal(t, "fixed", b.ID)
}
