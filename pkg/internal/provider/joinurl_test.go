package provider

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinURLSigner_RoundTrip(t *testing.T) {
	signer := NewJoinURLSigner("https://meet.example.com/", "secret")

	link, err := signer.Sign("m1", "u1", "User One", false)
	require.NoError(t, err)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/meetings/m1/join", parsed.Path)
	assert.Equal(t, "u1", parsed.Query().Get("user"))
	assert.Equal(t, "User One", parsed.Query().Get("name"))

	claims, err := signer.Parse(parsed.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, "m1", claims.MeetingID)
	assert.Equal(t, "u1", claims.UserID)
	assert.False(t, claims.Host)
}

func TestJoinURLSigner_RejectsForeignToken(t *testing.T) {
	link, err := NewJoinURLSigner("https://a", "one").Sign("m1", "u1", "", true)
	require.NoError(t, err)

	parsed, err := url.Parse(link)
	require.NoError(t, err)

	_, err = NewJoinURLSigner("https://a", "two").Parse(parsed.Query().Get("token"))
	assert.Error(t, err)
}
