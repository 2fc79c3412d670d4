package waclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mau.fi/whatsmeow/types"
)

func TestSerializeJID(t *testing.T) {
	assert.Equal(t, "628111@c.us", serializeJID(types.NewJID("628111", types.DefaultUserServer)))
	assert.Equal(t, "628111@c.us", serializeJID(types.NewJID("628111", types.HiddenUserServer)))
	assert.Equal(t, "12036@g.us", serializeJID(types.NewJID("12036", types.GroupServer)))
	assert.Equal(t, "status@broadcast", serializeJID(types.NewJID("status", types.BroadcastServer)))
}

func TestParseSerializedID(t *testing.T) {
	t.Run("user suffix", func(t *testing.T) {
		jid, err := parseSerializedID("628111@c.us")
		require.NoError(t, err)
		assert.Equal(t, types.NewJID("628111", types.DefaultUserServer), jid)
	})

	t.Run("group suffix", func(t *testing.T) {
		jid, err := parseSerializedID("12036@g.us")
		require.NoError(t, err)
		assert.Equal(t, types.NewJID("12036", types.GroupServer), jid)
	})

	t.Run("native form passes through", func(t *testing.T) {
		jid, err := parseSerializedID("628111@s.whatsapp.net")
		require.NoError(t, err)
		assert.Equal(t, types.DefaultUserServer, jid.Server)
	})

	t.Run("bare number becomes a user", func(t *testing.T) {
		jid, err := parseSerializedID("+628111")
		require.NoError(t, err)
		assert.Equal(t, types.NewJID("628111", types.DefaultUserServer), jid)
	})

	t.Run("hyphenated id becomes a group", func(t *testing.T) {
		jid, err := parseSerializedID("628111-160000")
		require.NoError(t, err)
		assert.Equal(t, types.GroupServer, jid.Server)
	})

	t.Run("long id becomes a group", func(t *testing.T) {
		jid, err := parseSerializedID("120363041234567890")
		require.NoError(t, err)
		assert.Equal(t, types.GroupServer, jid.Server)
	})

	t.Run("round trip", func(t *testing.T) {
		original := "628111@c.us"
		jid, err := parseSerializedID(original)
		require.NoError(t, err)
		assert.Equal(t, original, serializeJID(jid))
	})
}
