package waclient

import (
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// serializeJID renders a whatsmeow JID in WhatsApp Web form: one-to-one
// chats end in "@c.us", groups in "@g.us". All ids crossing the capability
// surface use this form.
func serializeJID(jid types.JID) string {
	switch jid.Server {
	case types.DefaultUserServer, types.HiddenUserServer:
		return jid.User + "@c.us"
	case types.GroupServer:
		return jid.User + "@g.us"
	default:
		return jid.User + "@" + jid.Server
	}
}

// parseSerializedID turns a WhatsApp-Web-form id back into a whatsmeow JID.
// Bare phone numbers fall back to a group/user heuristic on length.
func parseSerializedID(id string) (types.JID, error) {
	id = strings.TrimSpace(id)
	if user, ok := strings.CutSuffix(id, "@c.us"); ok {
		return types.NewJID(user, types.DefaultUserServer), nil
	}
	if user, ok := strings.CutSuffix(id, "@g.us"); ok {
		return types.NewJID(user, types.GroupServer), nil
	}
	if strings.ContainsRune(id, '@') {
		return types.ParseJID(id)
	}

	id = strings.TrimPrefix(id, "+")
	if strings.ContainsRune(id, '-') || len(id) >= 18 {
		return types.NewJID(id, types.GroupServer), nil
	}
	return types.NewJID(id, types.DefaultUserServer), nil
}
