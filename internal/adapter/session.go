package adapter

import (
	"context"

	"github.com/arkbridge/adapter-whatsapp-web/internal/bot"
	"github.com/arkbridge/adapter-whatsapp-web/internal/universal"
	"github.com/arkbridge/adapter-whatsapp-web/internal/wweb"
)

// AdaptSession classifies one raw event into the sessions to dispatch. A
// diagnostic "internal" session carrying the raw payload is dispatched
// directly before classification so extensions see every event, even ones
// the primary classification cannot handle. The returned slice holds the
// primary session only.
//
// If any enrichment lookup fails, no primary session is returned; callers
// must not dispatch a partially populated session.
func AdaptSession(ctx context.Context, b *bot.Bot, event *wweb.Event) ([]*universal.Session, error) {
	if event == nil {
		return nil, nil
	}

	diagnostic := b.Session()
	diagnostic.Type = universal.EventInternal
	diagnostic.InternalType = bot.Platform + "/" + event.Kind.String()
	diagnostic.Internal = diagnosticPayload(event)
	b.Dispatch(diagnostic)

	client := b.Client()
	session := b.Session()
	session.Internal = rawEntity(event)

	var timestamp int64
	switch event.Kind {
	case wweb.KindMessage:
		msg := event.Message
		session.Type = universal.EventMessage

		message, err := DecodeMessage(ctx, client, msg)
		if err != nil {
			return nil, err
		}
		session.Event.Message = message
		session.Event.Channel = DecodeMessageChannel(msg)
		session.Event.User = DecodeMessageUser(msg)
		session.GuildID = msg.ID.Remote
		session.ChannelID = msg.ID.Remote
		session.MessageID = msg.ID.ID
		session.IsDirect = msg.Author == ""
		timestamp = msg.Timestamp

	case wweb.KindGroupNotification:
		n := event.Notification
		session.Type = notificationSessionType(n.Type)
		session.GuildID = n.ID.Remote
		session.ChannelID = n.ID.Remote
		session.OperatorID = n.Author

		if session.Type == universal.EventGuildUpdated {
			channel, err := DecodeNotificationChannel(ctx, client, n)
			if err != nil {
				return nil, err
			}
			guild, err := DecodeGuild(ctx, client, n.ID)
			if err != nil {
				return nil, err
			}
			session.Event.Channel = channel
			session.Event.Guild = guild
		} else {
			users, err := DecodeNotificationUsers(ctx, client, n)
			if err != nil {
				return nil, err
			}
			session.Event.Users = users
		}
		timestamp = n.Timestamp

	case wweb.KindChat:
		session.Type = universal.EventGuildRemoved
		session.GuildID = event.Chat.ID.Remote
		session.ChannelID = event.Chat.ID.Remote
		timestamp = event.Chat.Timestamp
	}

	session.Timestamp = timestamp * 1000
	return []*universal.Session{session}, nil
}

// notificationSessionType maps notification types onto session types.
// "leave" is an alias of "remove" on purpose; unlisted types map to an empty
// session type, and the session is still emitted.
func notificationSessionType(t wweb.GroupNotificationType) string {
	switch t {
	case wweb.GroupNotificationAdd:
		return universal.EventGuildMemberAdded
	case wweb.GroupNotificationRemove, wweb.GroupNotificationLeave:
		return universal.EventGuildMemberRemoved
	case wweb.GroupNotificationSubject:
		return universal.EventGuildUpdated
	default:
		return ""
	}
}

// diagnosticPayload picks what the internal session carries: the raw data of
// a message, or the whole raw entity otherwise.
func diagnosticPayload(event *wweb.Event) any {
	if event.Kind == wweb.KindMessage {
		return event.Message.RawData
	}
	return rawEntity(event)
}

func rawEntity(event *wweb.Event) any {
	switch event.Kind {
	case wweb.KindMessage:
		return event.Message
	case wweb.KindGroupNotification:
		return event.Notification
	case wweb.KindChat:
		return event.Chat
	default:
		return nil
	}
}
