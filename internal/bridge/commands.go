package bridge

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tinyland-inc/innkeeper/internal/bus"
)

const helpText = `Available commands:
!who [name] / ?who [name] / !online - list online guild members, optionally filtered by name
!gmotd / ?gmotd - show the guild MOTD
!help - show this message`

// dispatchBangCommand handles a Discord message beginning with '!' or '?'
// (spec §4.5.1), answering in the same Discord channel. !who and !gmotd
// require a round trip to the game client over the command conduit since
// GuildRoster is goroutine-owned there (spec §5); help is answered inline.
func (o *Orchestrator) dispatchBangCommand(ctx context.Context, ev bus.DiscordChatEvent) {
	body := strings.TrimSpace(ev.Content[1:])
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return
	}
	command := strings.ToLower(fields[0])
	args := strings.TrimSpace(strings.TrimPrefix(body, fields[0]))

	switch command {
	case "who", "online":
		o.requestCommand(ctx, "who", args, ev.ChannelID)
	case "gmotd":
		o.requestCommand(ctx, "gmotd", args, ev.ChannelID)
	case "help":
		o.replyText(ctx, ev.ChannelID, helpText)
	default:
		// Not a recognized command; spec §4.5.1 only names who/online/gmotd/help,
		// silently ignore anything else rather than spamming "unknown command"
		// for ordinary chat that happens to start with '!' or '?'.
	}
}

// requestCommand forwards a command to the game client and records which
// Discord channel to answer in once the response arrives asynchronously on
// the command-response conduit.
func (o *Orchestrator) requestCommand(ctx context.Context, kind, args, replyChannel string) {
	id := uuid.NewString()
	o.trackPendingCommand(id, replyChannel)
	if err := o.bus.PublishCommandRequest(ctx, bus.CommandRequest{ID: id, Kind: kind, Args: args, ReplyChannel: replyChannel}); err != nil {
		o.forgetPendingCommand(id)
		lg := o.log(ctx)
		lg.Warn().Err(err).Msg("failed to publish command request")
	}
}
