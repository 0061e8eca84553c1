// Package discord adapts a discordgo session to the bus conduits the bridge
// orchestrator reads and writes. The shape — a struct wrapping the
// third-party client, started/stopped against a context, with inbound
// events pushed onto a bus rather than handled inline — follows the
// teacher's Channel/BaseChannel pattern (pkg/channels/base.go), generalized
// from "any chat platform" down to the one platform Innkeeper bridges to.
package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/tinyland-inc/innkeeper/internal/apperr"
	"github.com/tinyland-inc/innkeeper/internal/bus"
	"github.com/tinyland-inc/innkeeper/internal/logging"
	"github.com/tinyland-inc/innkeeper/internal/resolver"
)

// Adapter owns the discordgo session and moves messages between Discord and
// the bus.
type Adapter struct {
	session     *discordgo.Session
	bus         *bus.Bus
	botUserID   string
	guildID     string
	enableDotCommands bool
	commandsAllowed   map[string]bool // channel names/IDs allowed to run dot-commands; empty = all

	ready     chan struct{}
	readyOnce sync.Once
}

// New constructs an Adapter. The session is opened in Start, not here, so
// construction never fails on network I/O.
func New(token string, b *bus.Bus, enableDotCommands bool, commandChannels []string) (*Adapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "construct discord session", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent | discordgo.IntentsGuilds

	allowed := make(map[string]bool, len(commandChannels))
	for _, c := range commandChannels {
		allowed[strings.ToLower(c)] = true
	}

	return &Adapter{
		session:           session,
		bus:               b,
		enableDotCommands: enableDotCommands,
		commandsAllowed:   allowed,
		ready:             make(chan struct{}),
	}, nil
}

// Ready is closed once the gateway's Ready event has populated GuildID, the
// signal callers wait on before resolving config channel names to snowflakes
// or building the routing table.
func (a *Adapter) Ready() <-chan struct{} { return a.ready }

// Start opens the gateway connection and begins forwarding events onto the
// bus. It blocks until ctx is canceled, then closes the session, matching
// the Start(ctx)/Stop(ctx) shape of the teacher's Channel interface.
func (a *Adapter) Start(ctx context.Context) error {
	log := logging.FromContext(ctx)

	a.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		a.handleMessageCreate(ctx, m)
	})
	a.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.botUserID = r.User.ID
		if len(r.Guilds) > 0 {
			a.guildID = r.Guilds[0].ID
		}
		log.Info().Str("username", r.User.Username).Msg("discord gateway ready")
		a.readyOnce.Do(func() { close(a.ready) })
	})

	if err := a.session.Open(); err != nil {
		return apperr.Wrap(apperr.KindNetwork, "open discord gateway session", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.outboundLoop(gctx) })

	<-ctx.Done()
	closeErr := a.session.Close()
	_ = g.Wait()
	return closeErr
}

// outboundLoop delivers messages the orchestrator renders for Discord,
// mirroring the game client's own ConsumeWowOutbound loop on the other side
// of the bus.
func (a *Adapter) outboundLoop(ctx context.Context) error {
	log := logging.FromContext(ctx)
	for {
		msg, err := a.bus.ConsumeDiscordOutbound(ctx)
		if err != nil {
			if err == bus.ErrClosed || err == context.Canceled {
				return nil
			}
			return err
		}
		if msg.Embed != nil {
			if _, err := a.SendEmbed(msg.ChannelID, msg.Embed); err != nil {
				log.Warn().Err(err).Str("channel_id", msg.ChannelID).Msg("failed to send discord embed")
			}
			continue
		}
		if err := a.SendText(msg.ChannelID, msg.Content); err != nil {
			log.Warn().Err(err).Str("channel_id", msg.ChannelID).Msg("failed to send discord message")
		}
	}
}

func (a *Adapter) handleMessageCreate(ctx context.Context, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}
	isSelf := m.Author.ID == a.botUserID
	if isSelf {
		return
	}

	channelName := m.ChannelID
	if ch, err := a.session.State.Channel(m.ChannelID); err == nil && ch.Name != "" {
		channelName = ch.Name
	}

	mentions := a.resolveMentions(m)

	ev := bus.DiscordChatEvent{
		AuthorID:         m.Author.ID,
		AuthorName:       resolveDisplayName(m),
		IsSelf:           isSelf,
		IsDM:             m.GuildID == "",
		ChannelID:        m.ChannelID,
		ChannelName:      channelName,
		Content:          m.Content,
		Attachments:      attachmentURLs(m),
		ResolvedMentions: mentions,
	}

	_ = a.bus.PublishDiscordChat(ctx, ev)
}

func resolveDisplayName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	return m.Author.Username
}

func attachmentURLs(m *discordgo.MessageCreate) []string {
	urls := make([]string, 0, len(m.Attachments))
	for _, att := range m.Attachments {
		urls = append(urls, att.URL)
	}
	return urls
}

// resolveMentions maps every mentioned user/role/channel ID in the message
// to a human-readable name, so the resolver can turn Discord's `<@id>`
// markup into plain text for WoW without a second round-trip to the API.
func (a *Adapter) resolveMentions(m *discordgo.MessageCreate) map[string]string {
	out := make(map[string]string, len(m.Mentions)+len(m.MentionRoles))
	for _, u := range m.Mentions {
		out[u.ID] = u.Username
	}
	for _, roleID := range m.MentionRoles {
		if m.GuildID == "" {
			continue
		}
		if role, err := a.session.State.Role(m.GuildID, roleID); err == nil {
			out[roleID] = role.Name
		}
	}
	for _, match := range channelMentionPattern.FindAllString(m.Content, -1) {
		id := strings.Trim(match, "<#>")
		if ch, err := a.session.State.Channel(id); err == nil {
			out[id] = ch.Name
		}
	}
	return out
}

// SendText posts a plain-text message, splitting it across multiple
// messages if it exceeds Discord's 2000-character limit.
func (a *Adapter) SendText(channelID, content string) error {
	for _, chunk := range splitDiscordMessage(content, 2000) {
		if _, err := a.session.ChannelMessageSend(channelID, chunk); err != nil {
			return apperr.Wrap(apperr.KindNetwork, "send discord message", err)
		}
	}
	return nil
}

// SendEmbed posts an embed, used by the guild dashboard, returning
// the new message's ID so a caller can later edit it in place.
func (a *Adapter) SendEmbed(channelID string, embed *bus.DiscordEmbed) (string, error) {
	msg, err := a.session.ChannelMessageSendEmbed(channelID, toDiscordEmbed(embed))
	if err != nil {
		return "", apperr.Wrap(apperr.KindNetwork, "send discord embed", err)
	}
	return msg.ID, nil
}

// EditEmbed replaces the embed content of a previously sent message, used
// by the guild dashboard to refresh its snapshot in place rather than
// posting a new message every roster refresh (spec §4.5.3).
func (a *Adapter) EditEmbed(channelID, messageID string, embed *bus.DiscordEmbed) error {
	edit := discordgo.NewMessageEdit(channelID, messageID)
	edit.Embeds = &[]*discordgo.MessageEmbed{toDiscordEmbed(embed)}
	if _, err := a.session.ChannelMessageEditComplex(edit); err != nil {
		return apperr.Wrap(apperr.KindNetwork, "edit discord embed", err)
	}
	return nil
}

func toDiscordEmbed(embed *bus.DiscordEmbed) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(embed.Fields))
	for _, f := range embed.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return &discordgo.MessageEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       embed.Color,
		Fields:      fields,
	}
}

// SetActivity updates the bot's presence text, used to surface connection
// phase ("Connecting…", "Connected to <realm>") per spec §4.5.2.
func (a *Adapter) SetActivity(status string) error {
	return a.session.UpdateGameStatus(0, status)
}

// ChannelIDByName resolves a configured channel name (or raw snowflake) to
// an ID, used when turning config's human-readable discord.channel values
// into the IDs the API needs.
func (a *Adapter) ChannelIDByName(guildID, name string) (string, error) {
	if isSnowflake(name) {
		return name, nil
	}
	channels, err := a.session.GuildChannels(guildID)
	if err != nil {
		return "", apperr.Wrap(apperr.KindNetwork, "list guild channels", err)
	}
	for _, ch := range channels {
		if strings.EqualFold(ch.Name, name) {
			return ch.ID, nil
		}
	}
	return "", apperr.New(apperr.KindConfig, fmt.Sprintf("discord channel %q not found", name), nil)
}

// IsDotCommandAllowed reports whether dot/bang commands may run in the
// given channel, following the teacher's compound allow-list pattern in
// BaseChannel.IsAllowed: an empty allow-list means "everywhere".
func (a *Adapter) IsDotCommandAllowed(channelID, channelName string) bool {
	if !a.enableDotCommands {
		return false
	}
	if len(a.commandsAllowed) == 0 {
		return true
	}
	return a.commandsAllowed[strings.ToLower(channelID)] || a.commandsAllowed[strings.ToLower(channelName)]
}

// GuildID returns the single guild this bot was invited into, captured off
// the gateway's Ready event. Innkeeper bridges exactly one guild.
func (a *Adapter) GuildID() string { return a.guildID }

// GuildMemberNames returns every cached guild member as a resolver.NameID,
// used to resolve WoW `@tag` markup to Discord mentions (spec §4.4 step 5).
func (a *Adapter) GuildMemberNames() []resolver.NameID {
	if a.guildID == "" {
		return nil
	}
	guild, err := a.session.State.Guild(a.guildID)
	if err != nil {
		return nil
	}
	out := make([]resolver.NameID, 0, len(guild.Members))
	for _, m := range guild.Members {
		if m.User == nil {
			continue
		}
		name := m.User.Username
		if m.Nick != "" {
			name = m.Nick
		}
		out = append(out, resolver.NameID{Name: name, ID: m.User.ID})
	}
	return out
}

// GuildRoleNames returns every cached guild role as a resolver.NameID, the
// role-mention fallback for @tag resolution.
func (a *Adapter) GuildRoleNames() []resolver.NameID {
	if a.guildID == "" {
		return nil
	}
	guild, err := a.session.State.Guild(a.guildID)
	if err != nil {
		return nil
	}
	out := make([]resolver.NameID, 0, len(guild.Roles))
	for _, r := range guild.Roles {
		out = append(out, resolver.NameID{Name: r.Name, ID: r.ID})
	}
	return out
}

// CustomEmoji returns the guild's custom emoji, keyed by lowercase name, as
// the Discord markup a :shortcode: token expands to (spec §4.4 step 4).
func (a *Adapter) CustomEmoji() map[string]string {
	out := map[string]string{}
	if a.guildID == "" {
		return out
	}
	guild, err := a.session.State.Guild(a.guildID)
	if err != nil {
		return out
	}
	for _, e := range guild.Emojis {
		prefix := ""
		if e.Animated {
			prefix = "a"
		}
		out[strings.ToLower(e.Name)] = fmt.Sprintf("<%s:%s:%s>", prefix, e.Name, e.ID)
	}
	return out
}

func isSnowflake(s string) bool {
	if len(s) < 16 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
