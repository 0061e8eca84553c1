package bridge

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tinyland-inc/innkeeper/internal/bus"
	"github.com/tinyland-inc/innkeeper/internal/config"
	"github.com/tinyland-inc/innkeeper/internal/logging"
	"github.com/tinyland-inc/innkeeper/internal/protocol/game"
	"github.com/tinyland-inc/innkeeper/internal/resolver"
)

// dashboardRefreshInterval matches the game client's own roster-refresh
// cadence (protocol/game.rosterInterval) since both the dashboard embed and
// the "Watching N guildies online" activity status are only as fresh as the
// roster snapshot backing them.
const dashboardRefreshInterval = 60 * time.Second

var whisperPrefixPattern = regexp.MustCompile(`^/w\s+([a-zA-Z]{3,12})\s+(.+)$`)

// DiscordSender is the subset of internal/adapter/discord.Adapter the
// orchestrator drives directly: control-plane operations (embeds, presence,
// channel/member/role lookups) rather than the ordinary chat path, which
// flows through the bus like everything else (spec §4.5).
type DiscordSender interface {
	ChannelResolver
	SendEmbed(channelID string, embed *bus.DiscordEmbed) (string, error)
	EditEmbed(channelID, messageID string, embed *bus.DiscordEmbed) error
	SetActivity(status string) error
	GuildID() string
	GuildMemberNames() []resolver.NameID
	GuildRoleNames() []resolver.NameID
	CustomEmoji() map[string]string
}

// pendingCommand is an in-flight CommandRequest awaiting its
// CommandResponse: either a Discord channel to post a text reply in (bang
// commands) or a caller's own reply channel to forward the response to
// directly (the dashboard's synchronous snapshot request).
type pendingCommand struct {
	replyChannel string
	waiter       chan bus.CommandResponse
}

// Orchestrator is the bridge's central dispatch loop: it consumes the bus's
// inbound conduits, applies routing/filters/resolution, and republishes
// outbound messages for the game client and Discord adapter to deliver.
// Grounded on bridge/orchestrator.rs's BridgeOrchestrator.
type Orchestrator struct {
	bus      *bus.Bus
	discord  DiscordSender
	resolver *resolver.Resolver
	state    *BridgeState

	mu      sync.Mutex
	pending map[string]pendingCommand

	dashboard dashboardState
}

// New constructs an Orchestrator. state is built once at startup by
// BuildState and never mutated afterward.
func New(b *bus.Bus, discord DiscordSender, res *resolver.Resolver, state *BridgeState) *Orchestrator {
	return &Orchestrator{
		bus:      b,
		discord:  discord,
		resolver: res,
		state:    state,
		pending:  make(map[string]pendingCommand),
	}
}

// Run drives every bus conduit the orchestrator owns until ctx is canceled
// or one of the conduits closes, mirroring the game client's
// errgroup-of-loops shape in Run.
func (o *Orchestrator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return o.wowChatLoop(ctx) })
	g.Go(func() error { return o.guildEventLoop(ctx) })
	g.Go(func() error { return o.discordChatLoop(ctx) })
	g.Go(func() error { return o.commandResponseLoop(ctx) })
	g.Go(func() error { return o.periodicLoop(ctx) })

	return g.Wait()
}

func (o *Orchestrator) log(ctx context.Context) zerolog.Logger {
	return logging.Component(logging.FromContext(ctx), "bridge")
}

func (o *Orchestrator) wowChatLoop(ctx context.Context) error {
	for {
		ev, err := o.bus.ConsumeWowChat(ctx)
		if err != nil {
			return err
		}
		o.routeWowChat(ctx, ev)
	}
}

// routeWowChat implements spec §4.5's WoW->Discord routing step: lookup by
// WowChannelKey, apply the effective filter per route, resolve markup, and
// render the route's format template.
func (o *Orchestrator) routeWowChat(ctx context.Context, ev bus.WowChatEvent) {
	key := wowChannelKeyFromChat(ev.ChatType, ev.ChannelName)
	routes := o.state.Routing.RoutesForWowKey(key)
	if len(routes) == 0 {
		return
	}

	members := o.discord.GuildMemberNames()
	roles := o.discord.GuildRoleNames()
	emoji := o.discord.CustomEmoji()

	for _, route := range routes {
		if !route.permitsW2D() {
			continue
		}
		filter := effectiveWowToDiscordFilter(route, o.state.GlobalFilter)
		if filter.Matches(ev.Text) {
			continue
		}

		text, tagErrs := o.resolver.WowToDiscord(ev.Text, emoji, members, roles)
		rendered := renderTemplate(route.FormatW2D, ev.SenderName, text, ev.ChannelName)

		if err := o.bus.PublishDiscordOutbound(ctx, bus.DiscordOutboundMessage{ChannelID: route.DiscordChannel, Content: rendered}); err != nil {
			lg := o.log(ctx)
			lg.Warn().Err(err).Msg("failed to publish discord outbound message")
		}

		if o.state.EnableTagFailedNotif {
			for _, tagErr := range tagErrs {
				o.whisperBack(ctx, ev.SenderName, tagErr)
			}
		}
	}
}

func (o *Orchestrator) whisperBack(ctx context.Context, target, text string) {
	if target == "" {
		return
	}
	if err := o.bus.PublishWowOutbound(ctx, bus.WowOutboundMessage{ChatType: uint8(game.ChatWhisper), Target: target, Text: text}); err != nil {
		lg := o.log(ctx)
		lg.Warn().Err(err).Msg("failed to whisper back tag-resolution failure")
	}
}

func (o *Orchestrator) guildEventLoop(ctx context.Context) error {
	for {
		ev, err := o.bus.ConsumeGuildEvent(ctx)
		if err != nil {
			return err
		}
		o.routeGuildEvent(ctx, ev)
	}
}

// routeGuildEvent implements the guild.<kind> notification path: gated by
// its own enabled flag, routed to an explicit channel override or the
// GuildEvent(kind)/guild route fallback (spec §9's resolved open question).
func (o *Orchestrator) routeGuildEvent(ctx context.Context, ev bus.GuildEventEnvelope) {
	cfg := guildEventConfigForKind(o.state.GuildEvents, ev.Kind)
	if cfg == nil || !cfg.Enabled {
		return
	}
	channelID, ok := o.state.Routing.GuildRouteDiscordChannel(ev.Kind)
	if !ok {
		return
	}
	if o.state.GlobalFilter.Matches(ev.Text) {
		return
	}

	format := cfg.Format
	if format == "" {
		format = "{text}"
	}
	rendered := renderTemplate(format, ev.ActorName, ev.Text, "")

	if err := o.bus.PublishDiscordOutbound(ctx, bus.DiscordOutboundMessage{ChannelID: channelID, Content: rendered}); err != nil {
		lg := o.log(ctx)
		lg.Warn().Err(err).Msg("failed to publish guild event")
	}
}

func (o *Orchestrator) discordChatLoop(ctx context.Context) error {
	for {
		ev, err := o.bus.ConsumeDiscordChat(ctx)
		if err != nil {
			return err
		}
		o.routeDiscordChat(ctx, ev)
	}
}

// routeDiscordChat implements spec §4.5's Discord->WoW routing step, in the
// priority order the spec lists: self/DM, dot command, bang command, then
// ordinary routing (whisper preprocessing first, since it bypasses routing
// entirely per the spec's "instead of routing").
func (o *Orchestrator) routeDiscordChat(ctx context.Context, ev bus.DiscordChatEvent) {
	if ev.IsSelf || ev.IsDM {
		return
	}

	trimmed := strings.TrimSpace(ev.Content)

	if strings.HasPrefix(trimmed, ".") && o.isDotCommandAllowed(ev, trimmed) {
		o.forwardDotCommand(ctx, trimmed)
		return
	}
	if strings.HasPrefix(trimmed, "!") || strings.HasPrefix(trimmed, "?") {
		o.dispatchBangCommand(ctx, ev)
		return
	}
	if match := whisperPrefixPattern.FindStringSubmatch(trimmed); match != nil {
		o.emitWhisper(ctx, ev, match[1], match[2])
		return
	}

	routes := o.state.Routing.RoutesForDiscordChannel(ev.ChannelID)
	for _, route := range routes {
		if !route.permitsD2W() {
			continue
		}
		filter := effectiveDiscordToWowFilter(route, o.state.GlobalFilter)
		if filter.Matches(ev.Content) {
			continue
		}
		o.emitDiscordToWow(ctx, route, ev)
	}
}

// isDotCommandAllowed gates forwarding a leading-dot message verbatim to
// WoW: the feature must be enabled, the channel must be in command_channels
// (empty list means every channel, matching
// discord.Adapter.IsDotCommandAllowed's "empty = all" convention), and the
// command word must match the whitelist (empty list means none, see
// glob.go's matchesAnyGlob doc comment).
func (o *Orchestrator) isDotCommandAllowed(ev bus.DiscordChatEvent, trimmed string) bool {
	if !o.state.EnableDotCommands {
		return false
	}
	if len(o.state.CommandChannels) > 0 && !o.state.CommandChannels[ev.ChannelID] {
		return false
	}
	fields := strings.Fields(strings.TrimPrefix(trimmed, "."))
	if len(fields) == 0 {
		return false
	}
	return matchesAnyGlob(o.state.DotCommandWhitelist, fields[0])
}

func (o *Orchestrator) forwardDotCommand(ctx context.Context, text string) {
	if err := o.bus.PublishWowOutbound(ctx, bus.WowOutboundMessage{ChatType: uint8(game.ChatSay), Text: text}); err != nil {
		lg := o.log(ctx)
		lg.Warn().Err(err).Msg("failed to forward dot command")
	}
}

// emitWhisper handles the "/w <target> <body>" prefix: exactly one Whisper
// frame per outbound chunk, bypassing route formatting and filters entirely
// (spec §4.5's whisper preprocessing, scenario 4).
func (o *Orchestrator) emitWhisper(ctx context.Context, ev bus.DiscordChatEvent, target, body string) {
	resolved := o.resolver.DiscordToWow(body, ev.ResolvedMentions, ev.Attachments)
	for _, chunk := range SplitWowText(resolved) {
		if err := o.bus.PublishWowOutbound(ctx, bus.WowOutboundMessage{ChatType: uint8(game.ChatWhisper), Target: target, Text: chunk}); err != nil {
			lg := o.log(ctx)
			lg.Warn().Err(err).Msg("failed to publish whisper")
			return
		}
	}
}

func (o *Orchestrator) emitDiscordToWow(ctx context.Context, route Route, ev bus.DiscordChatEvent) {
	chatType, channel := wowChatTypeForRoute(route.Key)
	text := o.resolver.DiscordToWow(ev.Content, ev.ResolvedMentions, ev.Attachments)
	rendered := renderTemplate(route.FormatD2W, ev.AuthorName, text, ev.ChannelName)

	for _, chunk := range SplitWowText(rendered) {
		if err := o.bus.PublishWowOutbound(ctx, bus.WowOutboundMessage{ChatType: uint8(chatType), Channel: channel, Text: chunk}); err != nil {
			lg := o.log(ctx)
			lg.Warn().Err(err).Msg("failed to publish wow outbound message")
			return
		}
	}
}

// wowChatTypeForRoute maps a route's WowChannelKey back to the chat type and
// (for custom channels) channel name HandleSendChat needs.
func wowChatTypeForRoute(key WowChannelKey) (chatType game.ChatType, channel string) {
	switch key.Kind {
	case "guild":
		return game.ChatGuild, ""
	case "officer":
		return game.ChatOfficer, ""
	case "say":
		return game.ChatSay, ""
	case "yell":
		return game.ChatYell, ""
	case "emote":
		return game.ChatTextEmote, ""
	case "custom":
		return game.ChatChannel, key.Name
	case "whisper":
		return game.ChatWhisper, ""
	default:
		return game.ChatSay, ""
	}
}

func guildEventConfigForKind(g config.GuildEventsConfig, kind string) *config.GuildEventConfig {
	switch kind {
	case "online":
		return &g.Online
	case "offline":
		return &g.Offline
	case "joined":
		return &g.Joined
	case "left":
		return &g.Left
	case "removed":
		return &g.Removed
	case "promoted":
		return &g.Promoted
	case "demoted":
		return &g.Demoted
	case "motd":
		return &g.Motd
	case "achievement":
		return &g.Achievement
	default:
		return nil
	}
}

// renderTemplate substitutes the three placeholders every format template
// supports (spec §6's wow.format/discord.format: "{sender}", "{text}",
// "{channel}").
func renderTemplate(format, sender, text, channel string) string {
	out := strings.ReplaceAll(format, "{sender}", sender)
	out = strings.ReplaceAll(out, "{text}", text)
	out = strings.ReplaceAll(out, "{channel}", channel)
	return out
}

// commandResponseLoop answers every in-flight CommandRequest by ID: either
// forwarding the raw response to a caller waiting on it directly (the
// dashboard's synchronous snapshot fetch) or rendering it as a Discord text
// reply in the channel that asked (bang commands).
func (o *Orchestrator) commandResponseLoop(ctx context.Context) error {
	for {
		resp, err := o.bus.ConsumeCommandResponse(ctx)
		if err != nil {
			return err
		}

		o.mu.Lock()
		pending, ok := o.pending[resp.RequestID]
		delete(o.pending, resp.RequestID)
		o.mu.Unlock()
		if !ok {
			continue
		}

		if pending.waiter != nil {
			pending.waiter <- resp
			continue
		}
		if resp.Err != nil {
			o.replyText(ctx, pending.replyChannel, fmt.Sprintf("Error: %v", resp.Err))
			continue
		}
		o.replyText(ctx, pending.replyChannel, resp.Content)
	}
}

func (o *Orchestrator) trackPendingCommand(id, replyChannel string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending[id] = pendingCommand{replyChannel: replyChannel}
}

func (o *Orchestrator) forgetPendingCommand(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.pending, id)
}

func (o *Orchestrator) trackDashboardReply(id string, waiter chan bus.CommandResponse) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending[id] = pendingCommand{waiter: waiter}
}

func (o *Orchestrator) forgetDashboardReply(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.pending, id)
}

func (o *Orchestrator) replyText(ctx context.Context, channelID, text string) {
	if err := o.bus.PublishDiscordOutbound(ctx, bus.DiscordOutboundMessage{ChannelID: channelID, Content: text}); err != nil {
		lg := o.log(ctx)
		lg.Warn().Err(err).Msg("failed to publish command reply")
	}
}

// periodicLoop drives both supplemented roster-cadence features: the guild
// dashboard embed refresh and the "Watching N guildies online" activity
// status (spec §4.5.2, §4.5.3).
func (o *Orchestrator) periodicLoop(ctx context.Context) error {
	ticker := time.NewTicker(dashboardRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.refreshDashboard(ctx)
			o.refreshActivityStatus(ctx)
		}
	}
}

// refreshActivityStatus requests an online-member count over the command
// conduit and surfaces it as the bot's presence text.
func (o *Orchestrator) refreshActivityStatus(ctx context.Context) {
	id := uuid.NewString()
	replyCh := make(chan bus.CommandResponse, 1)
	o.trackDashboardReply(id, replyCh)
	defer o.forgetDashboardReply(id)

	if err := o.bus.PublishCommandRequest(ctx, bus.CommandRequest{ID: id, Kind: "online_count"}); err != nil {
		return
	}

	select {
	case resp := <-replyCh:
		if resp.Err != nil {
			return
		}
		_ = o.discord.SetActivity(fmt.Sprintf("Watching %s guildies online", resp.Content))
	case <-ctx.Done():
	}
}
