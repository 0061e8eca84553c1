// Package bridge implements the orchestrator that routes chat between the
// WoW game client and the Discord adapter: routing tables keyed on chat
// channel, directional filters, whisper preprocessing, outbound splitting,
// and the !who/!gmotd/!help command surface. Grounded on
// bridge/{orchestrator,state,channels,filter}.rs.
package bridge

import (
	"fmt"
	"strings"

	"github.com/tinyland-inc/innkeeper/internal/apperr"
	"github.com/tinyland-inc/innkeeper/internal/config"
	"github.com/tinyland-inc/innkeeper/internal/protocol/game"
)

// WowChannelKey identifies a WoW-side chat channel a Route can bind to.
// Comparable by value so it works directly as a map key, the Go analogue of
// the original's tagged-union WowChannelKey.
type WowChannelKey struct {
	Kind      string // "guild" | "officer" | "say" | "yell" | "emote" | "whisper" | "system" | "guild_event" | "custom"
	EventKind string // set only when Kind == "guild_event": online/offline/joined/left/removed/promoted/demoted/motd/achievement
	Name      string // set only when Kind == "custom": the named WoW channel
}

func guildEventKey(kind string) WowChannelKey { return WowChannelKey{Kind: "guild_event", EventKind: kind} }

// channelKeyFromConfigType maps a chat.channels[].wow.type config value to
// the WowChannelKey it binds, case-insensitively per the original's channel
// type parsing.
func channelKeyFromConfigType(channelType, channelName string) (WowChannelKey, error) {
	switch strings.ToLower(channelType) {
	case "guild":
		return WowChannelKey{Kind: "guild"}, nil
	case "officer":
		return WowChannelKey{Kind: "officer"}, nil
	case "say":
		return WowChannelKey{Kind: "say"}, nil
	case "yell":
		return WowChannelKey{Kind: "yell"}, nil
	case "emote":
		return WowChannelKey{Kind: "emote"}, nil
	case "system":
		return WowChannelKey{Kind: "system"}, nil
	case "whisper":
		return WowChannelKey{Kind: "whisper"}, nil
	case "channel":
		if channelName == "" {
			return WowChannelKey{}, apperr.New(apperr.KindConfig, "wow.channel is required for type Channel", nil)
		}
		return WowChannelKey{Kind: "custom", Name: strings.ToLower(channelName)}, nil
	default:
		return WowChannelKey{}, apperr.New(apperr.KindConfig, "unrecognized wow channel type", map[string]any{"type": channelType})
	}
}

// wowChannelKeyFromChat derives a WowChannelKey from an inbound game-chat
// event's chat type and (for custom channels) channel name.
func wowChannelKeyFromChat(chatType uint8, channelName string) WowChannelKey {
	switch game.ChatType(chatType) {
	case game.ChatGuild:
		return WowChannelKey{Kind: "guild"}
	case game.ChatOfficer:
		return WowChannelKey{Kind: "officer"}
	case game.ChatSay, game.ChatMonsterSay:
		return WowChannelKey{Kind: "say"}
	case game.ChatYell, game.ChatMonsterYell:
		return WowChannelKey{Kind: "yell"}
	case game.ChatEmote, game.ChatTextEmote:
		return WowChannelKey{Kind: "emote"}
	case game.ChatWhisper, game.ChatWhisperInform, game.ChatReply:
		return WowChannelKey{Kind: "whisper"}
	case game.ChatSystem:
		return WowChannelKey{Kind: "system"}
	case game.ChatChannel:
		return WowChannelKey{Kind: "custom", Name: strings.ToLower(channelName)}
	default:
		return WowChannelKey{Kind: "system"}
	}
}

// Route is a directed mapping between a WowChannelKey and a Discord channel,
// with per-direction formatting and an optional filter override layered on
// top of the global filter (spec §3's Route/§4.5's filter priority).
type Route struct {
	Key             WowChannelKey
	DiscordChannel  string // resolved snowflake ID
	Direction       config.Direction
	FormatW2D       string
	FormatD2W       string
	WowFilter       *FilterSet // wow->discord only, absent if not configured
	DiscordFilter   *FilterSet // both directions, absent if not configured
}

func (r Route) permitsW2D() bool {
	return r.Direction == config.DirectionBoth || r.Direction == config.DirectionWowToDiscord
}

func (r Route) permitsD2W() bool {
	return r.Direction == config.DirectionBoth || r.Direction == config.DirectionDiscordToWow
}

// RoutingTable holds two indexes over the same route set, built once at
// startup and never mutated afterward (spec §3's RoutingTable invariant).
type RoutingTable struct {
	byWowKey        map[WowChannelKey][]Route
	byDiscordChannel map[string][]Route
}

func newRoutingTable() *RoutingTable {
	return &RoutingTable{
		byWowKey:         make(map[WowChannelKey][]Route),
		byDiscordChannel: make(map[string][]Route),
	}
}

func (t *RoutingTable) add(r Route) {
	t.byWowKey[r.Key] = append(t.byWowKey[r.Key], r)
	t.byDiscordChannel[r.DiscordChannel] = append(t.byDiscordChannel[r.DiscordChannel], r)
}

// RoutesForWowKey returns every route bound to key.
func (t *RoutingTable) RoutesForWowKey(key WowChannelKey) []Route { return t.byWowKey[key] }

// RoutesForDiscordChannel returns every route bound to a Discord channel ID.
func (t *RoutingTable) RoutesForDiscordChannel(channelID string) []Route {
	return t.byDiscordChannel[channelID]
}

// GuildRouteDiscordChannel returns the fallback Discord channel for guild
// events with no explicit override: the first route keyed on the matching
// GuildEvent(kind), else the first plain "guild" route (spec §9's resolved
// open question on guild.<event>.channel).
func (t *RoutingTable) GuildRouteDiscordChannel(eventKind string) (string, bool) {
	if routes := t.byWowKey[guildEventKey(eventKind)]; len(routes) > 0 {
		return routes[0].DiscordChannel, true
	}
	if routes := t.byWowKey[WowChannelKey{Kind: "guild"}]; len(routes) > 0 {
		return routes[0].DiscordChannel, true
	}
	return "", false
}

// ChannelResolver resolves a configured Discord channel name/ID to a
// snowflake, matching internal/adapter/discord.Adapter.ChannelIDByName's
// signature without creating an import dependency on that package.
type ChannelResolver interface {
	ChannelIDByName(guildID, name string) (string, error)
}

// BridgeState is the orchestrator's immutable, shared-after-construction
// configuration: the routing table, filter layers, and command surface
// toggles (spec §3's BridgeState).
type BridgeState struct {
	Routing              *RoutingTable
	GlobalFilter         *FilterSet
	CommandChannels      map[string]bool
	DotCommandWhitelist  []string
	EnableMarkdown       bool
	EnableDotCommands    bool
	EnableTagFailedNotif bool
	GuildEvents          config.GuildEventsConfig
	GuildDashboard       config.GuildDashboardConfig
}

// BuildState constructs the routing table and filter layers from cfg,
// resolving every configured Discord channel name to a snowflake ID via
// resolver. Unresolvable channels are dropped with a warning (spec §3's
// invariant: routes never reference a Discord channel absent from the
// adapter's known channels) rather than failing startup outright.
func BuildState(cfg *config.Config, guildID string, resolver ChannelResolver, warn func(string)) (*BridgeState, error) {
	table := newRoutingTable()

	resolve := func(name string) (string, bool) {
		id, err := resolver.ChannelIDByName(guildID, name)
		if err != nil {
			warn(fmt.Sprintf("dropping route: %v", err))
			return "", false
		}
		return id, true
	}

	for i, mapping := range cfg.Chat.Channels {
		key, err := channelKeyFromConfigType(mapping.Wow.ChannelType, mapping.Wow.Channel)
		if err != nil {
			return nil, err
		}
		discordChannelID, ok := resolve(mapping.Discord.Channel)
		if !ok {
			warn(fmt.Sprintf("chat.channels[%d]: discord channel %q not found, skipping route", i, mapping.Discord.Channel))
			continue
		}
		route := Route{
			Key:            key,
			DiscordChannel: discordChannelID,
			Direction:      mapping.Direction,
			FormatW2D:      orDefault(mapping.Wow.Format, defaultFormatForKind(key)),
			FormatD2W:      orDefault(mapping.Discord.Format, "[{sender}]: {text}"),
			WowFilter:      filterSetFromConfig(mapping.Wow.Filters),
			DiscordFilter:  filterSetFromConfig(mapping.Discord.Filters),
		}
		table.add(route)
	}

	for _, spec := range guildEventRouteSpecs(cfg.Guild) {
		if !spec.cfg.Enabled {
			continue
		}
		channel := spec.cfg.Channel
		if channel == "" {
			continue // falls back to GuildRouteDiscordChannel at emit time
		}
		discordChannelID, ok := resolve(channel)
		if !ok {
			warn(fmt.Sprintf("guild.%s: discord channel %q not found, skipping override", spec.kind, channel))
			continue
		}
		table.add(Route{
			Key:            guildEventKey(spec.kind),
			DiscordChannel: discordChannelID,
			Direction:      config.DirectionWowToDiscord,
			FormatW2D:      orDefault(spec.cfg.Format, "{text}"),
		})
	}

	commandChannels := map[string]bool{}
	for _, name := range cfg.Discord.EnableCommandsChannels {
		if id, ok := resolve(name); ok {
			commandChannels[id] = true
		}
	}

	return &BridgeState{
		Routing:              table,
		GlobalFilter:         filterSetFromConfig(cfg.Filters),
		CommandChannels:      commandChannels,
		DotCommandWhitelist:  cfg.Discord.DotCommandsWhitelist,
		EnableMarkdown:       cfg.Discord.EnableMarkdown,
		EnableDotCommands:    cfg.Discord.EnableDotCommands,
		EnableTagFailedNotif: cfg.Discord.EnableTagFailedNotifications,
		GuildEvents:          cfg.Guild,
		GuildDashboard:       cfg.GuildDashboard,
	}, nil
}

type guildEventRouteSpec struct {
	kind string
	cfg  config.GuildEventConfig
}

func guildEventRouteSpecs(g config.GuildEventsConfig) []guildEventRouteSpec {
	return []guildEventRouteSpec{
		{"online", g.Online}, {"offline", g.Offline}, {"joined", g.Joined}, {"left", g.Left},
		{"removed", g.Removed}, {"promoted", g.Promoted}, {"demoted", g.Demoted},
		{"motd", g.Motd}, {"achievement", g.Achievement},
	}
}

// defaultFormatForKind picks the unconfigured wow.format default for a
// route, matching the per-chat-type phrasing the original implementation's
// default templates use (plain text for system messages, no brackets for
// emotes, "[Sender]: text" for everything conversational).
func defaultFormatForKind(key WowChannelKey) string {
	switch key.Kind {
	case "emote":
		return "{sender} {text}"
	case "system":
		return "{text}"
	default:
		return "[{sender}]: {text}"
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
