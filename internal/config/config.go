// Package config loads and validates Innkeeper's configuration: a HOCON
// document parsed with github.com/gurkankaymak/hocon, then layered with
// environment overrides the same way the teacher's gateway config layers
// PICOCLAW_* env vars over its JSON file via caarlos0/env/v11.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/gurkankaymak/hocon"

	"github.com/tinyland-inc/innkeeper/internal/apperr"
)

// Direction is which way a chat mapping relays messages.
type Direction string

const (
	DirectionBoth          Direction = "both"
	DirectionWowToDiscord  Direction = "wow_to_discord"
	DirectionDiscordToWow  Direction = "discord_to_wow"
)

var validChannelTypes = map[string]bool{
	"Guild": true, "Officer": true, "Say": true, "Yell": true,
	"Emote": true, "System": true, "Channel": true, "Whisper": true,
}

var validDirections = map[Direction]bool{
	DirectionBoth: true, DirectionWowToDiscord: true, DirectionDiscordToWow: true,
}

// DiscordConfig configures the Discord side of the bridge. Token is
// overridable by DISCORD_TOKEN via envOverrides, not by a struct tag here —
// env.Parse is only ever called on envOverrides, never on Config itself.
type DiscordConfig struct {
	Token                        string
	EnableDotCommands            bool
	DotCommandsWhitelist         []string
	EnableCommandsChannels       []string
	EnableTagFailedNotifications bool
	EnableMarkdown               bool
}

// WowConfig configures the realm/game connection. Account/Password/
// Character are overridable by WOW_ACCOUNT/WOW_PASSWORD/WOW_CHARACTER via
// envOverrides, same caveat as DiscordConfig.Token.
type WowConfig struct {
	Platform         string
	Version          string
	RealmBuild       uint16
	GameBuild        uint32
	Realmlist        string
	Realm            string
	Account          string
	Password         string
	Character        string
	EnableServerMotd bool
}

// WowChannelConfig is the WoW side of a single chat mapping.
type WowChannelConfig struct {
	ChannelType string // one of validChannelTypes
	Channel     string // required when ChannelType == "Channel"
	Format      string
	Filters     FiltersConfig
}

// DiscordChannelConfig is the Discord side of a single chat mapping.
type DiscordChannelConfig struct {
	Channel string // Discord channel name or snowflake ID
	Format  string
	Filters FiltersConfig
}

// ChannelMapping routes messages between one WoW channel and one Discord
// channel in one or both directions.
type ChannelMapping struct {
	Direction Direction
	Wow       WowChannelConfig
	Discord   DiscordChannelConfig
}

// ChatConfig is the full set of chat.channels[] mappings.
type ChatConfig struct {
	Channels []ChannelMapping
}

// GuildEventConfig controls one category of guild roster/event notification.
type GuildEventConfig struct {
	Enabled bool
	Format  string
	Channel string
}

// GuildEventsConfig is the guild.* section: one GuildEventConfig per event
// kind, mirroring the spec's guild.{online|offline|...} keys.
type GuildEventsConfig struct {
	Online      GuildEventConfig
	Offline     GuildEventConfig
	Joined      GuildEventConfig
	Left        GuildEventConfig
	Removed     GuildEventConfig
	Promoted    GuildEventConfig
	Demoted     GuildEventConfig
	Motd        GuildEventConfig
	Achievement GuildEventConfig
}

// FiltersConfig is a named, independently toggleable filter layer: either
// the top-level filters.* block or a per-mapping filters override.
type FiltersConfig struct {
	Enabled  bool
	Patterns []string

	compiled []*regexp.Regexp
}

// GuildDashboardConfig controls the supplemented periodic roster-snapshot
// feature (spec §4.5.3).
type GuildDashboardConfig struct {
	Enabled bool
	Channel string
}

// QuirksConfig holds small server-specific behavior toggles that don't
// belong anywhere else, the same grab-bag role it plays in the original
// implementation.
type QuirksConfig struct {
	SkipAddonInfo bool
}

// Config is the fully-parsed, validated Innkeeper configuration.
type Config struct {
	Discord         DiscordConfig
	Wow             WowConfig
	Chat            ChatConfig
	Guild           GuildEventsConfig
	Filters         FiltersConfig
	GuildDashboard  GuildDashboardConfig
	Quirks          QuirksConfig
}

// envOverrides is the subset of Config that caarlos0/env/v11 populates
// directly from the process environment, taking precedence over whatever
// the HOCON file says. Kept separate from Config so env.Parse never has to
// walk the full nested tree (slices of structs aren't tagged for env at
// all, per spec §6).
type envOverrides struct {
	DiscordToken  string `env:"DISCORD_TOKEN"`
	WowAccount    string `env:"WOW_ACCOUNT"`
	WowPassword   string `env:"WOW_PASSWORD"`
	WowCharacter  string `env:"WOW_CHARACTER"`
}

// ConfigPath resolves the config file location: INNKEEPER_CONFIG, then the
// legacy WOWCHAT_CONFIG alias, then the given default.
func ConfigPath(fallback string) string {
	if p := os.Getenv("INNKEEPER_CONFIG"); p != "" {
		return p
	}
	if p := os.Getenv("WOWCHAT_CONFIG"); p != "" {
		return p
	}
	return fallback
}

// Load parses the HOCON file at path, applies environment overrides, and
// validates the result. warn receives one message per per-channel filter
// pattern skipped for being invalid regex (pass nil to discard them).
func Load(path string, warn func(string)) (*Config, error) {
	doc, err := hocon.ParseResource(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "parse hocon document", err)
	}

	cfg := fromDocument(doc)

	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "parse environment overrides", err)
	}
	applyOverrides(&cfg, overrides)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	if err := compileFilters(&cfg, warn); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyOverrides(cfg *Config, o envOverrides) {
	if o.DiscordToken != "" {
		cfg.Discord.Token = o.DiscordToken
	}
	if o.WowAccount != "" {
		cfg.Wow.Account = o.WowAccount
	}
	if o.WowPassword != "" {
		cfg.Wow.Password = o.WowPassword
	}
	if o.WowCharacter != "" {
		cfg.Wow.Character = o.WowCharacter
	}
}

func fromDocument(doc *hocon.Config) Config {
	cfg := Config{
		Discord: DiscordConfig{
			Token:                        doc.GetString("discord.token"),
			EnableDotCommands:            getBoolOr(doc, "discord.enable_dot_commands", true),
			DotCommandsWhitelist:         doc.GetStringSlice("discord.dot_commands_whitelist"),
			EnableCommandsChannels:       doc.GetStringSlice("discord.enable_commands_channels"),
			EnableTagFailedNotifications: getBoolOr(doc, "discord.enable_tag_failed_notifications", true),
			EnableMarkdown:               getBoolOr(doc, "discord.enable_markdown", false),
		},
		Wow: WowConfig{
			Platform:         orDefault(doc.GetString("wow.platform"), "Mac"),
			Version:          orDefault(doc.GetString("wow.version"), "3.3.5"),
			RealmBuild:       uint16(doc.GetInt("wow.realm_build")),
			GameBuild:        uint32(doc.GetInt("wow.game_build")),
			Realmlist:        doc.GetString("wow.realmlist"),
			Realm:            doc.GetString("wow.realm"),
			Account:          doc.GetString("wow.account"),
			Password:         doc.GetString("wow.password"),
			Character:        doc.GetString("wow.character"),
			EnableServerMotd: getBoolOr(doc, "wow.enable_server_motd", true),
		},
		Chat:           parseChatConfig(doc),
		Guild:          parseGuildEvents(doc),
		Filters:        parseFilters(doc, "filters"),
		GuildDashboard: GuildDashboardConfig{
			Enabled: getBoolOr(doc, "guild_dashboard.enabled", false),
			Channel: doc.GetString("guild_dashboard.channel"),
		},
		Quirks: QuirksConfig{
			SkipAddonInfo: getBoolOr(doc, "quirks.skip_addon_info", false),
		},
	}
	return cfg
}

func parseChatConfig(doc *hocon.Config) ChatConfig {
	var chat ChatConfig
	for _, raw := range doc.GetArray("chat.channels") {
		obj, ok := raw.(hocon.Object)
		if !ok {
			continue
		}
		entry, err := hocon.ParseString(obj.String())
		if err != nil {
			continue
		}
		mapping := ChannelMapping{
			Direction: Direction(orDefault(entry.GetString("direction"), string(DirectionBoth))),
			Wow: WowChannelConfig{
				ChannelType: entry.GetString("wow.type"),
				Channel:     entry.GetString("wow.channel"),
				Format:      entry.GetString("wow.format"),
				Filters:     parseFilters(entry, "wow.filters"),
			},
			Discord: DiscordChannelConfig{
				Channel: entry.GetString("discord.channel"),
				Format:  entry.GetString("discord.format"),
				Filters: parseFilters(entry, "discord.filters"),
			},
		}
		chat.Channels = append(chat.Channels, mapping)
	}
	return chat
}

func parseGuildEvents(doc *hocon.Config) GuildEventsConfig {
	event := func(key string) GuildEventConfig {
		path := "guild." + key
		return GuildEventConfig{
			Enabled: getBoolOr(doc, path+".enabled", true),
			Format:  doc.GetString(path + ".format"),
			Channel: doc.GetString(path + ".channel"),
		}
	}
	return GuildEventsConfig{
		Online:      event("online"),
		Offline:     event("offline"),
		Joined:      event("joined"),
		Left:        event("left"),
		Removed:     event("removed"),
		Promoted:    event("promoted"),
		Demoted:     event("demoted"),
		Motd:        event("motd"),
		Achievement: event("achievement"),
	}
}

func parseFilters(doc *hocon.Config, path string) FiltersConfig {
	return FiltersConfig{
		Enabled:  getBoolOr(doc, path+".enabled", false),
		Patterns: doc.GetStringSlice(path + ".patterns"),
	}
}

func getBoolOr(doc *hocon.Config, path string, fallback bool) bool {
	if doc.Get(path) == nil {
		return fallback
	}
	return doc.GetBoolean(path)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// compileFilters pre-compiles every regex.Pattern referenced from the
// config so a bad pattern is caught once at startup instead of on the hot
// path of every chat message. Go's regexp package is RE2-backed and has no
// negative-lookahead support; patterns relying on it are rejected here
// rather than silently matching wrong (see DESIGN.md).
//
// The top-level filters.patterns block is part of Validate's hard-fail
// surface (a global filter is presumed deliberate, so a typo there should
// stop startup). Per-channel wow.filters/discord.filters patterns are not:
// spec §4.5 treats an invalid per-channel pattern as skip-with-warning
// rather than a fatal error, matching the original's compile_patterns
// (bridge/filter.rs), so one bad pattern in one channel doesn't take down
// the whole bridge.
func compileFilters(cfg *Config, warn func(string)) error {
	compileStrict := func(f *FiltersConfig) error {
		f.compiled = f.compiled[:0]
		for i, pattern := range f.Patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return apperr.New(apperr.KindFilter, fmt.Sprintf("filters.patterns[%d] is not a valid regex", i), map[string]any{
					"pattern": pattern,
					"error":   err.Error(),
				})
			}
			f.compiled = append(f.compiled, re)
		}
		return nil
	}
	compileLenient := func(f *FiltersConfig) {
		f.compiled = f.compiled[:0]
		for _, pattern := range f.Patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				if warn != nil {
					warn(fmt.Sprintf("invalid filter regex pattern %q: %s (skipped)", pattern, err))
				}
				continue
			}
			f.compiled = append(f.compiled, re)
		}
	}
	if err := compileStrict(&cfg.Filters); err != nil {
		return err
	}
	for i := range cfg.Chat.Channels {
		compileLenient(&cfg.Chat.Channels[i].Wow.Filters)
		compileLenient(&cfg.Chat.Channels[i].Discord.Filters)
	}
	return nil
}

// Compiled returns the precompiled patterns built by Load (compileFilters).
func (f *FiltersConfig) Compiled() []*regexp.Regexp { return f.compiled }

// Validate checks required fields and structural constraints, returning a
// single aggregated apperr.Error (Kind=Config) describing every problem
// found rather than stopping at the first one, matching the original
// implementation's batch-and-report validator.
func Validate(cfg *Config) error {
	var problems []string

	if cfg.Discord.Token == "" {
		problems = append(problems, "discord.token is required (set in config or DISCORD_TOKEN)")
	} else if cfg.Discord.Token == "YOUR_DISCORD_TOKEN_HERE" {
		problems = append(problems, "discord.token has not been configured (still using placeholder)")
	}

	if cfg.Wow.Account == "" {
		problems = append(problems, "wow.account is required (set in config or WOW_ACCOUNT)")
	}
	if cfg.Wow.Password == "" {
		problems = append(problems, "wow.password is required (set in config or WOW_PASSWORD)")
	}
	if cfg.Wow.Character == "" {
		problems = append(problems, "wow.character is required (set in config or WOW_CHARACTER)")
	} else if l := len(cfg.Wow.Character); l < 2 || l > 12 {
		problems = append(problems, fmt.Sprintf("wow.character must be 2-12 characters (got %d)", l))
	}
	if cfg.Wow.Realmlist == "" {
		problems = append(problems, "wow.realmlist is required")
	}
	if cfg.Wow.Realm == "" {
		problems = append(problems, "wow.realm is required")
	}

	if len(cfg.Chat.Channels) == 0 {
		problems = append(problems, "chat.channels is empty - no message routing configured")
	}
	for i, mapping := range cfg.Chat.Channels {
		if mapping.Wow.ChannelType == "" {
			problems = append(problems, fmt.Sprintf("chat.channels[%d].wow.type is required", i))
		} else if !validChannelTypes[mapping.Wow.ChannelType] {
			problems = append(problems, fmt.Sprintf("chat.channels[%d].wow.type '%s' is invalid", i, mapping.Wow.ChannelType))
		}
		if mapping.Wow.ChannelType == "Channel" && mapping.Wow.Channel == "" {
			problems = append(problems, fmt.Sprintf("chat.channels[%d].wow.channel is required when type is 'Channel'", i))
		}
		if mapping.Discord.Channel == "" {
			problems = append(problems, fmt.Sprintf("chat.channels[%d].discord.channel is required", i))
		}
		if !validDirections[mapping.Direction] {
			problems = append(problems, fmt.Sprintf("chat.channels[%d].direction '%s' is invalid", i, mapping.Direction))
		}
	}

	for i, pattern := range cfg.Filters.Patterns {
		if _, err := regexp.Compile(pattern); err != nil {
			problems = append(problems, fmt.Sprintf("filters.patterns[%d] is not a valid regex: '%s'", i, pattern))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return apperr.New(apperr.KindConfig, strings.Join(problems, "\n"), nil)
}

// HasRequiredFields is a cheap pre-flight check used by `innkeeper config
// check` to report "not configured yet" without running full validation.
func HasRequiredFields(cfg *Config) bool {
	return cfg.Discord.Token != "" &&
		cfg.Wow.Account != "" &&
		cfg.Wow.Password != "" &&
		cfg.Wow.Character != "" &&
		cfg.Wow.Realmlist != "" &&
		cfg.Wow.Realm != ""
}
