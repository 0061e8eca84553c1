package bridge

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/innkeeper/internal/config"
)

type stubResolver struct {
	ids map[string]string
}

func (s stubResolver) ChannelIDByName(guildID, name string) (string, error) {
	if id, ok := s.ids[name]; ok {
		return id, nil
	}
	return "", fmt.Errorf("channel %q not found", name)
}

func TestWowChannelKeyFromChatMapsChatTypes(t *testing.T) {
	assert.Equal(t, WowChannelKey{Kind: "guild"}, wowChannelKeyFromChat(0x03, ""))  // ChatGuild
	assert.Equal(t, WowChannelKey{Kind: "emote"}, wowChannelKeyFromChat(0x09, "")) // ChatEmote
	assert.Equal(t, WowChannelKey{Kind: "custom", Name: "trade"}, wowChannelKeyFromChat(0x0E, "Trade"))
}

func TestDefaultFormatForKindVariesByChatType(t *testing.T) {
	assert.Equal(t, "{sender} {text}", defaultFormatForKind(WowChannelKey{Kind: "emote"}))
	assert.Equal(t, "{text}", defaultFormatForKind(WowChannelKey{Kind: "system"}))
	assert.Equal(t, "[{sender}]: {text}", defaultFormatForKind(WowChannelKey{Kind: "guild"}))
}

func TestBuildStateRoutesChatChannelMapping(t *testing.T) {
	cfg := &config.Config{
		Chat: config.ChatConfig{Channels: []config.ChannelMapping{
			{
				Direction: config.DirectionBoth,
				Wow:       config.WowChannelConfig{ChannelType: "Guild"},
				Discord:   config.DiscordChannelConfig{Channel: "guild-chat"},
			},
		}},
	}
	res := stubResolver{ids: map[string]string{"guild-chat": "111"}}

	var warnings []string
	state, err := BuildState(cfg, "g1", res, func(w string) { warnings = append(warnings, w) })
	require.NoError(t, err)
	assert.Empty(t, warnings)

	routes := state.Routing.RoutesForWowKey(WowChannelKey{Kind: "guild"})
	require.Len(t, routes, 1)
	assert.Equal(t, "111", routes[0].DiscordChannel)
	assert.Equal(t, "[{sender}]: {text}", routes[0].FormatW2D)
}

func TestBuildStateDropsUnresolvableChannelWithWarning(t *testing.T) {
	cfg := &config.Config{
		Chat: config.ChatConfig{Channels: []config.ChannelMapping{
			{
				Direction: config.DirectionBoth,
				Wow:       config.WowChannelConfig{ChannelType: "Say"},
				Discord:   config.DiscordChannelConfig{Channel: "missing-channel"},
			},
		}},
	}
	res := stubResolver{ids: map[string]string{}}

	var warnings []string
	state, err := BuildState(cfg, "g1", res, func(w string) { warnings = append(warnings, w) })
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)
	assert.Empty(t, state.Routing.RoutesForWowKey(WowChannelKey{Kind: "say"}))
}

func TestGuildRouteDiscordChannelFallsBackToPlainGuildRoute(t *testing.T) {
	cfg := &config.Config{
		Chat: config.ChatConfig{Channels: []config.ChannelMapping{
			{
				Direction: config.DirectionWowToDiscord,
				Wow:       config.WowChannelConfig{ChannelType: "Guild"},
				Discord:   config.DiscordChannelConfig{Channel: "guild-chat"},
			},
		}},
		Guild: config.GuildEventsConfig{
			Online: config.GuildEventConfig{Enabled: true}, // no explicit channel override
		},
	}
	res := stubResolver{ids: map[string]string{"guild-chat": "111"}}

	state, err := BuildState(cfg, "g1", res, func(string) {})
	require.NoError(t, err)

	channelID, ok := state.Routing.GuildRouteDiscordChannel("online")
	assert.True(t, ok)
	assert.Equal(t, "111", channelID)
}
