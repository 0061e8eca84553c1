package bridge

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/innkeeper/internal/bus"
	"github.com/tinyland-inc/innkeeper/internal/config"
	"github.com/tinyland-inc/innkeeper/internal/protocol/game"
	"github.com/tinyland-inc/innkeeper/internal/resolver"
)

type stubDiscordSender struct {
	channelIDs map[string]string
}

func (s *stubDiscordSender) ChannelIDByName(guildID, name string) (string, error) {
	if id, ok := s.channelIDs[name]; ok {
		return id, nil
	}
	return name, nil
}
func (s *stubDiscordSender) SendEmbed(channelID string, embed *bus.DiscordEmbed) (string, error) {
	return "msg1", nil
}
func (s *stubDiscordSender) EditEmbed(channelID, messageID string, embed *bus.DiscordEmbed) error { return nil }
func (s *stubDiscordSender) SetActivity(status string) error                                      { return nil }
func (s *stubDiscordSender) GuildID() string                                                       { return "g1" }
func (s *stubDiscordSender) GuildMemberNames() []resolver.NameID                                   { return nil }
func (s *stubDiscordSender) GuildRoleNames() []resolver.NameID                                     { return nil }
func (s *stubDiscordSender) CustomEmoji() map[string]string                                        { return nil }

func newTestOrchestrator(t *testing.T, state *BridgeState) (*Orchestrator, *bus.Bus) {
	t.Helper()
	b := bus.New()
	t.Cleanup(b.Close)
	o := New(b, &stubDiscordSender{}, resolver.New(false), state)
	return o, b
}

func recvWowOutbound(t *testing.T, b *bus.Bus) bus.WowOutboundMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := b.ConsumeWowOutbound(ctx)
	require.NoError(t, err)
	return msg
}

func TestRouteDiscordChatWhisperPreprocessingBypassesRouting(t *testing.T) {
	state := &BridgeState{Routing: newRoutingTable()}
	o, b := newTestOrchestrator(t, state)

	ev := bus.DiscordChatEvent{ChannelID: "c1", Content: "/w Mynameis hello there"}
	o.routeDiscordChat(context.Background(), ev)

	msg := recvWowOutbound(t, b)
	assert.Equal(t, uint8(game.ChatWhisper), msg.ChatType)
	assert.Equal(t, "Mynameis", msg.Target)
	assert.Equal(t, "hello there", msg.Text)
}

func TestRouteDiscordChatIgnoresSelfAndDM(t *testing.T) {
	state := &BridgeState{Routing: newRoutingTable()}
	o, b := newTestOrchestrator(t, state)

	o.routeDiscordChat(context.Background(), bus.DiscordChatEvent{IsSelf: true, Content: "/w a b"})
	o.routeDiscordChat(context.Background(), bus.DiscordChatEvent{IsDM: true, Content: "/w a b"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := b.ConsumeWowOutbound(ctx)
	assert.Error(t, err)
}

func TestRouteDiscordChatBangCommandDispatchesCommandRequest(t *testing.T) {
	state := &BridgeState{Routing: newRoutingTable()}
	o, b := newTestOrchestrator(t, state)

	o.routeDiscordChat(context.Background(), bus.DiscordChatEvent{ChannelID: "c1", Content: "!who Bob"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req, err := b.ConsumeCommandRequest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "who", req.Kind)
	assert.Equal(t, "Bob", req.Args)
	assert.Equal(t, "c1", req.ReplyChannel)
}

func TestRouteDiscordChatDotCommandRequiresWhitelist(t *testing.T) {
	state := &BridgeState{
		Routing:           newRoutingTable(),
		EnableDotCommands: true,
		DotCommandWhitelist: []string{"roll"},
	}
	o, b := newTestOrchestrator(t, state)

	o.routeDiscordChat(context.Background(), bus.DiscordChatEvent{ChannelID: "c1", Content: ".guildinfo"})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := b.ConsumeWowOutbound(ctx)
	assert.Error(t, err, "dot command not in whitelist must not be forwarded")

	o.routeDiscordChat(context.Background(), bus.DiscordChatEvent{ChannelID: "c1", Content: ".roll 100"})
	msg := recvWowOutbound(t, b)
	assert.Equal(t, ".roll 100", msg.Text)
}

func TestRouteDiscordChatOrdinaryRoutingAppliesFilter(t *testing.T) {
	table := newRoutingTable()
	table.add(Route{
		Key:            WowChannelKey{Kind: "guild"},
		DiscordChannel: "c1",
		Direction:      config.DirectionBoth,
		FormatD2W:      "[{sender}]: {text}",
		DiscordFilter:  NewFilterSet([]*regexp.Regexp{regexp.MustCompile("spam")}),
	})
	state := &BridgeState{Routing: table}
	o, b := newTestOrchestrator(t, state)

	o.routeDiscordChat(context.Background(), bus.DiscordChatEvent{ChannelID: "c1", AuthorName: "Bob", Content: "this is spam"})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := b.ConsumeWowOutbound(ctx)
	assert.Error(t, err, "filtered message must not reach the game client")

	o.routeDiscordChat(context.Background(), bus.DiscordChatEvent{ChannelID: "c1", AuthorName: "Bob", Content: "hello guild"})
	msg := recvWowOutbound(t, b)
	assert.Equal(t, uint8(game.ChatGuild), msg.ChatType)
	assert.Equal(t, "[Bob]: hello guild", msg.Text)
}
