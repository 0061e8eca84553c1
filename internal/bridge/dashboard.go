package bridge

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tinyland-inc/innkeeper/internal/bus"
)

// dashboardState tracks the single guild-dashboard message so refreshes
// edit it in place instead of spamming a new post every roster refresh
// (spec §4.5.3's supplemented guild-dashboard feature).
type dashboardState struct {
	mu        sync.Mutex
	channelID string
	messageID string
}

// refreshDashboard asks the game client for a roster snapshot and posts or
// edits the dashboard embed. Called on every guild-roster refresh cycle
// (the same cadence the game client requests GUILD_ROSTER on, spec §4.3.3).
func (o *Orchestrator) refreshDashboard(ctx context.Context) {
	if !o.state.GuildDashboard.Enabled {
		return
	}
	channelID, ok := o.resolveDashboardChannel()
	if !ok {
		return
	}

	id := uuid.NewString()
	replyCh := make(chan bus.CommandResponse, 1)
	o.trackDashboardReply(id, replyCh)
	defer o.forgetDashboardReply(id)

	if err := o.bus.PublishCommandRequest(ctx, bus.CommandRequest{ID: id, Kind: "dashboard"}); err != nil {
		lg := o.log(ctx)
		lg.Warn().Err(err).Msg("failed to request dashboard snapshot")
		return
	}

	select {
	case resp := <-replyCh:
		if resp.Err != nil {
			lg := o.log(ctx)
			lg.Warn().Err(resp.Err).Msg("dashboard snapshot failed")
			return
		}
		o.postOrEditDashboard(ctx, channelID, resp.Content)
	case <-ctx.Done():
	}
}

// resolveDashboardChannel resolves guild_dashboard.channel to a snowflake
// ID on first use and caches it, since the Discord adapter's guild/channel
// cache isn't guaranteed populated yet at Orchestrator construction time.
func (o *Orchestrator) resolveDashboardChannel() (string, bool) {
	o.dashboard.mu.Lock()
	defer o.dashboard.mu.Unlock()
	if o.dashboard.channelID != "" {
		return o.dashboard.channelID, true
	}
	id, err := o.discord.ChannelIDByName(o.discord.GuildID(), o.state.GuildDashboard.Channel)
	if err != nil {
		return "", false
	}
	o.dashboard.channelID = id
	return id, true
}

func (o *Orchestrator) postOrEditDashboard(ctx context.Context, channelID, description string) {
	embed := &bus.DiscordEmbed{
		Title:       "Guild Roster",
		Description: description,
		Color:       0x3498db,
	}

	o.dashboard.mu.Lock()
	messageID := o.dashboard.messageID
	o.dashboard.mu.Unlock()

	if messageID != "" {
		if err := o.discord.EditEmbed(channelID, messageID, embed); err == nil {
			return
		}
		// Fall through to re-post if the tracked message was deleted out-of-band.
	}

	newID, err := o.discord.SendEmbed(channelID, embed)
	if err != nil {
		lg := o.log(ctx)
		lg.Warn().Err(err).Msg("failed to post guild dashboard embed")
		return
	}
	o.dashboard.mu.Lock()
	o.dashboard.messageID = newID
	o.dashboard.mu.Unlock()
}
