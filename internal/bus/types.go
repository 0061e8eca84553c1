package bus

import "time"

// WowChatEvent is an inbound chat message off the WoW game connection,
// already classified by chat type but not yet resolved to Discord markup.
// Mirrors the ChatMessage data model from the bridge specification.
type WowChatEvent struct {
	ChatType    uint8
	Language    uint32
	SenderGUID  uint64
	SenderName  string // may be empty; resolved-before-emit is enforced by the orchestrator
	ChannelName string
	TargetName  string
	Text        string
	ChatTag     uint8
	ReceivedAt  time.Time
}

// GuildEventEnvelope carries a parsed guild roster/event notification
// destined for Discord, keeping the event kind separate from free text so
// the orchestrator can apply guild.<event> formatting and enable/disable
// checks (spec §4.5, §6).
type GuildEventEnvelope struct {
	Kind         string // "online" | "offline" | "joined" | "left" | "removed" | "promoted" | "demoted" | "motd" | "achievement"
	ActorName    string
	TargetName   string
	RankName     string
	AchievementID uint32
	Text         string
	ReceivedAt   time.Time
}

// DiscordChatEvent is an inbound message from the Discord gateway.
type DiscordChatEvent struct {
	AuthorID         string
	AuthorName       string
	IsSelf           bool
	IsDM             bool
	ChannelID        string
	ChannelName      string
	Content          string
	Attachments      []string
	ResolvedMentions map[string]string // user/role/channel ID -> display name, used by the resolver
}

// WowOutboundMessage is a chat frame the orchestrator asks the game client
// to send. ChatType/Channel/Target follow the same vocabulary as
// WowChatEvent so encode and decode share one table of chat types.
type WowOutboundMessage struct {
	ChatType uint8
	Channel  string
	Target   string
	Text     string
}

// DiscordOutboundMessage is a rendered message the orchestrator asks the
// Discord adapter to deliver.
type DiscordOutboundMessage struct {
	ChannelID string
	Content   string
	Embed     *DiscordEmbed
}

// DiscordEmbed is a minimal embed payload, enough to cover the !who listing
// and the guild-dashboard snapshot (spec §4.5.3).
type DiscordEmbed struct {
	Title       string
	Description string
	Fields      []DiscordEmbedField
	Color       int
}

type DiscordEmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// CommandRequest is a control-plane request from the orchestrator to the
// game client (e.g. "fetch the guild roster now for a !who reply").
type CommandRequest struct {
	ID            string
	Kind          string // "who" | "gmotd" | "dashboard" | "online_count"
	Args          string
	ReplyChannel  string
}

// CommandResponse answers a CommandRequest by ID.
type CommandResponse struct {
	RequestID string
	Content   string
	Err       error
}
