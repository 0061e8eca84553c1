package game

import (
	"fmt"

	"github.com/tinyland-inc/innkeeper/internal/protocol/codec"
	"github.com/tinyland-inc/innkeeper/internal/resources"
)

// GuildEventKind identifies an SMSG_GUILD_EVENT notification, grounded on
// protocol/game/guild.rs's guild_events module (only the IDs the bridge
// actually renders are named; FormatNotification reports ok=false for the
// rest, so they are not published).
type GuildEventKind uint8

const (
	GEPromotion GuildEventKind = 0x00
	GEDemotion  GuildEventKind = 0x01
	GEMotd      GuildEventKind = 0x02
	GEJoined    GuildEventKind = 0x03
	GELeft      GuildEventKind = 0x04
	GERemoved   GuildEventKind = 0x05
	GESignedOn  GuildEventKind = 0x0C
	GESignedOff GuildEventKind = 0x0D
)

// GuildEvent is a parsed SMSG_GUILD_EVENT payload.
type GuildEvent struct {
	Kind    GuildEventKind
	Strings []string
}

// ParseGuildEvent decodes SMSG_GUILD_EVENT: an event-type byte, a string
// count byte, then that many C-strings.
func ParseGuildEvent(payload []byte) (*GuildEvent, error) {
	c := codec.NewCursor(payload)
	kind, err := c.Uint8()
	if err != nil {
		return nil, err
	}
	numStrings, err := c.Uint8()
	if err != nil {
		return nil, err
	}
	strs := make([]string, 0, numStrings)
	for i := uint8(0); i < numStrings; i++ {
		s, err := c.CString(256)
		if err != nil {
			return nil, err
		}
		strs = append(strs, s)
	}
	return &GuildEvent{Kind: GuildEventKind(kind), Strings: strs}, nil
}

// FormatNotification renders the event as guild-chat text, matching the
// original's exact wording, or reports ok=false for events this bridge
// doesn't surface as a message (e.g. rank or bank events).
func (e *GuildEvent) FormatNotification() (text string, ok bool) {
	if len(e.Strings) == 0 {
		return "", false
	}
	s := e.Strings
	switch e.Kind {
	case GEPromotion:
		if len(s) < 3 {
			return "", false
		}
		return fmt.Sprintf("%s has promoted %s to %s", s[0], s[1], s[2]), true
	case GEDemotion:
		if len(s) < 3 {
			return "", false
		}
		return fmt.Sprintf("%s has demoted %s to %s", s[0], s[1], s[2]), true
	case GEMotd:
		return fmt.Sprintf("Guild MOTD: %s", s[0]), true
	case GEJoined:
		return fmt.Sprintf("%s has joined the guild", s[0]), true
	case GELeft:
		return fmt.Sprintf("%s has left the guild", s[0]), true
	case GERemoved:
		if len(s) >= 2 {
			return fmt.Sprintf("%s has been kicked from the guild by %s", s[0], s[1]), true
		}
		return fmt.Sprintf("%s has been removed from the guild", s[0]), true
	case GESignedOn:
		return fmt.Sprintf("%s has come online", s[0]), true
	case GESignedOff:
		return fmt.Sprintf("%s has gone offline", s[0]), true
	default:
		return "", false
	}
}

// BuildGuildQuery encodes CMSG_GUILD_QUERY.
func BuildGuildQuery(guildID uint32) []byte {
	return codec.NewWriter().Uint32LE(guildID).Bytes()
}

// GuildQueryResponse is a parsed SMSG_GUILD_QUERY_RESPONSE payload.
type GuildQueryResponse struct {
	GuildID uint32
	Name    string
	Ranks   []string
}

// ParseGuildQueryResponse decodes SMSG_GUILD_QUERY_RESPONSE: guild ID, name,
// then exactly 10 rank-name C-strings (empty slots are blank strings, not
// omitted, per the wire format).
func ParseGuildQueryResponse(payload []byte) (*GuildQueryResponse, error) {
	c := codec.NewCursor(payload)
	guildID, err := c.Uint32LE()
	if err != nil {
		return nil, err
	}
	name, err := c.CString(64)
	if err != nil {
		return nil, err
	}
	ranks := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		rankName, err := c.CString(64)
		if err != nil {
			return nil, err
		}
		if rankName != "" {
			ranks = append(ranks, rankName)
		}
	}
	return &GuildQueryResponse{GuildID: guildID, Name: name, Ranks: ranks}, nil
}

// GuildRosterMember is one entry from SMSG_GUILD_ROSTER.
type GuildRosterMember struct {
	GUID         uint64
	Online       bool
	Name         string
	Rank         uint32
	Level        uint8
	Class        resources.Class
	ZoneID       uint32
	PublicNote   string
	OfficerNote  string
}

// GuildRoster is a parsed SMSG_GUILD_ROSTER payload.
type GuildRoster struct {
	MOTD      string
	GuildInfo string
	RankCount uint32
	Members   []GuildRosterMember
}

// ParseGuildRoster decodes SMSG_GUILD_ROSTER: member count, MOTD, guild
// info text, rank rights table, then per-member entries. Offline members
// carry a trailing last-logoff float that online members omit.
func ParseGuildRoster(payload []byte) (*GuildRoster, error) {
	c := codec.NewCursor(payload)
	memberCount, err := c.Uint32LE()
	if err != nil {
		return nil, err
	}
	motd, err := c.CString(256)
	if err != nil {
		return nil, err
	}
	guildInfo, err := c.CString(512)
	if err != nil {
		return nil, err
	}
	rankCount, err := c.Uint32LE()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < rankCount; i++ {
		if c.Remaining() < 4 {
			break
		}
		if _, err := c.Uint32LE(); err != nil {
			return nil, err
		}
	}

	members := make([]GuildRosterMember, 0, memberCount)
	for i := uint32(0); i < memberCount; i++ {
		if c.Remaining() < 9 {
			break
		}
		guid, err := c.Uint64LE()
		if err != nil {
			return nil, err
		}
		onlineByte, err := c.Uint8()
		if err != nil {
			return nil, err
		}
		online := onlineByte != 0
		name, err := c.CString(64)
		if err != nil {
			return nil, err
		}
		if c.Remaining() < 4 {
			break
		}
		rank, err := c.Uint32LE()
		if err != nil {
			return nil, err
		}
		if c.Remaining() < 3 {
			break
		}
		level, err := c.Uint8()
		if err != nil {
			return nil, err
		}
		classByte, err := c.Uint8()
		if err != nil {
			return nil, err
		}
		if _, err := c.Uint8(); err != nil { // gender, unused
			return nil, err
		}
		if c.Remaining() < 4 {
			break
		}
		zoneID, err := c.Uint32LE()
		if err != nil {
			return nil, err
		}
		if !online && c.Remaining() >= 4 {
			if _, err := c.Uint32LE(); err != nil { // last_logoff, unused
				return nil, err
			}
		}
		publicNote, err := c.CString(256)
		if err != nil {
			return nil, err
		}
		officerNote, err := c.CString(256)
		if err != nil {
			return nil, err
		}

		members = append(members, GuildRosterMember{
			GUID: guid, Online: online, Name: name, Rank: rank, Level: level,
			Class: resources.Class(classByte), ZoneID: zoneID,
			PublicNote: publicNote, OfficerNote: officerNote,
		})
	}

	return &GuildRoster{MOTD: motd, GuildInfo: guildInfo, RankCount: rankCount, Members: members}, nil
}
