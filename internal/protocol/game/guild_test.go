package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/innkeeper/internal/protocol/codec"
	"github.com/tinyland-inc/innkeeper/internal/resources"
)

func TestParseGuildEventAndFormatNotification(t *testing.T) {
	w := codec.NewWriter()
	w.Uint8(uint8(GEJoined))
	w.Uint8(1)
	w.CString("Jaina")
	ev, err := ParseGuildEvent(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, GEJoined, ev.Kind)

	text, ok := ev.FormatNotification()
	require.True(t, ok)
	assert.Equal(t, "Jaina has joined the guild", text)
}

func TestFormatNotificationPromotion(t *testing.T) {
	ev := &GuildEvent{Kind: GEPromotion, Strings: []string{"Thrall", "Jaina", "Officer"}}
	text, ok := ev.FormatNotification()
	require.True(t, ok)
	assert.Equal(t, "Thrall has promoted Jaina to Officer", text)
}

func TestFormatNotificationUnknownKind(t *testing.T) {
	ev := &GuildEvent{Kind: GuildEventKind(0xFE), Strings: []string{"whatever"}}
	_, ok := ev.FormatNotification()
	assert.False(t, ok)
}

func TestBuildGuildQueryAndParseResponse(t *testing.T) {
	payload := BuildGuildQuery(55)
	c := codec.NewCursor(payload)
	guildID, err := c.Uint32LE()
	require.NoError(t, err)
	assert.Equal(t, uint32(55), guildID)

	w := codec.NewWriter()
	w.Uint32LE(55)
	w.CString("Knights of Azeroth")
	for i := 0; i < 10; i++ {
		if i == 0 {
			w.CString("Guild Master")
		} else {
			w.CString("")
		}
	}
	resp, err := ParseGuildQueryResponse(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Knights of Azeroth", resp.Name)
	assert.Equal(t, []string{"Guild Master"}, resp.Ranks)
}

func buildRosterMember(guid uint64, online bool, name string, rank uint32, level uint8, class resources.Class, zoneID uint32) []byte {
	w := codec.NewWriter()
	w.Uint64LE(guid)
	if online {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
	w.CString(name)
	w.Uint32LE(rank)
	w.Uint8(level)
	w.Uint8(uint8(class))
	w.Uint8(0) // gender
	w.Uint32LE(zoneID)
	if !online {
		w.Uint32LE(0) // last logoff
	}
	w.CString("")
	w.CString("")
	return w.Bytes()
}

func TestParseGuildRoster(t *testing.T) {
	w := codec.NewWriter()
	w.Uint32LE(2)
	w.CString("Welcome to the guild")
	w.CString("Guild info text")
	w.Uint32LE(1)
	w.Uint32LE(0) // one rank's rights bitmask

	w.Raw(buildRosterMember(1, true, "Arthas", 0, 80, resources.ClassWarrior, 1519))
	w.Raw(buildRosterMember(2, false, "Jaina", 1, 80, resources.ClassMage, 1637))

	roster, err := ParseGuildRoster(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Welcome to the guild", roster.MOTD)
	require.Len(t, roster.Members, 2)
	assert.True(t, roster.Members[0].Online)
	assert.Equal(t, resources.ClassWarrior, roster.Members[0].Class)
	assert.False(t, roster.Members[1].Online)
	assert.Equal(t, "Jaina", roster.Members[1].Name)
}
