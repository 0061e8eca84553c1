package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripColorCoding(t *testing.T) {
	r := New(false)
	out := r.StripColorCoding("|cff00ff00Green Text|r normal")
	assert.Equal(t, "Green Text normal", out)
}

func TestStripTextureCoding(t *testing.T) {
	r := New(false)
	out := r.StripTextureCoding(`Hello |TInterface\Icons\spell.blp:0|t World`)
	assert.Equal(t, "Hello  World", out)
}

func TestResolveLinksItem(t *testing.T) {
	r := New(false)
	input := "|cff0070dd|Hitem:12345:0:0:0:0:0:0:0|h[Cool Sword]|h|r dropped!"
	out := r.ResolveLinks(input)
	assert.Contains(t, out, "[Cool Sword]")
	assert.Contains(t, out, "db.ascension.gg")
	assert.Contains(t, out, "item=12345")
}

func TestResolveLinksQuest(t *testing.T) {
	r := New(false)
	input := "|cffffff00|Hquest:999:80|h[A Quest]|h|r complete"
	out := r.ResolveLinks(input)
	assert.Contains(t, out, "[A Quest]")
	assert.Contains(t, out, "quest=999")
}

func TestEscapeDiscordMarkdown(t *testing.T) {
	r := New(false)
	out := r.EscapeDiscordMarkdown("**bold** _italic_ `code`")
	assert.Equal(t, "\\*\\*bold\\*\\* \\_italic\\_ \\`code\\`", out)
}

func TestEscapeDiscordMarkdownEnabled(t *testing.T) {
	r := New(true)
	input := "**bold** _italic_ `code`"
	assert.Equal(t, input, r.EscapeDiscordMarkdown(input))
}

func TestEscapeDiscordMarkdownPreserveMentions(t *testing.T) {
	r := New(false)
	input := "**bold** <@123456> text _italic_ <@&789012> more"
	out := r.EscapeDiscordMarkdownPreserveMentions(input)
	assert.Contains(t, out, "\\*\\*bold\\*\\*")
	assert.Contains(t, out, "\\_italic\\_")
	assert.Contains(t, out, "<@123456>")
	assert.Contains(t, out, "<@&789012>")
}

func TestResolveCustomEmojisToText(t *testing.T) {
	r := New(false)
	input := "Hello <:pepega:123456789> world <a:animated:987654321>"
	out := r.ResolveCustomEmojisToText(input)
	assert.Equal(t, "Hello :pepega: world :animated:", out)
}

func TestResolveUnicodeEmojisToText(t *testing.T) {
	r := New(false)
	out := r.ResolveUnicodeEmojisToText("Great job 👍 team")
	assert.Contains(t, out, ":+1:")
}

func TestResolveEmojisCustomTakesPriority(t *testing.T) {
	r := New(false)
	custom := map[string]string{"smile": "<:smile:42>"}
	out := r.ResolveEmojis("say :smile: now", custom)
	assert.Equal(t, "say <:smile:42> now", out)
}

func TestResolveEmojisFallsBackToUnicode(t *testing.T) {
	r := New(false)
	out := r.ResolveEmojis("say :thumbsup: now", nil)
	assert.Equal(t, "say 👍 now", out)
}

func TestResolveEmojisUnknownShortcodeUnchanged(t *testing.T) {
	r := New(false)
	out := r.ResolveEmojis("say :notarealemoji: now", nil)
	assert.Equal(t, "say :notarealemoji: now", out)
}

func TestResolveMentionsToText(t *testing.T) {
	r := New(false)
	names := map[string]string{"123": "Arthas"}
	out := r.ResolveMentionsToText("hey <@123> over here", names)
	assert.Equal(t, "hey @Arthas over here", out)
}

func TestResolveChannelMentions(t *testing.T) {
	r := New(false)
	names := map[string]string{"555": "general"}
	out := r.ResolveChannelMentions("check <#555>", names)
	assert.Equal(t, "check #general", out)
}

func TestResolveRoleMentions(t *testing.T) {
	r := New(false)
	names := map[string]string{"777": "Raiders"}
	out := r.ResolveRoleMentions("calling all <@&777>", names)
	assert.Equal(t, "calling all @Raiders", out)
}

func TestResolveTagsSingleMatch(t *testing.T) {
	r := New(false)
	members := []NameID{{Name: "Jaina", ID: "1"}, {Name: "Thrall", ID: "2"}}
	out, errs := r.ResolveTags("hey @jaina check this out", members, nil)
	assert.Equal(t, "hey <@1> check this out", out)
	assert.Empty(t, errs)
}

func TestResolveTagsExactMatchNarrowsAmbiguity(t *testing.T) {
	r := New(false)
	members := []NameID{{Name: "John", ID: "1"}, {Name: "Johnny", ID: "2"}, {Name: "JohnDoe", ID: "3"}}
	out, errs := r.ResolveTags("@john", members, nil)
	assert.Equal(t, "<@1>", out)
	assert.Empty(t, errs)
}

func TestResolveTagsAmbiguousReportsError(t *testing.T) {
	r := New(false)
	members := []NameID{{Name: "Alicia", ID: "1"}, {Name: "Alice", ID: "2"}}
	out, errs := r.ResolveTags("@ali", members, nil)
	assert.Equal(t, "@ali", out)
	require := errs
	assert.NotEmpty(t, require)
}

func TestResolveTagsHereIsSkipped(t *testing.T) {
	r := New(false)
	members := []NameID{{Name: "here", ID: "1"}}
	out, errs := r.ResolveTags("@here", members, nil)
	assert.Equal(t, "@here", out)
	assert.Empty(t, errs)
}

func TestResolveTagsRoleGetsAmpersandPrefix(t *testing.T) {
	r := New(false)
	roles := []NameID{{Name: "Moderator", ID: "123"}}
	out, errs := r.ResolveTags("@moderator", nil, roles)
	assert.Equal(t, "<@&123>", out)
	assert.Empty(t, errs)
}

func TestWowToDiscordPipeline(t *testing.T) {
	r := New(false)
	input := "|cff0070dd|Hitem:1:0:0:0:0:0:0:0|h[Sword]|h|r looted, :thumbsup:"
	out, errs := r.WowToDiscord(input, nil, nil, nil)
	assert.Contains(t, out, "[Sword]")
	assert.Contains(t, out, "👍")
	assert.Empty(t, errs)
}

func TestDiscordToWowPipeline(t *testing.T) {
	r := New(false)
	names := map[string]string{"1": "Arthas"}
	out := r.DiscordToWow("hey <@1> check 👍", names, []string{"https://example.com/img.png"})
	assert.Contains(t, out, "@Arthas")
	assert.Contains(t, out, ":+1:")
	assert.Contains(t, out, "https://example.com/img.png")
}
