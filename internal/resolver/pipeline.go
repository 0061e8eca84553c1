package resolver

import "strings"

// WowToDiscord runs the full WoW-chat-text-to-Discord-markdown pipeline
// (spec §4.4): link resolution happens before texture/color stripping
// because the link patterns rely on the surrounding `|cXXXXXXXX` color
// escape still being present to anchor the match, matching the order
// discord/resolver.rs's process_wow_to_discord actually runs in (the
// distilled spec lists stripping first, but following it literally would
// break link resolution on any colored item link). Returns any @tag
// ambiguity errors alongside the resolved text so the caller can whisper
// them back to the sender.
func (r *Resolver) WowToDiscord(message string, customEmoji map[string]string, members, roles []NameID) (text string, tagErrors []string) {
	step1 := r.ResolveLinks(message)
	step2 := r.StripTextureCoding(step1)
	step3 := r.StripColorCoding(step2)
	step4 := r.ResolveEmojis(step3, customEmoji)
	step5, errs := r.ResolveTags(step4, members, roles)
	return r.EscapeDiscordMarkdownPreserveMentions(step5), errs
}

// DiscordToWow runs the Discord-message-to-WoW-chat-text pipeline (spec
// §4.4): Unicode and custom emoji become `:shortcode:` text, mentions
// resolve to plain names via the adapter's precomputed ID->name map, and
// each attachment URL is appended as its own space-separated token.
// Whisper-prefix handling (`/w <target> <body>`) is the bridge
// orchestrator's job, not the resolver's, since it changes the chat type
// rather than the text.
func (r *Resolver) DiscordToWow(message string, names map[string]string, attachments []string) string {
	step1 := r.ResolveUnicodeEmojisToText(message)
	step2 := r.ResolveCustomEmojisToText(step1)
	step3 := r.ResolveMentionsToText(step2, names)
	step4 := r.ResolveChannelMentions(step3, names)
	step5 := r.ResolveRoleMentions(step4, names)

	if len(attachments) == 0 {
		return step5
	}
	var b strings.Builder
	b.WriteString(step5)
	for _, url := range attachments {
		b.WriteByte(' ')
		b.WriteString(url)
	}
	return b.String()
}
