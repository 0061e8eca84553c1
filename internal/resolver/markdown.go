package resolver

import "strings"

var markdownEscaper = strings.NewReplacer(
	"`", "\\`",
	"*", "\\*",
	"_", "\\_",
	"~", "\\~",
	"|", "\\|",
	">", "\\>",
)

// EscapeDiscordMarkdown escapes Discord markdown meta-characters, unless
// the resolver was built with enableMarkdown, in which case formatting is
// left for the author's own markdown to render.
func (r *Resolver) EscapeDiscordMarkdown(message string) string {
	if r.enableMarkdown {
		return message
	}
	return markdownEscaper.Replace(message)
}

// EscapeDiscordMarkdownPreserveMentions escapes markdown everywhere except
// inside already-resolved `<@id>`/`<@!id>`/`<@&id>` mention syntax, so a
// tag resolved in an earlier pipeline step doesn't get its angle brackets
// or digits mangled by the markdown pass that follows it.
func (r *Resolver) EscapeDiscordMarkdownPreserveMentions(message string) string {
	if r.enableMarkdown {
		return message
	}

	locs := r.mentionPreservePattern.FindAllStringIndex(message, -1)
	if len(locs) == 0 {
		return r.EscapeDiscordMarkdown(message)
	}

	var b strings.Builder
	lastEnd := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if start > lastEnd {
			b.WriteString(r.EscapeDiscordMarkdown(message[lastEnd:start]))
		}
		b.WriteString(message[start:end])
		lastEnd = end
	}
	if lastEnd < len(message) {
		b.WriteString(r.EscapeDiscordMarkdown(message[lastEnd:]))
	}
	return b.String()
}
