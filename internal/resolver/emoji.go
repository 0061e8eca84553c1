package resolver

import (
	"sort"
	"strings"
)

// unicodeShortcodes is a small built-in fallback table covering the emoji a
// WoW-to-Discord chat bridge is most likely to see typed as `:shortcode:`,
// used when no guild custom emoji matches (spec §4.4 step 4, grounded on
// the original's use of the `emojis` crate — the pack has no Go equivalent,
// so this deliberately small hand-built table stands in for it rather than
// pulling in an unrelated third-party dependency for a handful of glyphs).
var unicodeShortcodes = map[string]string{
	"smile":       "😄",
	"grinning":    "😀",
	"joy":         "😂",
	"laughing":    "😆",
	"wink":        "😉",
	"blush":       "😊",
	"thumbsup":    "👍",
	"+1":          "👍",
	"thumbsdown":  "👎",
	"-1":          "👎",
	"heart":       "❤️",
	"fire":        "🔥",
	"tada":        "🎉",
	"confetti_ball": "🎊",
	"skull":       "💀",
	"eyes":        "👀",
	"clap":        "👏",
	"100":         "💯",
	"sob":         "😭",
	"rage":        "😡",
	"thinking":    "🤔",
	"facepalm":    "🤦",
	"shrug":       "🤷",
	"wave":        "👋",
	"pray":        "🙏",
	"sweat_smile": "😅",
	"crossed_swords": "⚔️",
	"shield":      "🛡️",
	"crown":       "👑",
	"moneybag":    "💰",
}

var emojiToShortcode = reverseEmojiTable(unicodeShortcodes)

// reverseEmojiTable maps each emoji back to one shortcode. Where several
// shortcodes share an emoji, the lexically smallest wins, so 👍 always
// becomes "+1" rather than whichever name map iteration visits first.
func reverseEmojiTable(table map[string]string) map[string]string {
	codes := make([]string, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	out := make(map[string]string, len(table))
	for _, code := range codes {
		emoji := table[code]
		if _, exists := out[emoji]; !exists {
			out[emoji] = code
		}
	}
	return out
}

// ResolveEmojis turns `:shortcode:` tokens into Discord custom emoji markup
// when customEmoji has a match (keyed lowercase name -> `<:name:id>`), or
// the built-in Unicode fallback otherwise. Unmatched shortcodes are left
// untouched rather than silently dropped.
func (r *Resolver) ResolveEmojis(message string, customEmoji map[string]string) string {
	return r.shortcodePattern.ReplaceAllStringFunc(message, func(match string) string {
		name := strings.ToLower(match[1 : len(match)-1])
		if repl, ok := customEmoji[name]; ok {
			return repl
		}
		if uni, ok := unicodeShortcodes[name]; ok {
			return uni
		}
		return match
	})
}

// ResolveCustomEmojisToText converts Discord custom emoji markup
// (`<:name:id>` or `<a:name:id>`) back to a plain `:name:` shortcode for
// the WoW side, which can't render Discord's emoji image markup.
func (r *Resolver) ResolveCustomEmojisToText(message string) string {
	return r.discordEmojiPattern.ReplaceAllString(message, ":$1:")
}

// ResolveUnicodeEmojisToText replaces known Unicode emoji with their
// `:shortcode:` form, since WoW's chat font can't render most of them.
// Emoji outside the built-in table pass through unchanged.
func (r *Resolver) ResolveUnicodeEmojisToText(message string) string {
	result := message
	for emoji, code := range emojiToShortcode {
		result = strings.ReplaceAll(result, emoji, ":"+code+":")
	}
	return result
}
