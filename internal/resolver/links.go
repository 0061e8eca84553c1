package resolver

import "fmt"

// ResolveLinks replaces WoW item/spell/talent/quest/achievement/trade link
// markup with a bracketed label plus a clickable Ascension database URL,
// e.g. `|cff0070dd|Hitem:12345:...|h[Cool Sword]|h|r` becomes
// `[Cool Sword] (<https://db.ascension.gg/?item=12345>) `.
func (r *Resolver) ResolveLinks(message string) string {
	result := message
	for _, lp := range r.linkPatterns {
		result = lp.re.ReplaceAllStringFunc(result, func(match string) string {
			groups := lp.re.FindStringSubmatch(match)
			if len(groups) < 3 {
				return match
			}
			id, name := groups[1], groups[2]
			return fmt.Sprintf("[%s] (<%s?%s=%s>) ", name, linkSite, lp.kind, id)
		})
	}
	return result
}

// StripTextureCoding removes `|T...|t` texture escapes entirely.
func (r *Resolver) StripTextureCoding(message string) string {
	return r.texturePattern.ReplaceAllString(message, "")
}

// StripColorCoding removes `|cXXXXXXXX...|r` color coding, keeping the
// wrapped text. A second pass catches an unterminated `|cXXXXXXXX` left
// behind by a malformed or truncated color tag.
func (r *Resolver) StripColorCoding(message string) string {
	pass1 := r.colorPattern.ReplaceAllString(message, "$1")
	return r.colorEndPattern.ReplaceAllString(pass1, "")
}
