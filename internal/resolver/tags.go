package resolver

import (
	"fmt"
	"regexp"
	"strings"
)

// NameID is a candidate a WoW `@tag` can resolve against: a display name
// paired with the Discord snowflake to mention. Roles and members share
// this shape; ResolveTags tells them apart by which slice they came from.
type NameID struct {
	Name string
	ID   string
}

// ResolveTags converts `@tag` and `"@tag with spaces"` markup in a WoW
// message into Discord `<@id>` mentions, matching against channel members
// first and falling back to roles. Ambiguous matches (2-4 candidates) are
// left as plain text and reported as an error string the caller can
// whisper back to the sender instead of guessing; 5+ matches are reported
// as "too many" rather than listing them all. Grounded on
// discord/resolver.rs's resolve_tags/resolve_tag_matcher.
func (r *Resolver) ResolveTags(message string, members, roles []NameID) (resolved string, errs []string) {
	result := message
	for _, re := range []*regexp.Regexp{r.quotedTagPattern, r.simpleTagPattern} {
		result = re.ReplaceAllStringFunc(result, func(match string) string {
			groups := re.FindStringSubmatch(match)
			if len(groups) < 2 {
				return match
			}
			tag := groups[1]

			matches := resolveTagMatcher(members, tag, false)
			if len(matches) != 1 {
				roleMatches := resolveTagMatcher(roles, tag, true)
				switch {
				case len(matches) == 0:
					matches = roleMatches
				case len(roleMatches) > 0 && len(matches) != 1:
					matches = append(append([]NameID{}, matches...), roleMatches...)
				}
			}

			switch {
			case len(matches) == 1:
				return fmt.Sprintf("<@%s>", matches[0].ID)
			case len(matches) >= 2 && len(matches) < 5:
				names := make([]string, len(matches))
				for i, m := range matches {
					names[i] = m.Name
				}
				errs = append(errs, fmt.Sprintf(
					"Your tag @%s matches multiple channel members: %s. Be more specific in your tag!",
					tag, strings.Join(names, ", ")))
				return match
			case len(matches) >= 5:
				errs = append(errs, fmt.Sprintf("Your tag @%s matches too many channel members. Be more specific in your tag!", tag))
				return match
			default:
				return match
			}
		})
	}
	return result, errs
}

// resolveTagMatcher finds candidates whose name contains tag as a
// case-insensitive substring, preferring an exact match, then a
// whole-word match, when more than one substring match exists and the tag
// itself has no spaces. Role matches get their ID prefixed with "&" so the
// final `<@%s>` formatting produces Discord's `<@&id>` role-mention syntax.
func resolveTagMatcher(candidates []NameID, tag string, isRole bool) []NameID {
	lowerTag := strings.ToLower(tag)
	if lowerTag == "here" {
		return nil
	}

	var initial []NameID
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Name), lowerTag) {
			initial = append(initial, c)
		}
	}
	if len(initial) == 0 {
		return nil
	}

	if len(initial) > 1 && !strings.Contains(lowerTag, " ") {
		for _, c := range initial {
			if strings.ToLower(c.Name) == lowerTag {
				return []NameID{withRolePrefix(c, isRole)}
			}
		}

		var wordMatches []NameID
		for _, c := range initial {
			for _, word := range strings.FieldsFunc(strings.ToLower(c.Name), isNotAlphanumeric) {
				if word == lowerTag {
					wordMatches = append(wordMatches, c)
					break
				}
			}
		}
		if len(wordMatches) > 0 {
			return withRolePrefixes(wordMatches, isRole)
		}
	}

	return withRolePrefixes(initial, isRole)
}

func withRolePrefixes(candidates []NameID, isRole bool) []NameID {
	out := make([]NameID, len(candidates))
	for i, c := range candidates {
		out[i] = withRolePrefix(c, isRole)
	}
	return out
}

func withRolePrefix(c NameID, isRole bool) NameID {
	if isRole && !strings.HasPrefix(c.ID, "&") {
		return NameID{Name: c.Name, ID: "&" + c.ID}
	}
	return c
}

func isNotAlphanumeric(r rune) bool {
	return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z'))
}
