package bridge

import "strings"

// matchGlob reports whether name case-insensitively matches a glob pattern
// supporting '*' (any run of characters) and '?' (any single character).
// Spec §9 fixes dot-command whitelist semantics as glob rather than plain
// prefix matching; written as a small matcher instead of path.Match since
// path.Match is case-sensitive and treats '/' specially, neither of which
// fits a whitelist of bare command words (e.g. "guild*").
func matchGlob(pattern, name string) bool {
	return matchGlobRunes([]rune(strings.ToLower(pattern)), []rune(strings.ToLower(name)))
}

func matchGlobRunes(pattern, name []rune) bool {
	if len(pattern) == 0 {
		return len(name) == 0
	}
	switch pattern[0] {
	case '*':
		// Try consuming zero or more characters of name for this '*'.
		for i := 0; i <= len(name); i++ {
			if matchGlobRunes(pattern[1:], name[i:]) {
				return true
			}
		}
		return false
	case '?':
		if len(name) == 0 {
			return false
		}
		return matchGlobRunes(pattern[1:], name[1:])
	default:
		if len(name) == 0 || name[0] != pattern[0] {
			return false
		}
		return matchGlobRunes(pattern[1:], name[1:])
	}
}

// matchesAnyGlob reports whether name matches any pattern in whitelist. An
// empty whitelist allows nothing (spec §6's dot_commands_whitelist is
// "optional" but an enabled dot-command feature with no whitelist entries
// should not silently allow everything, matching enable_commands_channels'
// convention of "empty = all" existing only on the channel gate, not here).
func matchesAnyGlob(whitelist []string, name string) bool {
	for _, pattern := range whitelist {
		if matchGlob(pattern, name) {
			return true
		}
	}
	return false
}
