package bridge

import (
	"strings"
	"unicode/utf8"
)

// maxWowChatBytes is the wire limit on a single outbound chat text field
// (spec §3's invariant: every outbound WoW text chunk is <=255 UTF-8 bytes).
const maxWowChatBytes = 255

// whitespaceLookback bounds how far back from a byte-limit cut point
// SplitWowText will search for a whitespace character to prefer splitting
// on, per spec §8's boundary scenario ("ending at a whitespace boundary
// when any exists within the last 32 bytes").
const whitespaceLookback = 32

// SplitWowText splits text into chunks of at most maxWowChatBytes bytes
// each, never severing a multi-byte UTF-8 rune and preferring to split at
// a whitespace character found within the last whitespaceLookback bytes of
// the cut point (spec §4.5/§8).
func SplitWowText(text string) []string {
	if len(text) <= maxWowChatBytes {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	remaining := text
	for len(remaining) > maxWowChatBytes {
		cut := maxWowChatBytes
		for cut > 0 && !utf8.RuneStart(remaining[cut]) {
			cut--
		}

		searchStart := cut - whitespaceLookback
		if searchStart < 0 {
			searchStart = 0
		}
		if idx := strings.LastIndexByte(remaining[searchStart:cut], ' '); idx >= 0 {
			cut = searchStart + idx
		}

		chunk := strings.TrimRight(remaining[:cut], " ")
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = strings.TrimLeft(remaining[cut:], " ")
	}
	if remaining != "" {
		chunks = append(chunks, remaining)
	}
	return chunks
}
