package bridge

import (
	"regexp"

	"github.com/tinyland-inc/innkeeper/internal/config"
)

// FilterSet is an ordered list of compiled regex patterns; a message
// matching any of them is dropped (spec §4.5's filter priority).
type FilterSet struct {
	patterns []*regexp.Regexp
}

// NewFilterSet wraps a precompiled pattern list for tests; BuildState
// otherwise gets a FilterSet from filterSetFromConfig.
func NewFilterSet(patterns []*regexp.Regexp) *FilterSet {
	return &FilterSet{patterns: patterns}
}

// Matches reports whether text matches any pattern in the set.
func (f *FilterSet) Matches(text string) bool {
	if f == nil {
		return false
	}
	for _, re := range f.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// filterSetFromConfig builds a FilterSet from a config.FiltersConfig,
// returning nil (absent) when the filter is disabled or has no compiled
// patterns. Both cases look the same to the effective*Filter priority
// chain, which falls through to the next layer for either.
func filterSetFromConfig(cfg config.FiltersConfig) *FilterSet {
	if !cfg.Enabled || len(cfg.Compiled()) == 0 {
		return nil
	}
	return &FilterSet{patterns: cfg.Compiled()}
}

// effectiveWowToDiscordFilter picks the first non-absent filter in the
// priority chain: per-Discord-channel -> per-WoW-channel -> global (spec
// §4.5's "Filter priority").
func effectiveWowToDiscordFilter(route Route, global *FilterSet) *FilterSet {
	if route.DiscordFilter != nil {
		return route.DiscordFilter
	}
	if route.WowFilter != nil {
		return route.WowFilter
	}
	return global
}

// effectiveDiscordToWowFilter applies only the per-Discord-channel filter
// or the global filter; the per-WoW-channel filter is WoW->Discord only
// per spec §4.5.
func effectiveDiscordToWowFilter(route Route, global *FilterSet) *FilterSet {
	if route.DiscordFilter != nil {
		return route.DiscordFilter
	}
	return global
}
