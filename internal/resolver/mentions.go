package resolver

// ResolveMentionsToText converts Discord `<@id>`/`<@!id>` user mentions to
// plain `@Username` text for WoW, using the ID->name map the adapter
// precomputed when it received the message (bus.DiscordChatEvent's
// ResolvedMentions) rather than making a second API round trip here.
func (r *Resolver) ResolveMentionsToText(message string, names map[string]string) string {
	return r.mentionPattern.ReplaceAllStringFunc(message, func(match string) string {
		groups := r.mentionPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		if name, ok := names[groups[1]]; ok {
			return "@" + name
		}
		return match
	})
}

// ResolveChannelMentions converts Discord `<#id>` channel mentions to
// plain `#channel-name` text.
func (r *Resolver) ResolveChannelMentions(message string, names map[string]string) string {
	return r.channelPattern.ReplaceAllStringFunc(message, func(match string) string {
		groups := r.channelPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		if name, ok := names[groups[1]]; ok {
			return "#" + name
		}
		return match
	})
}

// ResolveRoleMentions converts Discord `<@&id>` role mentions to plain
// `@RoleName` text.
func (r *Resolver) ResolveRoleMentions(message string, names map[string]string) string {
	return r.rolePattern.ReplaceAllStringFunc(message, func(match string) string {
		groups := r.rolePattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		if name, ok := names[groups[1]]; ok {
			return "@" + name
		}
		return match
	})
}
