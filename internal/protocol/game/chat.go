package game

import (
	"github.com/tinyland-inc/innkeeper/internal/apperr"
	"github.com/tinyland-inc/innkeeper/internal/protocol/codec"
)

// ChatType is the wire chat-message-type byte, grounded on
// protocol/game/chat.rs's chat_events module.
type ChatType uint8

const (
	ChatSay                ChatType = 0x00
	ChatParty              ChatType = 0x01
	ChatRaid               ChatType = 0x02
	ChatGuild              ChatType = 0x03
	ChatOfficer            ChatType = 0x04
	ChatYell               ChatType = 0x05
	ChatWhisper            ChatType = 0x06
	ChatWhisperInform      ChatType = 0x07
	ChatReply              ChatType = 0x08
	ChatEmote              ChatType = 0x09
	ChatTextEmote          ChatType = 0x0A
	ChatSystem             ChatType = 0x0B
	ChatMonsterSay         ChatType = 0x0C
	ChatMonsterYell        ChatType = 0x0D
	ChatChannel            ChatType = 0x0E
	ChatRaidLeader         ChatType = 0x27
	ChatRaidWarning        ChatType = 0x28
	ChatRaidBossWhisper    ChatType = 0x29
	ChatRaidBossEmote      ChatType = 0x2A
	ChatBattleground       ChatType = 0x2C
	ChatBattlegroundLeader ChatType = 0x2D
	ChatAchievement        ChatType = 0x30
	ChatGuildAchievement   ChatType = 0x31
)

// Language is the wire language ID, grounded on chat.rs's languages module.
type Language uint32

const (
	LangUniversal  Language = 0
	LangOrcish     Language = 1
	LangDarnassian Language = 2
	LangTaurahe    Language = 3
	LangDwarvish   Language = 6
	LangCommon     Language = 7
	LangDemonic    Language = 8
	LangTitan      Language = 9
	LangThalassian Language = 10
	LangDraconic   Language = 11
	LangGnomish    Language = 13
	LangTroll      Language = 14
	LangGutterspeak Language = 33
	LangDraenei    Language = 35
	LangAddon      Language = 0xFFFFFFFF
)

// LanguageForRace returns the race's native language, used when building
// outbound chat so the bridge's messages read as coming from a player of
// the configured character's faction.
func LanguageForRace(raceID uint8) Language {
	switch raceID {
	case 1, 3, 4, 7, 11: // Human, Dwarf, Night Elf, Gnome, Draenei
		return LangCommon
	case 2, 5, 6, 8, 10: // Orc, Undead, Tauren, Troll, Blood Elf
		return LangOrcish
	default:
		return LangCommon
	}
}

// MessageChat is a parsed SMSG_MESSAGECHAT/SMSG_GM_MESSAGECHAT payload.
type MessageChat struct {
	ChatType    ChatType
	Language    Language
	SenderGUID  uint64
	GMName      string // only set for GM_MESSAGECHAT
	ChannelName string // only set for ChatChannel
	TargetGUID  uint64 // only set for Say/Yell/Whisper
	Text        string
	ChatTag     uint8
}

// ParseMessageChat decodes an SMSG_MESSAGECHAT payload per spec §4.3.2:
// chat_type, language, [channel name for channel chat], sender_guid,
// [target_guid for say/yell/whisper], length-prefixed (not null-terminated)
// text, then a trailing chat tag byte. isGM additionally expects a leading
// GM-name C-string before the standard fields.
func ParseMessageChat(payload []byte, isGM bool) (*MessageChat, error) {
	c := codec.NewCursor(payload)

	var gmName string
	if isGM {
		name, err := c.CString(64)
		if err != nil {
			return nil, err
		}
		gmName = name
	}

	chatTypeByte, err := c.Uint8()
	if err != nil {
		return nil, err
	}
	chatType := ChatType(chatTypeByte)

	languageRaw, err := c.Uint32LE()
	if err != nil {
		return nil, err
	}
	language := Language(languageRaw)
	if language == LangAddon {
		return nil, apperr.New(apperr.KindProtocol, "addon chat message, not bridgeable", nil)
	}

	var channelName string
	if chatType == ChatChannel {
		name, err := c.CString(64)
		if err != nil {
			return nil, err
		}
		channelName = name
		// unknown 4-byte field (player flags in some server forks)
		if err := c.Skip(4); err != nil {
			return nil, err
		}
	}

	senderGUID, err := c.Uint64LE()
	if err != nil {
		return nil, err
	}

	var targetGUID uint64
	switch chatType {
	case ChatSay, ChatYell:
		if c.Remaining() >= 8 {
			targetGUID, err = c.Uint64LE()
			if err != nil {
				return nil, err
			}
		}
	}

	textLen, err := c.Uint32LE()
	if err != nil {
		return nil, err
	}
	msgLen := 0
	if textLen > 0 {
		msgLen = int(textLen) - 1
	}
	textBytes, err := c.Bytes(msgLen)
	if err != nil {
		return nil, err
	}
	text := string(textBytes)

	// skip the null terminator the length included
	if c.Remaining() > 0 {
		_, _ = c.Uint8()
	}

	var chatTag uint8
	if c.Remaining() > 0 {
		chatTag, _ = c.Uint8()
	}

	return &MessageChat{
		ChatType:    chatType,
		Language:    language,
		SenderGUID:  senderGUID,
		GMName:      gmName,
		ChannelName: channelName,
		TargetGUID:  targetGUID,
		Text:        text,
		ChatTag:     chatTag,
	}, nil
}

// BuildSendChatMessage encodes a CMSG_MESSAGECHAT payload — the exact
// inverse of ParseMessageChat's field order for the outbound types the
// bridge actually sends (guild, officer, say, yell, whisper, channel).
func BuildSendChatMessage(chatType ChatType, language Language, target, text string) []byte {
	w := codec.NewWriter()
	w.Uint32LE(uint32(chatType))
	w.Uint32LE(uint32(language))
	if target != "" {
		w.CString(target)
	}
	w.CString(text)
	return w.Bytes()
}

// ChannelNotify is a parsed SMSG_CHANNEL_NOTIFY payload.
type ChannelNotify struct {
	NotifyType  uint8
	ChannelName string
}

const (
	ChatNotifyJoined        uint8 = 0x00
	ChatNotifyLeft          uint8 = 0x01
	ChatNotifyWrongPassword uint8 = 0x02
	ChatNotifyMuted         uint8 = 0x03
	ChatNotifyBanned        uint8 = 0x06
	ChatNotifyWrongFaction  uint8 = 0x08
	ChatNotifyInvalidName   uint8 = 0x09
	ChatNotifyThrottled     uint8 = 0x0E
)

// ParseChannelNotify decodes SMSG_CHANNEL_NOTIFY: notify_type byte then a
// channel-name C-string.
func ParseChannelNotify(payload []byte) (*ChannelNotify, error) {
	c := codec.NewCursor(payload)
	notifyType, err := c.Uint8()
	if err != nil {
		return nil, err
	}
	name, err := c.CString(64)
	if err != nil {
		return nil, err
	}
	return &ChannelNotify{NotifyType: notifyType, ChannelName: name}, nil
}

// Description renders a human-readable channel notification, matching the
// original implementation's exact wording for the cases it handles.
func (n *ChannelNotify) Description() string {
	switch n.NotifyType {
	case ChatNotifyJoined:
		return "Joined channel: [" + n.ChannelName + "]"
	case ChatNotifyLeft:
		return "Left channel: [" + n.ChannelName + "]"
	case ChatNotifyWrongPassword:
		return "Wrong password for channel: " + n.ChannelName
	case ChatNotifyMuted:
		return "[" + n.ChannelName + "] You do not have permission to speak"
	case ChatNotifyBanned:
		return "[" + n.ChannelName + "] You are banned from that channel"
	case ChatNotifyWrongFaction:
		return "Wrong faction for channel: " + n.ChannelName
	case ChatNotifyInvalidName:
		return "Invalid channel name"
	case ChatNotifyThrottled:
		return "[" + n.ChannelName + "] Message rate limited, please wait"
	default:
		return "Channel notification for " + n.ChannelName
	}
}

// NameQueryResponse is a parsed SMSG_NAME_QUERY_RESPONSE payload.
type NameQueryResponse struct {
	GUID      uint64
	Name      string
	RealmName string
	Race      uint32
	Gender    uint32
	Class     uint32
}

// ParseNameQueryResponse decodes SMSG_NAME_QUERY_RESPONSE.
func ParseNameQueryResponse(payload []byte) (*NameQueryResponse, error) {
	c := codec.NewCursor(payload)
	guid, err := c.Uint64LE()
	if err != nil {
		return nil, err
	}
	name, err := c.CString(64)
	if err != nil {
		return nil, err
	}
	realmName, err := c.CString(64)
	if err != nil {
		return nil, err
	}
	race, err := c.Uint32LE()
	if err != nil {
		return nil, err
	}
	gender, err := c.Uint32LE()
	if err != nil {
		return nil, err
	}
	class, err := c.Uint32LE()
	if err != nil {
		return nil, err
	}
	return &NameQueryResponse{GUID: guid, Name: name, RealmName: realmName, Race: race, Gender: gender, Class: class}, nil
}

// BuildNameQuery encodes CMSG_NAME_QUERY: just the target GUID.
func BuildNameQuery(guid uint64) []byte {
	return codec.NewWriter().Uint64LE(guid).Bytes()
}
