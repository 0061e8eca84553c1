// Package game implements the WotLK 3.3.5a game-server protocol: the
// connection phase machine, opcode dispatch, chat/guild/character-list
// packet parsing, and the periodic keepalive/ping/roster-refresh work a
// logged-in session performs. Grounded on protocol/game/{handler,chat,
// packets,guild,connector}.rs.
package game

import "fmt"

// Opcode identifies a game packet. Named by its original SMSG_/CMSG_
// identifier with the prefix dropped, since direction is unambiguous from
// where the constant is used (inbound dispatch table vs. outbound builder).
type Opcode uint16

const (
	OpPing               Opcode = 0x01DC
	OpPong               Opcode = 0x01DD
	OpAuthChallenge      Opcode = 0x01EC
	OpAuthSession        Opcode = 0x01ED
	OpAuthResponse       Opcode = 0x01EE
	OpCharEnumRequest    Opcode = 0x0037
	OpCharEnum           Opcode = 0x003B
	OpPlayerLogin        Opcode = 0x003D
	OpLoginVerifyWorld   Opcode = 0x0236
	OpLogoutRequest      Opcode = 0x004A
	OpLogoutComplete     Opcode = 0x004D
	OpNameQueryRequest   Opcode = 0x0050
	OpNameQueryResponse  Opcode = 0x0051
	OpMessageChatSend    Opcode = 0x0095
	OpMessageChat        Opcode = 0x0096
	OpJoinChannel        Opcode = 0x0097
	OpLeaveChannel       Opcode = 0x0098
	OpChannelNotify      Opcode = 0x0099
	OpGuildQueryRequest  Opcode = 0x0054
	OpGuildQuery         Opcode = 0x0055
	OpMOTD               Opcode = 0x0061
	OpGuildRosterRequest Opcode = 0x0081
	OpGuildRoster        Opcode = 0x0082
	OpGuildEvent         Opcode = 0x0092
	OpUpdateObject       Opcode = 0x00A9
	OpChatPlayerNotFound Opcode = 0x02A9
	OpNotification       Opcode = 0x01CB
	OpServerMessage      Opcode = 0x0291
	OpInitWorldStates    Opcode = 0x02C2
	OpInvalidatePlayer   Opcode = 0x031D
	OpGMMessageChat      Opcode = 0x03B7
	OpKeepAlive          Opcode = 0x0406
	OpTimeSyncReq        Opcode = 0x0390
	OpTimeSyncResp       Opcode = 0x0391
)

var opcodeName = map[Opcode]string{
	OpPing:               "CMSG_PING",
	OpPong:                "SMSG_PONG",
	OpAuthChallenge:       "SMSG_AUTH_CHALLENGE",
	OpAuthSession:         "CMSG_AUTH_SESSION",
	OpAuthResponse:        "SMSG_AUTH_RESPONSE",
	OpCharEnumRequest:     "CMSG_CHAR_ENUM",
	OpCharEnum:            "SMSG_CHAR_ENUM",
	OpPlayerLogin:         "CMSG_PLAYER_LOGIN",
	OpLoginVerifyWorld:    "SMSG_LOGIN_VERIFY_WORLD",
	OpLogoutRequest:       "CMSG_LOGOUT_REQUEST",
	OpLogoutComplete:      "SMSG_LOGOUT_COMPLETE",
	OpNameQueryRequest:    "CMSG_NAME_QUERY",
	OpNameQueryResponse:   "SMSG_NAME_QUERY_RESPONSE",
	OpMessageChatSend:     "CMSG_MESSAGECHAT",
	OpMessageChat:         "SMSG_MESSAGECHAT",
	OpJoinChannel:         "CMSG_JOIN_CHANNEL",
	OpLeaveChannel:        "CMSG_LEAVE_CHANNEL",
	OpChannelNotify:       "SMSG_CHANNEL_NOTIFY",
	OpGuildQueryRequest:   "CMSG_GUILD_QUERY",
	OpGuildQuery:          "SMSG_GUILD_QUERY_RESPONSE",
	OpMOTD:                "SMSG_MOTD",
	OpGuildRosterRequest:  "CMSG_GUILD_ROSTER",
	OpGuildRoster:         "SMSG_GUILD_ROSTER",
	OpGuildEvent:          "SMSG_GUILD_EVENT",
	OpUpdateObject:        "SMSG_UPDATE_OBJECT",
	OpChatPlayerNotFound:  "SMSG_CHAT_PLAYER_NOT_FOUND",
	OpNotification:        "SMSG_NOTIFICATION",
	OpServerMessage:       "SMSG_SERVER_MESSAGE",
	OpInitWorldStates:     "SMSG_INIT_WORLD_STATES",
	OpInvalidatePlayer:    "SMSG_INVALIDATE_PLAYER",
	OpGMMessageChat:       "SMSG_GM_MESSAGECHAT",
	OpKeepAlive:           "CMSG_KEEP_ALIVE",
	OpTimeSyncReq:         "SMSG_TIME_SYNC_REQ",
	OpTimeSyncResp:        "CMSG_TIME_SYNC_RESP",
}

// String renders the opcode's protocol name for logging, falling back to
// its hex value for anything outside the table this bridge cares about.
func (o Opcode) String() string {
	if name, ok := opcodeName[o]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", uint16(o))
}
