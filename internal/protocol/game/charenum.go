package game

import (
	"crypto/sha1" //nolint:gosec // wire protocol mandates SHA-1, not a choice we get to make
	"strings"

	"github.com/tinyland-inc/innkeeper/internal/apperr"
	"github.com/tinyland-inc/innkeeper/internal/protocol/codec"
)

// ParseAuthChallenge decodes SMSG_AUTH_CHALLENGE: 4 bytes of padding then a
// big-endian server seed (spec §4.3's "Generate a 4-byte client seed... per
// the original's wire layout" note — this packet is the one exception to
// the protocol's little-endian default).
func ParseAuthChallenge(payload []byte) (serverSeed uint32, err error) {
	c := codec.NewCursor(payload)
	if err := c.Skip(4); err != nil {
		return 0, err
	}
	return c.Uint32BE()
}

// BuildAuthSession encodes CMSG_AUTH_SESSION with the mixed-endian layout
// spec §4.3 calls out: login_server_type and client_seed are big-endian,
// every other field little-endian. digest is SHA-1(account || 0x00000000 ||
// client_seed || server_seed || session_key).
func BuildAuthSession(build uint32, account string, clientSeed, serverSeed uint32, sessionKey []byte) []byte {
	digest := authSessionDigest(account, clientSeed, serverSeed, sessionKey)

	w := codec.NewWriter()
	w.Uint16LE(0) // unknown leading field, carried over from the original's wire capture
	w.Uint32LE(build)
	w.Uint32LE(0) // login_server_id
	w.CString(strings.ToUpper(account))
	w.Uint32BE(0) // login_server_type
	w.Uint32BE(clientSeed)
	w.Uint32LE(0) // region_id
	w.Uint32LE(0) // battlegroup_id
	w.Uint32LE(0) // realm_id
	w.Uint64LE(0) // dos_response
	w.Raw(digest[:])
	w.Raw(addonInfo)
	return w.Bytes()
}

func authSessionDigest(account string, clientSeed, serverSeed uint32, sessionKey []byte) [20]byte {
	h := sha1.New() //nolint:gosec
	h.Write([]byte(strings.ToUpper(account)))
	h.Write([]byte{0, 0, 0, 0})
	seedBuf := make([]byte, 4)
	seedBuf[0], seedBuf[1], seedBuf[2], seedBuf[3] = byte(clientSeed), byte(clientSeed>>8), byte(clientSeed>>16), byte(clientSeed>>24)
	h.Write(seedBuf)
	seedBuf[0], seedBuf[1], seedBuf[2], seedBuf[3] = byte(serverSeed), byte(serverSeed>>8), byte(serverSeed>>16), byte(serverSeed>>24)
	h.Write(seedBuf)
	h.Write(sessionKey)
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// AuthResponse is the result of CMSG_AUTH_SESSION, decoded from
// SMSG_AUTH_RESPONSE.
type AuthResponse struct {
	OK     bool
	Result uint8
}

// ParseAuthResponse decodes SMSG_AUTH_RESPONSE: a result byte, 0x0C meaning
// success (with optional billing fields the bridge doesn't need to act on).
func ParseAuthResponse(payload []byte) (*AuthResponse, error) {
	c := codec.NewCursor(payload)
	result, err := c.Uint8()
	if err != nil {
		return nil, err
	}
	return &AuthResponse{OK: result == 0x0C, Result: result}, nil
}

// CharacterInfo is one entry from SMSG_CHAR_ENUM.
type CharacterInfo struct {
	GUID    uint64
	Name    string
	Race    uint8
	Class   uint8
	Gender  uint8
	Level   uint8
	ZoneID  uint32
	MapID   uint32
	GuildID uint32
}

// ParseCharEnum decodes SMSG_CHAR_ENUM: a count byte, then per character a
// fixed header, a name C-string, more fixed fields, then 19 equipment slots
// of 5 bytes each (4-byte display ID + 1-byte inventory type) that the
// bridge skips without interpreting (spec §4.3's AwaitingCharEnum contract).
func ParseCharEnum(payload []byte) ([]CharacterInfo, error) {
	c := codec.NewCursor(payload)
	count, err := c.Uint8()
	if err != nil {
		return nil, err
	}

	characters := make([]CharacterInfo, 0, count)
	for i := uint8(0); i < count; i++ {
		if c.Remaining() < 8 {
			break
		}
		guid, err := c.Uint64LE()
		if err != nil {
			return nil, err
		}
		name, err := c.CString(64)
		if err != nil {
			return nil, err
		}
		race, err := c.Uint8()
		if err != nil {
			return nil, err
		}
		class, err := c.Uint8()
		if err != nil {
			return nil, err
		}
		gender, err := c.Uint8()
		if err != nil {
			return nil, err
		}
		// skin, face, hairStyle, hairColor, facialHair
		if err := c.Skip(5); err != nil {
			return nil, err
		}
		level, err := c.Uint8()
		if err != nil {
			return nil, err
		}
		zoneID, err := c.Uint32LE()
		if err != nil {
			return nil, err
		}
		mapID, err := c.Uint32LE()
		if err != nil {
			return nil, err
		}
		// x, y, z
		if err := c.Skip(12); err != nil {
			return nil, err
		}
		guildID, err := c.Uint32LE()
		if err != nil {
			return nil, err
		}
		// flags, first_login, pet_display_id, pet_level, pet_family
		if err := c.Skip(4 + 1 + 4 + 4 + 4); err != nil {
			return nil, err
		}

		for slot := 0; slot < 19; slot++ {
			if c.Remaining() < 5 {
				break
			}
			if err := c.Skip(5); err != nil {
				return nil, err
			}
		}

		characters = append(characters, CharacterInfo{
			GUID: guid, Name: name, Race: race, Class: class, Gender: gender,
			Level: level, ZoneID: zoneID, MapID: mapID, GuildID: guildID,
		})
	}
	return characters, nil
}

// FindCharacter locates the roster entry matching name case-insensitively,
// returning apperr.KindCharacterMissing when absent (spec §4.3's
// AwaitingCharEnum contract, grounded on the original's behavior of
// treating an absent configured character as fatal).
func FindCharacter(characters []CharacterInfo, name string) (*CharacterInfo, error) {
	for i := range characters {
		if strings.EqualFold(characters[i].Name, name) {
			return &characters[i], nil
		}
	}
	return nil, apperr.New(apperr.KindCharacterMissing, "configured character not found in char enum", map[string]any{"name": name})
}

// BuildPlayerLogin encodes CMSG_PLAYER_LOGIN: the selected character's GUID.
func BuildPlayerLogin(guid uint64) []byte {
	return codec.NewWriter().Uint64LE(guid).Bytes()
}

// LoginVerifyWorld is a parsed SMSG_LOGIN_VERIFY_WORLD payload.
type LoginVerifyWorld struct {
	MapID uint32
	X, Y, Z, O float32
}

// ParseLoginVerifyWorld decodes SMSG_LOGIN_VERIFY_WORLD, which confirms the
// player has entered the world and the client should move to PhaseInWorld.
func ParseLoginVerifyWorld(payload []byte) (*LoginVerifyWorld, error) {
	c := codec.NewCursor(payload)
	mapID, err := c.Uint32LE()
	if err != nil {
		return nil, err
	}
	x, err := readFloat32LE(c)
	if err != nil {
		return nil, err
	}
	y, err := readFloat32LE(c)
	if err != nil {
		return nil, err
	}
	z, err := readFloat32LE(c)
	if err != nil {
		return nil, err
	}
	o, err := readFloat32LE(c)
	if err != nil {
		return nil, err
	}
	return &LoginVerifyWorld{MapID: mapID, X: x, Y: y, Z: z, O: o}, nil
}

func readFloat32LE(c *codec.Cursor) (float32, error) {
	bits, err := c.Uint32LE()
	if err != nil {
		return 0, err
	}
	return bitsToFloat32(bits), nil
}
