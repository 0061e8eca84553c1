// Package realm implements Ascension's replacement for SRP-6 realm
// authentication: an X25519 key exchange, HMAC-SHA256 key derivation, and
// ChaCha20-Poly1305 AEAD in place of the stock WotLK logon handshake.
// Grounded on protocol/realm/handler.rs for the wire constants (header
// magic, XOR mask) and protocol/realm/packets.rs for the AuthResult code
// table; the exchange itself follows spec §4.2's real-DH redesign rather
// than the original's hardcoded-constant shortcut (see DESIGN.md).
package realm

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"

	"github.com/tinyland-inc/innkeeper/internal/apperr"
	"github.com/tinyland-inc/innkeeper/internal/protocol/codec"
)

const (
	cmdAuthLogonChallenge byte = 0x00
	cmdAuthLogonProof     byte = 0x01
	cmdRealmList          byte = 0x10

	headerMagic uint32 = 0xE6F4F4FC
	xorMask     byte   = 0xED

	contextLabel = "innkeeper-ascension-logon-proof-v1"

	maxRealmName = 64
	maxRealmAddr = 64

	dialTimeout = 10 * time.Second
	stepTimeout = 10 * time.Second
)

// Realm describes one entry from the REALM_LIST reply.
type Realm struct {
	ID      uint8
	Name    string
	Address string
	Flags   uint8
}

// HostPort splits Address into host/port, defaulting to 8085 (the
// Ascension game-server port) if no port is present.
func (r Realm) HostPort() (string, uint16) {
	host, portStr, ok := strings.Cut(r.Address, ":")
	if !ok {
		return r.Address, 8085
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 8085
	}
	return host, uint16(port)
}

// Result is what a successful handshake hands to the game client.
type Result struct {
	SessionKey [40]byte
	Realm      Realm
}

// Authenticate performs the full six-step handshake over a fresh TCP
// connection to realmlist, returning the session key and chosen realm's
// address. The connection is closed before returning in every case.
func Authenticate(ctx context.Context, realmlistAddr, account, password, realmName string) (*Result, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", realmlistAddr)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "dial realmlist", err)
	}
	defer conn.Close()

	return authenticate(ctx, conn, account, password, realmName)
}

// authenticate runs the six-step handshake over an already-established
// connection. Split out from Authenticate so tests can drive it over a
// net.Pipe instead of a real TCP dial.
func authenticate(ctx context.Context, conn net.Conn, account, password, realmName string) (*Result, error) {
	clientPriv := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, clientPriv); err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "generate client key", err)
	}
	clientPub, err := curve25519.X25519(clientPriv, curve25519.Basepoint)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "derive client public key", err)
	}

	if err := sendLogonChallenge(conn, account, clientPub); err != nil {
		return nil, err
	}

	serverPub, challengeNonce, err := readServerChallenge(conn)
	if err != nil {
		return nil, err
	}

	sharedSecret, err := curve25519.X25519(clientPriv, serverPub)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "compute shared secret", err)
	}

	derivedKey := hmacSHA256(sharedSecret, append(append([]byte{}, challengeNonce...), []byte(contextLabel)...))
	sessionKey := expandKey(derivedKey, []byte("innkeeper-session-key-v1"), 40)

	ciphertext, tag, err := encryptPassword(derivedKey, challengeNonce, password)
	if err != nil {
		return nil, err
	}

	if err := sendLogonProof(conn, clientPub, ciphertext, tag); err != nil {
		return nil, err
	}

	if err := readServerProof(conn, derivedKey, clientPub, serverPub, challengeNonce); err != nil {
		return nil, err
	}

	realm, err := requestRealmList(conn, realmName)
	if err != nil {
		return nil, err
	}

	var result Result
	copy(result.SessionKey[:], sessionKey)
	result.Realm = *realm
	return &result, nil
}

func sendLogonChallenge(conn net.Conn, account string, clientPub []byte) error {
	w := codec.NewWriter()
	w.Uint8(cmdAuthLogonChallenge)
	w.Uint32LE(headerMagic)
	w.CString("enUS")
	w.CString("Win")
	w.Raw(clientPub)
	w.CString(strings.ToUpper(account))

	if _, err := conn.Write(w.Bytes()); err != nil {
		return apperr.Wrap(apperr.KindNetwork, "send AUTH_LOGON_CHALLENGE", err)
	}
	return nil
}

func readServerChallenge(conn net.Conn) (serverPub, nonce []byte, err error) {
	buf := make([]byte, 1+1+32+12+1)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindNetwork, "read server challenge", err)
	}
	c := codec.NewCursor(buf)
	opcode, _ := c.Uint8()
	if opcode != cmdAuthLogonChallenge {
		return nil, nil, apperr.New(apperr.KindProtocol, fmt.Sprintf("unexpected opcode in logon challenge reply: 0x%02X", opcode), nil)
	}
	statusByte, _ := c.Uint8()
	status := AuthResult(statusByte)
	if !status.IsSuccess() {
		return nil, nil, authError(status)
	}
	pub, _ := c.Bytes(32)
	nonceBytes, _ := c.Bytes(12)
	securityFlag, _ := c.Uint8()
	if securityFlag != 0 {
		return nil, nil, apperr.New(apperr.KindAuthRealm, "two-factor authentication required", map[string]any{"code": "TwoFactorRequired"})
	}
	return append([]byte{}, pub...), append([]byte{}, nonceBytes...), nil
}

func encryptPassword(derivedKey, nonce []byte, password string) (ciphertext, tag []byte, err error) {
	masked := make([]byte, len(password))
	for i := 0; i < len(password); i++ {
		masked[i] = password[i] ^ xorMask
	}

	aead, err := chacha20poly1305.New(derivedKey)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindAuthRealm, "init password cipher", err)
	}
	sealed := aead.Seal(nil, nonce, masked, nil)
	ciphertext = sealed[:len(sealed)-aead.Overhead()]
	tag = sealed[len(sealed)-aead.Overhead():]
	return ciphertext, tag, nil
}

func sendLogonProof(conn net.Conn, clientPub, ciphertext, tag []byte) error {
	w := codec.NewWriter()
	w.Uint8(cmdAuthLogonProof)
	w.Uint32LE(headerMagic)
	w.Raw(clientPub)
	w.Uint32LE(uint32(len(ciphertext)))
	w.Raw(ciphertext)
	w.Raw(tag)
	w.Raw(make([]byte, 32+20+20)) // SRP-shaped trailing zero fields (A, M1, CRC)

	if _, err := conn.Write(w.Bytes()); err != nil {
		return apperr.Wrap(apperr.KindNetwork, "send AUTH_LOGON_PROOF", err)
	}
	return nil
}

func readServerProof(conn net.Conn, derivedKey, clientPub, serverPub, nonce []byte) error {
	head := make([]byte, 1+1)
	if _, err := io.ReadFull(conn, head); err != nil {
		return apperr.Wrap(apperr.KindNetwork, "read server proof header", err)
	}
	if head[0] != cmdAuthLogonProof {
		return apperr.New(apperr.KindProtocol, fmt.Sprintf("unexpected opcode in logon proof reply: 0x%02X", head[0]), nil)
	}
	status := AuthResult(head[1])
	if !status.IsSuccess() {
		return authError(status)
	}

	proof2 := make([]byte, 32)
	if _, err := io.ReadFull(conn, proof2); err != nil {
		return apperr.Wrap(apperr.KindNetwork, "read server proof body", err)
	}

	transcript := append(append(append([]byte{}, clientPub...), serverPub...), nonce...)
	expected := hmacSHA256(derivedKey, transcript)
	if !hmac.Equal(proof2, expected) {
		return apperr.New(apperr.KindAuthRealm, "server proof mismatch", map[string]any{"code": "InvalidServerProof"})
	}
	return nil
}

func requestRealmList(conn net.Conn, realmName string) (*Realm, error) {
	w := codec.NewWriter()
	w.Uint8(cmdRealmList)
	w.Raw(make([]byte, 4))
	if _, err := conn.Write(w.Bytes()); err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "send REALM_LIST", err)
	}

	opcodeBuf := make([]byte, 1)
	if _, err := io.ReadFull(conn, opcodeBuf); err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "read realm list opcode", err)
	}
	if opcodeBuf[0] != cmdRealmList {
		return nil, apperr.New(apperr.KindProtocol, fmt.Sprintf("unexpected opcode in realm list reply: 0x%02X", opcodeBuf[0]), nil)
	}

	countBuf := make([]byte, 2)
	if _, err := io.ReadFull(conn, countBuf); err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "read realm count", err)
	}
	count := int(countBuf[0]) | int(countBuf[1])<<8

	var realms []Realm
	for i := 0; i < count; i++ {
		entryHeader := make([]byte, 3)
		if _, err := io.ReadFull(conn, entryHeader); err != nil {
			return nil, apperr.Wrap(apperr.KindNetwork, "read realm entry header", err)
		}
		flags := entryHeader[2]

		name, err := readRealmCString(conn, maxRealmName)
		if err != nil {
			return nil, err
		}
		address, err := readRealmCString(conn, maxRealmAddr)
		if err != nil {
			return nil, err
		}

		rest := make([]byte, 4+1+1+1)
		if _, err := io.ReadFull(conn, rest); err != nil {
			return nil, apperr.Wrap(apperr.KindNetwork, "read realm entry tail", err)
		}
		id := rest[6]

		if flags&0x04 != 0 {
			buildInfo := make([]byte, 5)
			if _, err := io.ReadFull(conn, buildInfo); err != nil {
				return nil, apperr.Wrap(apperr.KindNetwork, "read realm build info", err)
			}
		}

		realms = append(realms, Realm{ID: id, Name: name, Address: address, Flags: flags})
	}

	for _, r := range realms {
		if strings.EqualFold(r.Name, realmName) {
			return &r, nil
		}
	}
	return nil, apperr.New(apperr.KindAuthRealm, fmt.Sprintf("realm %q not found in realm list", realmName), map[string]any{"code": "RealmNotFound"})
}

func readRealmCString(conn net.Conn, maxLen int) (string, error) {
	var sb strings.Builder
	b := make([]byte, 1)
	for i := 0; i < maxLen; i++ {
		if _, err := io.ReadFull(conn, b); err != nil {
			return "", apperr.Wrap(apperr.KindNetwork, "read realm c string", err)
		}
		if b[0] == 0 {
			return sb.String(), nil
		}
		sb.WriteByte(b[0])
	}
	return "", apperr.New(apperr.KindMalformedPacket, fmt.Sprintf("c string exceeds max length of %d bytes", maxLen), nil)
}

func authError(status AuthResult) error {
	return apperr.New(apperr.KindAuthRealm, status.Message(), map[string]any{"code": status.Code()})
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// expandKey stretches a 32-byte derived key to size bytes by concatenating
// HMAC(key, label||0x01), HMAC(key, label||0x02), ... and truncating, the
// same counter-block idea used by the original's
// derive_key but with a caller-supplied label instead of hardcoded
// constants.
func expandKey(key, label []byte, size int) []byte {
	out := make([]byte, 0, size)
	var counter byte = 1
	for len(out) < size {
		block := hmacSHA256(key, append(append([]byte{}, label...), counter))
		out = append(out, block...)
		counter++
	}
	return out[:size]
}
