package realm

import (
	"context"
	"crypto/rand"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"

	"github.com/tinyland-inc/innkeeper/internal/apperr"
)

// fakeRealmServer plays the server side of the six-step handshake well
// enough to exercise the client's happy path and its wrong-password
// rejection, without needing a real Ascension realm server (spec §8
// scenarios 1 and 2). Returns an error instead of failing t directly: it
// runs on its own goroutine, and only the goroutine running the test may
// call t.Fatal/require.
func fakeRealmServer(conn net.Conn, wantAuthFail AuthResult, realms []Realm) error {
	// Step 1: read AUTH_LOGON_CHALLENGE (opcode + magic, locale, os, client
	// pubkey, account name).
	header := make([]byte, 1+4)
	if _, err := io.ReadFull(conn, header); err != nil {
		return err
	}
	if _, _, err := readChallengeStrings(conn); err != nil {
		return err
	}
	clientPub := make([]byte, 32)
	if _, err := io.ReadFull(conn, clientPub); err != nil {
		return err
	}
	if _, err := readNullTerminated(conn, 64); err != nil { // account name
		return err
	}

	serverPriv := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, serverPriv); err != nil {
		return err
	}
	serverPub, err := curve25519.X25519(serverPriv, curve25519.Basepoint)
	if err != nil {
		return err
	}

	nonce := make([]byte, 12)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return err
	}

	// Step 2: server challenge reply.
	reply := []byte{cmdAuthLogonChallenge, byte(AuthSuccess)}
	reply = append(reply, serverPub...)
	reply = append(reply, nonce...)
	reply = append(reply, 0) // security flag
	if _, err := conn.Write(reply); err != nil {
		return err
	}

	if wantAuthFail != AuthSuccess {
		// Client sent its logon proof; reply with the failure code and stop.
		if _, _, err := drainLogonProof(conn); err != nil {
			return err
		}
		_, err := conn.Write([]byte{cmdAuthLogonProof, byte(wantAuthFail)})
		return err
	}

	sharedSecret, err := curve25519.X25519(serverPriv, clientPub)
	if err != nil {
		return err
	}
	derivedKey := hmacSHA256(sharedSecret, append(append([]byte{}, nonce...), []byte(contextLabel)...))

	ciphertext, tag, err := drainLogonProof(conn)
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.New(derivedKey)
	if err != nil {
		return err
	}
	sealed := append(append([]byte{}, ciphertext...), tag...)
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return err
	}
	for i := range plain {
		plain[i] ^= xorMask
	}

	transcript := append(append(append([]byte{}, clientPub...), serverPub...), nonce...)
	proof2 := hmacSHA256(derivedKey, transcript)

	proofReply := append([]byte{cmdAuthLogonProof, byte(AuthSuccess)}, proof2...)
	if _, err := conn.Write(proofReply); err != nil {
		return err
	}

	// Step 6: realm list.
	reqHeader := make([]byte, 1+4)
	if _, err := io.ReadFull(conn, reqHeader); err != nil {
		return err
	}

	out := []byte{cmdRealmList}
	count := []byte{byte(len(realms)), byte(len(realms) >> 8)}
	out = append(out, count...)
	for _, r := range realms {
		out = append(out, 0, 0, r.Flags)
		out = append(out, []byte(r.Name)...)
		out = append(out, 0)
		out = append(out, []byte(r.Address)...)
		out = append(out, 0)
		out = append(out, 0, 0, 0, 0) // population float
		out = append(out, 0, 0, r.ID)
	}
	_, err = conn.Write(out)
	return err
}

func drainLogonProof(conn net.Conn) (ciphertext, tag []byte, err error) {
	header := make([]byte, 1+4+32+4)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, nil, err
	}
	ctLen := int(header[1+4+32]) | int(header[1+4+32+1])<<8 | int(header[1+4+32+2])<<16 | int(header[1+4+32+3])<<24
	ciphertext = make([]byte, ctLen)
	if _, err := io.ReadFull(conn, ciphertext); err != nil {
		return nil, nil, err
	}
	tag = make([]byte, 16)
	if _, err := io.ReadFull(conn, tag); err != nil {
		return nil, nil, err
	}
	tail := make([]byte, 32+20+20)
	if _, err := io.ReadFull(conn, tail); err != nil {
		return nil, nil, err
	}
	return ciphertext, tag, nil
}

func readChallengeStrings(conn net.Conn) (locale, os string, err error) {
	locale, err = readNullTerminated(conn, 16)
	if err != nil {
		return "", "", err
	}
	os, err = readNullTerminated(conn, 16)
	return locale, os, err
}

func readNullTerminated(conn net.Conn, maxLen int) (string, error) {
	buf := make([]byte, 0, maxLen)
	b := make([]byte, 1)
	for i := 0; i < maxLen; i++ {
		if _, err := io.ReadFull(conn, b); err != nil {
			return "", err
		}
		if b[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, b[0])
	}
	return string(buf), nil
}

func TestAuthenticateHappyPath(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	realms := []Realm{
		{ID: 1, Name: "Sargeras", Address: "127.0.0.1:8085", Flags: 0},
		{ID: 2, Name: "Laughing Skull", Address: "127.0.0.1:8086", Flags: 0},
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- fakeRealmServer(serverConn, AuthSuccess, realms)
	}()

	result, err := authenticateOverConn(context.Background(), clientConn, "tester", "hunter2", "Laughing Skull")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8086", result.Realm.Address)
	require.NotEqual(t, [40]byte{}, result.SessionKey)

	require.NoError(t, <-serverErr)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- fakeRealmServer(serverConn, AuthFailIncorrectPassword, nil)
	}()

	_, err := authenticateOverConn(context.Background(), clientConn, "tester", "wrong", "Laughing Skull")
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperr.KindAuthRealm, appErr.Kind)
	require.Equal(t, "IncorrectPassword", appErr.Fields["code"])

	require.NoError(t, <-serverErr)
}

// authenticateOverConn factors the handshake out of Authenticate so tests
// can drive it over a net.Pipe instead of a real dialed TCP connection.
func authenticateOverConn(ctx context.Context, conn net.Conn, account, password, realmName string) (*Result, error) {
	return authenticate(ctx, conn, account, password, realmName)
}
