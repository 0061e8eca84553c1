package game

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/innkeeper/internal/apperr"
	"github.com/tinyland-inc/innkeeper/internal/bus"
	"github.com/tinyland-inc/innkeeper/internal/protocol/codec"
)

// fakeGameServer plays the server side of the auth-challenge through
// login-verify-world exchange well enough to drive Client.Authenticate to
// PhaseInWorld, without needing a real Ascension world server.
func fakeGameServer(conn net.Conn, characterGUID uint64, characterName string) error {
	challenge := codec.NewWriter().Uint32LE(0).Uint32BE(0xCAFEBABE).Bytes()
	if err := codec.WritePacket(conn, uint16(OpAuthChallenge), challenge); err != nil {
		return err
	}

	pkt, err := codec.ReadPacket(conn)
	if err != nil {
		return err
	}
	if Opcode(pkt.Opcode) != OpAuthSession {
		return io.ErrUnexpectedEOF
	}
	if err := codec.WritePacket(conn, uint16(OpAuthResponse), []byte{0x0C}); err != nil {
		return err
	}

	if _, err := codec.ReadPacket(conn); err != nil { // CHAR_ENUM_REQUEST
		return err
	}
	charPayload := codec.NewWriter().Uint8(1).Bytes()
	charPayload = append(charPayload, buildCharEnumEntry(characterGUID, characterName, 1, 1, 80, 1519, 0, 0)...)
	if err := codec.WritePacket(conn, uint16(OpCharEnum), charPayload); err != nil {
		return err
	}

	if _, err := codec.ReadPacket(conn); err != nil { // PLAYER_LOGIN
		return err
	}
	verify := codec.NewWriter().Uint32LE(0).Uint32LE(0).Uint32LE(0).Uint32LE(0).Uint32LE(0).Bytes()
	return codec.WritePacket(conn, uint16(OpLoginVerifyWorld), verify)
}

func TestAuthenticateReachesInWorld(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	serverErr := make(chan error, 1)
	go func() { serverErr <- fakeGameServer(serverConn, 0x1, "Arthas") }()

	c := NewClient(clientConn, bus.New(), Config{
		Build:         12340,
		Account:       "tester",
		CharacterName: "Arthas",
		SessionKey:    []byte{1, 2, 3, 4},
	})

	err := c.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseInWorld, c.Phase())
	assert.Equal(t, uint64(0x1), c.playerGUID)

	require.NoError(t, <-serverErr)
}

func TestAuthenticateSeedsNameCacheFromCharEnum(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	serverErr := make(chan error, 1)
	go func() { serverErr <- fakeGameServer(serverConn, 0x1, "Arthas") }()

	c := NewClient(clientConn, bus.New(), Config{
		Build:         12340,
		Account:       "tester",
		CharacterName: "Arthas",
		SessionKey:    []byte{1, 2, 3, 4},
	})

	require.NoError(t, c.Authenticate(context.Background()))
	name, ok := c.nameCache.Lookup(0x1)
	assert.True(t, ok, "CHAR_ENUM should seed the name cache for every listed character")
	assert.Equal(t, "Arthas", name)

	require.NoError(t, <-serverErr)
}

// fakeGameServerAuthFails plays only the auth-challenge exchange, then
// rejects the session with the given result byte.
func fakeGameServerAuthFails(conn net.Conn, result byte) error {
	challenge := codec.NewWriter().Uint32LE(0).Uint32BE(0xCAFEBABE).Bytes()
	if err := codec.WritePacket(conn, uint16(OpAuthChallenge), challenge); err != nil {
		return err
	}
	if _, err := codec.ReadPacket(conn); err != nil {
		return err
	}
	return codec.WritePacket(conn, uint16(OpAuthResponse), []byte{result})
}

func TestAuthenticateSurfacesActualResultCodeOnFailure(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	serverErr := make(chan error, 1)
	go func() { serverErr <- fakeGameServerAuthFails(serverConn, 0x03) }() // AuthFailBanned

	c := NewClient(clientConn, bus.New(), Config{
		Build:         12340,
		Account:       "tester",
		CharacterName: "Arthas",
		SessionKey:    []byte{1, 2, 3, 4},
	})

	err := c.Authenticate(context.Background())
	require.Error(t, err)
	appErr, ok := err.(*apperr.Error)
	require.True(t, ok)
	assert.Equal(t, "Banned", appErr.Fields["code"])

	require.NoError(t, <-serverErr)
}

func TestAuthenticateUnknownCharacterFails(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	serverErr := make(chan error, 1)
	go func() { serverErr <- fakeGameServer(serverConn, 0x1, "Arthas") }()

	c := NewClient(clientConn, bus.New(), Config{
		Build:         12340,
		Account:       "tester",
		CharacterName: "Jaina",
		SessionKey:    []byte{1, 2, 3, 4},
	})

	err := c.Authenticate(context.Background())
	assert.Error(t, err)
}

func TestDispatchTimeSyncReqEchoesInboundCounter(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	c := NewClient(clientConn, bus.New(), Config{})

	req := codec.NewWriter().Uint32LE(0x1234).Bytes()
	go func() {
		_ = c.dispatch(context.Background(), &codec.Packet{Opcode: uint16(OpTimeSyncReq), Payload: req})
	}()

	pkt, err := codec.ReadPacket(serverConn)
	require.NoError(t, err)
	assert.Equal(t, uint16(OpTimeSyncResp), pkt.Opcode)

	cur := codec.NewCursor(pkt.Payload)
	counter, err := cur.Uint32LE()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1234), counter, "TIME_SYNC_RESP must echo the request's counter, not wall-clock time")
}

func TestHandleChatEmitsImmediatelyWhenNameCached(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	b := bus.New()
	c := NewClient(clientConn, b, Config{})
	c.nameCache.Upsert(0xAAAA, "Jaina")

	payload := buildMessageChatPayload(ChatSay, LangCommon, 0xAAAA, "hello world")
	require.NoError(t, c.handleChat(context.Background(), payload, false))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := b.ConsumeWowChat(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jaina", ev.SenderName)
	assert.Equal(t, "hello world", ev.Text)
}

func TestHandleChatBuffersAndDrainsOnNameResolution(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	b := bus.New()
	c := NewClient(clientConn, b, Config{})

	payload := buildMessageChatPayload(ChatSay, LangCommon, 0xBBBB, "anyone seen the raid")

	done := make(chan error, 1)
	go func() { done <- c.handleChat(context.Background(), payload, false) }()

	nameQueryPkt, err := codec.ReadPacket(serverConn)
	require.NoError(t, err)
	assert.Equal(t, uint16(OpNameQueryRequest), nameQueryPkt.Opcode)
	require.NoError(t, <-done)

	respPayload := codec.NewWriter().Uint64LE(0xBBBB).CString("Sylvanas").CString("").Uint32LE(5).Uint32LE(0).Uint32LE(4).Bytes()
	require.NoError(t, c.handleNameQueryResponse(context.Background(), respPayload))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := b.ConsumeWowChat(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sylvanas", ev.SenderName)
	assert.Equal(t, "anyone seen the raid", ev.Text)
}

func TestHandleGuildRosterEmitsTransitions(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	b := bus.New()
	c := NewClient(clientConn, b, Config{})

	c.handleGuildRoster(context.Background(), &GuildRoster{
		Members: []GuildRosterMember{{GUID: 1, Online: true, Name: "Arthas"}},
	})
	c.handleGuildRoster(context.Background(), &GuildRoster{
		Members: []GuildRosterMember{{GUID: 1, Online: false, Name: "Arthas"}},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := b.ConsumeGuildEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "offline", ev.Kind)
	assert.Equal(t, "Arthas", ev.ActorName)
}

func TestHandleGuildEventFormatsAndPublishes(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	b := bus.New()
	c := NewClient(clientConn, b, Config{})

	payload := codec.NewWriter().Uint8(uint8(GEJoined)).Uint8(1).CString("Jaina").Bytes()
	require.NoError(t, c.handleGuildEvent(context.Background(), payload))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := b.ConsumeGuildEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "joined", ev.Kind)
	assert.Equal(t, "Jaina has joined the guild", ev.Text)
}
