package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		opcode  uint16
		payload []byte
	}{
		{"empty payload", 0x0390, nil},
		{"small payload", 0x0096, []byte("guild says hello")},
		{"payload near short-header boundary", 0x0082, bytes.Repeat([]byte{0xAB}, 0x7FFD)},
		{"payload requiring long header", 0x0082, bytes.Repeat([]byte{0xCD}, 0x8000)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame := EncodeFrame(tc.opcode, tc.payload)
			pkt, err := ReadPacket(bytes.NewReader(frame))
			require.NoError(t, err)
			assert.Equal(t, tc.opcode, pkt.Opcode)
			assert.Equal(t, tc.payload, pkt.Payload)
		})
	}
}

func TestReadPacketTruncated(t *testing.T) {
	frame := EncodeFrame(0x0051, []byte("abcdef"))
	_, err := ReadPacket(bytes.NewReader(frame[:len(frame)-2]))
	require.Error(t, err)
}

func TestCursorBoundsChecked(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02})
	_, err := c.Uint32LE()
	assert.Error(t, err)

	v, err := c.Uint16LE()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0201), v)
}

func TestCStringUnterminated(t *testing.T) {
	c := NewCursor([]byte("no-nul-here"))
	_, err := c.CString(64)
	assert.Error(t, err)
}

func TestCStringExceedsMaxLen(t *testing.T) {
	c := NewCursor([]byte("this string is definitely too long for the limit\x00"))
	_, err := c.CString(8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds max length")
}

func TestCStringHappyPath(t *testing.T) {
	c := NewCursor([]byte("Stormwind\x00remaining"))
	s, err := c.CString(64)
	require.NoError(t, err)
	assert.Equal(t, "Stormwind", s)

	rest, err := c.Bytes(9)
	require.NoError(t, err)
	assert.Equal(t, "remaining", string(rest))
}

func TestWriterMatchesCursor(t *testing.T) {
	w := NewWriter()
	w.Uint8(7).Uint16LE(0x1234).Uint32BE(0xAABBCCDD).CString("Durotar")

	c := NewCursor(w.Bytes())
	u8, err := c.Uint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(7), u8)

	u16, err := c.Uint16LE()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	u32, err := c.Uint32BE()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xAABBCCDD), u32)

	s, err := c.CString(32)
	require.NoError(t, err)
	assert.Equal(t, "Durotar", s)
}
