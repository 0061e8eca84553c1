// Package codec implements Ascension's game-server packet framing: a
// variable-width big-endian size prefix, a little-endian opcode, and a
// payload, plus a bounds-checked cursor for decoding individual fields out
// of that payload. Every read is guarded so a truncated or hostile packet
// produces an apperr.Error instead of a panic, the Go analogue of the
// original's Result-returning byte cursor.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/tinyland-inc/innkeeper/internal/apperr"
)

// Packet is an opcode plus its raw, still-undecoded payload.
type Packet struct {
	Opcode  uint16
	Payload []byte
}

// EncodeFrame serializes opcode+payload into an outbound game frame.
// Payloads whose (len+2) fits in 15 bits use the short 2-byte size header;
// larger payloads use the high-bit-tagged 3-byte header.
func EncodeFrame(opcode uint16, payload []byte) []byte {
	size := len(payload) + 2
	var header []byte
	if size <= 0x7FFF {
		header = make([]byte, 2)
		binary.BigEndian.PutUint16(header, uint16(size))
	} else {
		header = make([]byte, 3)
		header[0] = byte(size>>16) | 0x80
		header[1] = byte(size >> 8)
		header[2] = byte(size)
	}

	out := make([]byte, 0, len(header)+2+len(payload))
	out = append(out, header...)
	opcodeBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(opcodeBytes, opcode)
	out = append(out, opcodeBytes...)
	out = append(out, payload...)
	return out
}

// ReadFrameHeader decodes the size+opcode header from the front of a game
// stream, given the first byte and a function to read additional bytes.
// Kept separate from a full Decoder so callers reading off a net.Conn can
// peek the first byte before deciding how many more header bytes to read.
func ReadFrameHeader(first byte, readMore func(n int) ([]byte, error)) (size int, opcode uint16, err error) {
	if first&0x80 != 0 {
		rest, err := readMore(2)
		if err != nil {
			return 0, 0, apperr.Wrap(apperr.KindNetwork, "read 3-byte frame size", err)
		}
		size = int(first&0x7F)<<16 | int(rest[0])<<8 | int(rest[1])
	} else {
		rest, err := readMore(1)
		if err != nil {
			return 0, 0, apperr.Wrap(apperr.KindNetwork, "read 2-byte frame size", err)
		}
		size = int(first)<<8 | int(rest[0])
	}
	if size < 2 {
		return 0, 0, apperr.New(apperr.KindMalformedPacket, "frame size smaller than opcode width", map[string]any{"size": size})
	}
	opcodeBytes, err := readMore(2)
	if err != nil {
		return 0, 0, apperr.Wrap(apperr.KindNetwork, "read frame opcode", err)
	}
	opcode = binary.LittleEndian.Uint16(opcodeBytes)
	return size, opcode, nil
}

// Cursor is a bounds-checked reader over a packet payload. Every method
// returns apperr.KindMalformedPacket on a short read instead of panicking,
// matching the original's all-reads-are-Result discipline.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor wraps a payload for sequential decoding.
func NewCursor(payload []byte) *Cursor {
	return &Cursor{buf: payload}
}

// Remaining reports how many bytes are left to read.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

func (c *Cursor) require(n int) error {
	if c.Remaining() < n {
		return apperr.New(apperr.KindMalformedPacket, "read past end of packet", map[string]any{
			"offset": c.pos, "want": n, "have": c.Remaining(),
		})
	}
	return nil
}

func (c *Cursor) Uint8() (uint8, error) {
	if err := c.require(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *Cursor) Uint16LE() (uint16, error) {
	if err := c.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *Cursor) Uint16BE() (uint16, error) {
	if err := c.require(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *Cursor) Uint32LE() (uint32, error) {
	if err := c.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *Cursor) Uint32BE() (uint32, error) {
	if err := c.require(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *Cursor) Uint64LE() (uint64, error) {
	if err := c.require(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return v, nil
}

func (c *Cursor) Bytes(n int) ([]byte, error) {
	if err := c.require(n); err != nil {
		return nil, err
	}
	v := c.buf[c.pos : c.pos+n]
	c.pos += n
	return v, nil
}

func (c *Cursor) Skip(n int) error {
	if err := c.require(n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

// CString reads a NUL-terminated string, erroring if no NUL appears within
// maxLen bytes of the cursor's remaining data. The error text matches the
// wording of the original implementation since the spec leaves wording
// unspecified but the corpus does not.
func (c *Cursor) CString(maxLen int) (string, error) {
	limit := c.Remaining()
	if limit > maxLen {
		limit = maxLen
	}
	idx := bytes.IndexByte(c.buf[c.pos:c.pos+limit], 0)
	if idx == -1 {
		if c.Remaining() > maxLen {
			return "", apperr.New(apperr.KindMalformedPacket, fmt.Sprintf("c string exceeds max length of %d bytes", maxLen), map[string]any{"offset": c.pos})
		}
		return "", apperr.New(apperr.KindMalformedPacket, "unterminated c string", map[string]any{"offset": c.pos})
	}
	s := string(c.buf[c.pos : c.pos+idx])
	c.pos += idx + 1
	return s, nil
}

// Writer is the encode-side counterpart to Cursor, appending fields in the
// wire's byte order without any bounds checking (the caller controls the
// buffer's growth).
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Uint8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) Uint16LE(v uint16) *Writer {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	return w
}

func (w *Writer) Uint16BE(v uint16) *Writer {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
	return w
}

func (w *Writer) Uint32LE(v uint32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	return w
}

func (w *Writer) Uint32BE(v uint32) *Writer {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
	return w
}

func (w *Writer) Uint64LE(v uint64) *Writer {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	return w
}

func (w *Writer) Raw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

func (w *Writer) CString(s string) *Writer {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
	return w
}
