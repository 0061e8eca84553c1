package codec

import (
	"io"

	"github.com/tinyland-inc/innkeeper/internal/apperr"
)

// ReadPacket reads one framed packet off r: size+opcode header per §4.1,
// followed by size-2 payload bytes. All Ascension inbound headers are
// plaintext, so no decryption happens here.
func ReadPacket(r io.Reader) (*Packet, error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "read frame first byte", err)
	}

	readMore := func(n int) ([]byte, error) {
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}

	size, opcode, err := ReadFrameHeader(first[0], readMore)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if size > 2 {
		payload = make([]byte, size-2)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, apperr.Wrap(apperr.KindNetwork, "read frame payload", err)
		}
	}
	return &Packet{Opcode: opcode, Payload: payload}, nil
}

// WritePacket frames and writes a packet to w.
func WritePacket(w io.Writer, opcode uint16, payload []byte) error {
	frame := EncodeFrame(opcode, payload)
	if _, err := w.Write(frame); err != nil {
		return apperr.Wrap(apperr.KindNetwork, "write frame", err)
	}
	return nil
}
