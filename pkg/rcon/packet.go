package rcon

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Packet types from the Source RCON protocol. Auth responses reuse the
// command type code on the reply side.
const (
	typeResponse     int32 = 0
	typeCommand      int32 = 2
	typeAuthResponse int32 = 2
	typeAuth         int32 = 3
)

// authRejectedID is the sentinel request ID in an auth response for a bad
// password.
const authRejectedID int32 = -1

// maxPacketSize bounds a single reply payload. The game server does not
// fragment large replies the way Source servers do; serialized tables come
// back in one packet.
const maxPacketSize = 4 << 20

// packet is one protocol frame: little-endian size, id, type, body, and
// two terminating NULs. The size field covers everything after itself.
type packet struct {
	id   int32
	typ  int32
	body string
}

func writePacket(w io.Writer, p packet) error {
	size := int32(4 + 4 + len(p.body) + 2)
	buf := make([]byte, 0, size+4)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(size))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(p.id))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(p.typ))
	buf = append(buf, p.body...)
	buf = append(buf, 0, 0)
	_, err := w.Write(buf)
	return err
}

func readPacket(r io.Reader) (packet, error) {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return packet{}, err
	}
	size := int32(binary.LittleEndian.Uint32(sizeBuf[:]))
	if size < 10 || size > maxPacketSize {
		return packet{}, fmt.Errorf("invalid packet size %d", size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return packet{}, err
	}

	p := packet{
		id:  int32(binary.LittleEndian.Uint32(payload[0:4])),
		typ: int32(binary.LittleEndian.Uint32(payload[4:8])),
	}
	body := payload[8:]
	if len(body) >= 2 {
		body = body[:len(body)-2]
	}
	p.body = string(body)
	return p, nil
}
