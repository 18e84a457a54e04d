package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version  byte = 2
	kindItem byte = 1

	headerLen = 4 + 1 + 1 + 8 + 8 + 8 + 4
)

var (
	ErrCorrupt = errors.New("blogcas: corrupt entry")
	magic4     = [...]byte{'B', 'C', 'A', 'S'}
)

// Entry is a decoded cache frame. Payload aliases the input buffer.
type Entry struct {
	KeyGen    uint64
	ScopeGen  uint64
	ExpiresAt int64 // unix nanos; 0 = no deadline
	Payload   []byte
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode frames an entry:
//
//	magic(4) | ver(1) | kind(1) | keyGen(u64 be) | scopeGen(u64 be) | expiresAt(i64 be) | vlen(u32 be) | payload(vlen)
func Encode(e Entry) []byte {
	var buf bytes.Buffer
	buf.Grow(headerLen + len(e.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindItem)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], e.KeyGen)
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], e.ScopeGen)
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], uint64(e.ExpiresAt))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])

	buf.Write(e.Payload)
	return buf.Bytes()
}

// Decode parses a frame produced by Encode. Anything else, including
// trailing bytes, is ErrCorrupt.
func Decode(b []byte) (Entry, error) {
	if len(b) < headerLen || !hasMagic(b) || b[4] != version || b[5] != kindItem {
		return Entry{}, ErrCorrupt
	}

	off := 6
	var e Entry
	e.KeyGen = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	e.ScopeGen = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	e.ExpiresAt = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off {
		return Entry{}, ErrCorrupt
	}
	e.Payload = b[off : off+vlen]
	return e, nil
}
