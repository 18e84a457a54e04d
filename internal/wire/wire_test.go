package wire

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func mustDecode(t *testing.T, b []byte) Entry {
	t.Helper()
	e, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	return e
}

func TestRoundTrip(t *testing.T) {
	cases := []Entry{
		{},
		{KeyGen: 42, Payload: []byte("hello")},
		{KeyGen: math.MaxUint64, ScopeGen: 3, ExpiresAt: 1700000000123456789, Payload: []byte{0, 1, 2, 3, 4}},
		{ScopeGen: math.MaxUint64, ExpiresAt: -1},
	}
	for _, tc := range cases {
		got := mustDecode(t, Encode(tc))
		if got.KeyGen != tc.KeyGen || got.ScopeGen != tc.ScopeGen || got.ExpiresAt != tc.ExpiresAt {
			t.Fatalf("header mismatch: got %+v want %+v", got, tc)
		}
		if !bytes.Equal(got.Payload, tc.Payload) {
			t.Fatalf("payload mismatch: got %x want %x", got.Payload, tc.Payload)
		}
	}
}

func TestRejectsTrailingBytes(t *testing.T) {
	enc := Encode(Entry{KeyGen: 7, Payload: []byte("x")})
	enc = append(enc, 0xDE, 0xAD)
	if _, err := Decode(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestCorruptHeadersAndLengths(t *testing.T) {
	enc := Encode(Entry{KeyGen: 1, Payload: []byte("abc")})

	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, err := Decode(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, err := Decode(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	badKind := append([]byte(nil), enc...)
	badKind[5] = kindItem + 1
	if _, err := Decode(badKind); err == nil {
		t.Fatalf("expected error on bad kind")
	}

	// vlen sits right before the payload
	tooLong := append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(tooLong[headerLen-4:headerLen], uint32(len("abc")+1))
	if _, err := Decode(tooLong); err == nil {
		t.Fatalf("expected error on vlen beyond buffer")
	}

	if _, err := Decode(enc[:len(enc)-1]); err == nil {
		t.Fatalf("expected error on truncated buffer")
	}
	if _, err := Decode(enc[:headerLen-1]); err == nil {
		t.Fatalf("expected error on truncated header")
	}
	if _, err := Decode(nil); err == nil {
		t.Fatalf("expected error on empty input")
	}
}

func TestZeroCopyPayload(t *testing.T) {
	enc := Encode(Entry{Payload: []byte("Z")})
	p := mustDecode(t, enc).Payload
	p[0] = 'Q'
	if mustDecode(t, enc).Payload[0] != 'Q' {
		t.Fatalf("expected zero-copy slice into enc buffer")
	}
}

func TestForeignValueIsCorrupt(t *testing.T) {
	for _, raw := range [][]byte{
		[]byte(`{"id":1}`),
		[]byte("BCAS"),
		append([]byte("CASC\x01\x01"), make([]byte, 12)...),
	} {
		if _, err := Decode(raw); err != ErrCorrupt {
			t.Fatalf("Decode(%q) err=%v want ErrCorrupt", raw, err)
		}
	}
}
