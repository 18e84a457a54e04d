// Package etag derives opaque version tokens from an entity's identity and
// last-modified time, and validates tokens submitted by clients.
//
// Tokens are computed, never stored. Two states with the same identity and
// the same whole-second timestamp always produce the same token.
package etag

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/zeebo/xxh3"
)

// Token is an opaque version identifier. Only equality is meaningful.
type Token string

// None is returned for entities that were never persisted.
// It never validates against anything, including itself.
const None Token = ""

// Versioned is implemented by entities that carry a version token.
type Versioned interface {
	Identity() int64
	LastModified() time.Time
}

// Compute returns the token for (id, modified). Sub-second precision is
// dropped so tokens survive serialization round-trips.
func Compute(id int64, modified time.Time) Token {
	if modified.IsZero() {
		return None
	}
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(id))
	binary.BigEndian.PutUint64(buf[8:], uint64(modified.Truncate(time.Second).Unix()))
	sum := xxh3.Hash128(buf[:]).Bytes()
	return Token(hex.EncodeToString(sum[:]))
}

// Of is Compute for any Versioned value.
func Of(v Versioned) Token {
	return Compute(v.Identity(), v.LastModified())
}

// Validate reports whether submitted equals current.
func Validate(current Token, submitted string) bool {
	return current != None && string(current) == submitted
}

// Matches is Validate against the entity's current state.
func Matches(v Versioned, submitted string) bool {
	return Validate(Of(v), submitted)
}

// Advance returns the next last-modified value for an entity last modified at
// prev. The result has whole-second resolution and is strictly later than
// prev at that resolution, so every mutation yields a new token even when two
// writes land within the same wall-clock second.
func Advance(prev, now time.Time) time.Time {
	next := now.Truncate(time.Second)
	if prev.IsZero() {
		return next
	}
	floor := prev.Truncate(time.Second).Add(time.Second)
	if next.Before(floor) {
		return floor
	}
	return next
}

// String implements fmt.Stringer.
func (t Token) String() string { return string(t) }

// Quoted returns the token as an HTTP entity-tag ("...").
func (t Token) Quoted() string {
	if t == None {
		return ""
	}
	return `"` + string(t) + `"`
}

// Parse strips HTTP entity-tag decoration (W/ prefix and quotes) from a
// header value. Anything else is returned unchanged.
func Parse(header string) string {
	s := header
	if len(s) >= 2 && s[0] == 'W' && s[1] == '/' {
		s = s[2:]
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return s
}
