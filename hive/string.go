package hive

import (
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
)

// NameString is a zero-copy view of a string stored in a cell. Names come
// in two flavours: Latin-1 (one byte per code point, flagged "compressed"
// on disk) and UTF-16LE. Comparisons fold case the way the Offline
// Registry Library does: the simple one-to-one upper-case mapping for
// code points in the Basic Multilingual Plane, identity above it.
type NameString struct {
	latin1 bool
	raw    []byte
}

func latin1Name(raw []byte) NameString { return NameString{latin1: true, raw: raw} }
func utf16Name(raw []byte) NameString  { return NameString{raw: raw} }

// IsLatin1 reports whether the name is stored one byte per character.
func (s NameString) IsLatin1() bool { return s.latin1 }

// Raw returns the underlying bytes (zero-copy).
func (s NameString) Raw() []byte { return s.raw }

// Len returns the length in code units: bytes for Latin-1, 16-bit units
// for UTF-16LE.
func (s NameString) Len() int {
	if s.latin1 {
		return len(s.raw)
	}
	return len(s.raw) / 2
}

// String decodes the name into an owned Go string. This is the one string
// operation that allocates.
func (s NameString) String() string {
	if s.latin1 {
		if isASCII(s.raw) {
			return string(s.raw)
		}
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(s.raw)
		if err != nil {
			// ISO 8859-1 decodes every byte; only a short internal buffer
			// could fail, and then the raw bytes are the best answer left.
			return string(s.raw)
		}
		return string(decoded)
	}

	var b strings.Builder
	b.Grow(len(s.raw) / 2)
	cur := runeCursor{s: s}
	for {
		r, ok := cur.next()
		if !ok {
			return b.String()
		}
		b.WriteRune(r)
	}
}

// isASCII reports whether all bytes are below 0x80. ASCII bytes decode
// identically in Latin-1 and UTF-8.
func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// runeCursor walks the code points of a stored name. In the UTF-16LE form
// a surrogate pair combines into its supplementary code point; an unpaired
// surrogate is passed through as its code unit value rather than rejected.
type runeCursor struct {
	s NameString
	i int
}

func (c *runeCursor) next() (rune, bool) {
	raw := c.s.raw
	if c.s.latin1 {
		if c.i >= len(raw) {
			return 0, false
		}
		r := rune(raw[c.i])
		c.i++
		return r, true
	}

	if c.i+1 >= len(raw) {
		return 0, false
	}
	u := rune(raw[c.i]) | rune(raw[c.i+1])<<8
	c.i += 2
	if u >= 0xD800 && u <= 0xDBFF && c.i+1 < len(raw) {
		u2 := rune(raw[c.i]) | rune(raw[c.i+1])<<8
		if u2 >= 0xDC00 && u2 <= 0xDFFF {
			c.i += 2
			return 0x10000 + ((u-0xD800)<<10 | (u2 - 0xDC00)), true
		}
	}
	return u, true
}

// foldUpper applies the Windows-compatible simple upper-case fold: BMP
// code points map through the one-to-one upcase table, supplementary-plane
// letters stay distinct.
func foldUpper(r rune) rune {
	if r <= 0xFFFF {
		return unicode.ToUpper(r)
	}
	return r
}

// EqualFold reports whether the stored name equals the lookup name under
// case folding.
func (s NameString) EqualFold(name string) bool {
	return s.CompareFold(name) == 0
}

// CompareFold orders the stored name against the lookup name by their
// folded code-point sequences: -1, 0 or +1. The ordering is total and
// transitive.
func (s NameString) CompareFold(name string) int {
	cur := runeCursor{s: s}
	for _, qr := range name {
		sr, ok := cur.next()
		if !ok {
			return -1
		}
		a, b := foldUpper(sr), foldUpper(qr)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	if _, ok := cur.next(); ok {
		return 1
	}
	return 0
}

const lhHashMultiplier = 37

// lhHash computes the hash-leaf hint for a lookup name:
// acc = acc*37 + upcase(char), truncated to 32 bits.
func lhHash(name string) uint32 {
	var h uint32
	for _, r := range name {
		h = h*lhHashMultiplier + uint32(foldUpper(r))
	}
	return h
}

// lfHint returns the fast-leaf hint for a lookup name: the first four
// characters upper-cased as ASCII bytes, NUL-padded. ok is false when the
// prefix is not pure ASCII; binary search on hints is then impossible and
// the caller falls back to a linear scan.
func lfHint(name string) (hint [4]byte, ok bool) {
	i := 0
	for _, r := range name {
		if i == len(hint) {
			break
		}
		if r >= 0x80 {
			return hint, false
		}
		hint[i] = byte(foldUpper(r))
		i++
	}
	return hint, true
}
