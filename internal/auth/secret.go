package auth

import "unicode/utf8"

// Secret is the canonical byte form of a submitted password. It owns its buffer so it can be
// wiped once a comparison is done; the caller's original value is never retained.
type Secret struct {
	buf []byte
}

// NewSecret copies s into a fresh buffer.
func NewSecret(s string) Secret {
	buf := make([]byte, len(s))
	copy(buf, s)
	return Secret{buf: buf}
}

// SecretFromBytes copies b into a fresh buffer.
func SecretFromBytes(b []byte) Secret {
	buf := make([]byte, len(b))
	copy(buf, b)
	return Secret{buf: buf}
}

// SecretFromRunes UTF-8 encodes r into a fresh buffer.
func SecretFromRunes(r []rune) Secret {
	// every rune encodes to at most UTFMax bytes, so append never reallocates
	buf := make([]byte, 0, len(r)*utf8.UTFMax)
	for _, c := range r {
		buf = utf8.AppendRune(buf, c)
	}
	return Secret{buf: buf}
}

// Bytes exposes the buffer. It is zeroed by Wipe.
func (s Secret) Bytes() []byte { return s.buf }

// Len returns the encoded length.
func (s Secret) Len() int { return len(s.buf) }

// Wipe zeroes the buffer.
func (s Secret) Wipe() {
	clear(s.buf[:cap(s.buf)])
}
