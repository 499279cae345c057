// Package bloom implements the packed prefix key used to order words.
package bloom

import (
	"bytes"
	"encoding/binary"
)

// Key encodes a word as one big-endian integer holding its first
// eight bytes (zero-padded when shorter) plus the remaining tail, or
// a nil tail for words of at most eight bytes. Most comparisons are a
// single integer comparison and never touch the tail storage.
//
// Zero-padding preserves byte order only because NUL never occurs in
// a word; the tokenizer treats it as whitespace.
type Key struct {
	Prefix uint64
	Tail   []byte
}

// Prefix packs the first eight or fewer bytes of word.
func Prefix(word []byte) uint64 {
	var p uint64
	n := len(word)
	if n > 8 {
		n = 8
	}
	for i := 0; i < n; i++ {
		p |= uint64(word[i]) << (56 - 8*uint(i))
	}
	return p
}

// Probe builds a key whose tail aliases word. Useful for lookups that
// must not allocate; the key is valid only while word is.
func Probe(word []byte) Key {
	k := Key{Prefix: Prefix(word)}
	if len(word) > 8 {
		k.Tail = word[8:]
	}
	return k
}

// Compare orders keys exactly as byte-lexicographic order of the
// words they encode. Nil tails compare less than any non-nil tail.
func (k Key) Compare(o Key) int {
	if k.Prefix != o.Prefix {
		if k.Prefix < o.Prefix {
			return -1
		}
		return 1
	}
	return bytes.Compare(k.Tail, o.Tail)
}

// AppendWord reconstructs the encoded word onto dst.
func (k Key) AppendWord(dst []byte) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], k.Prefix)
	n := 8
	for n > 0 && b[n-1] == 0 {
		n--
	}
	dst = append(dst, b[:n]...)
	return append(dst, k.Tail...)
}

// Word reconstructs the encoded word.
func (k Key) Word() []byte {
	return k.AppendWord(nil)
}
