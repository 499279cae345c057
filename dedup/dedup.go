// Package dedup provides the bounded-memory in-core deduplicators
// that turn a stream of (word, offset) pairs into a sorted segment
// profile.
package dedup

import (
	"github.com/wordtools/wdedup/bloom"
	"github.com/wordtools/wdedup/profile"
)

// Dedup is the contract both deduplicators honor. Insert reports
// false, leaving the structure unchanged, when working memory cannot
// hold the word. Pour consumes the dedup, emits one item per distinct
// word in ascending byte order, and closes the writer, reporting the
// profile's physical size.
type Dedup interface {
	Insert(word []byte, off uint64) bool
	Pour(w *profile.Writer) (uint64, error)
}

// Factory builds a fresh dedup over the given working memory.
type Factory func(mem []byte) Dedup

func tailBytes(word []byte) int {
	if len(word) > 8 {
		return len(word) - 8 + 1
	}
	return 0
}

func fillKey(k *bloom.Key, word, tail []byte) {
	k.Prefix = bloom.Prefix(word)
	if len(word) > 8 {
		copy(tail, word[8:])
		k.Tail = tail
	}
}
