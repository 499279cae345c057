// Package profile reads and writes the sorted word profiles exchanged
// between the pipeline stages.
//
// On disk each item is the word's bytes with a NUL terminator, one
// flag byte, and, only when the flag byte is zero (unique), the
// 8-byte occurrence offset.
package profile

import (
	"github.com/wordtools/wdedup/wio"
)

// Item is one profile record. Occur is meaningful only when Repeated
// is false.
type Item struct {
	Word     []byte
	Repeated bool
	Occur    uint64
}

// Writer emits items to an append file.
type Writer struct {
	f *wio.AppendFile
}

// NewWriter wraps f. The writer owns f from here on.
func NewWriter(f *wio.AppendFile) *Writer {
	return &Writer{f: f}
}

// Push appends one item.
func (w *Writer) Push(it Item) error {
	if err := w.f.WriteString(it.Word); err != nil {
		return err
	}
	if it.Repeated {
		return w.f.WriteByte(1)
	}
	if err := w.f.WriteByte(0); err != nil {
		return err
	}
	return w.f.WriteU64(it.Occur)
}

// Close flushes, makes the profile durable, and reports its physical
// size in bytes.
func (w *Writer) Close() (uint64, error) {
	return w.f.Close()
}

// Reader iterates a profile forward, prefetching one item so callers
// can peek at the next word during merging.
type Reader struct {
	f    *wio.SequentialFile
	item Item
	ok   bool
}

// NewReader wraps f and prefetches the first item. The reader owns f.
func NewReader(f *wio.SequentialFile) (*Reader, error) {
	r := &Reader{f: f}
	if err := r.fetch(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) fetch() error {
	eof, err := r.f.EOF()
	if err != nil {
		return err
	}
	if eof {
		r.ok = false
		return nil
	}
	word, err := r.f.ReadString()
	if err != nil {
		return err
	}
	flag, err := r.f.ReadByte()
	if err != nil {
		return err
	}
	it := Item{Word: word, Repeated: flag != 0}
	if flag == 0 {
		if it.Occur, err = r.f.ReadU64(); err != nil {
			return err
		}
	}
	r.item = it
	r.ok = true
	return nil
}

// Empty reports whether the profile is exhausted.
func (r *Reader) Empty() bool {
	return !r.ok
}

// Peek returns the prefetched item. Valid only when not Empty.
func (r *Reader) Peek() *Item {
	return &r.item
}

// Pop returns the current item and prefetches the next.
func (r *Reader) Pop() (Item, error) {
	it := r.item
	if err := r.fetch(); err != nil {
		return Item{}, err
	}
	return it, nil
}

func (r *Reader) Close() error {
	return r.f.Close()
}

// SingularFilter decorates a reader so only unique items come out.
type SingularFilter struct {
	r *Reader
}

// NewSingularFilter wraps r, skipping ahead to the first unique item.
func NewSingularFilter(r *Reader) (*SingularFilter, error) {
	s := &SingularFilter{r: r}
	if err := s.skip(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SingularFilter) skip() error {
	for !s.r.Empty() && s.r.Peek().Repeated {
		if _, err := s.r.Pop(); err != nil {
			return err
		}
	}
	return nil
}

// Empty reports whether any unique items remain.
func (s *SingularFilter) Empty() bool {
	return s.r.Empty()
}

// Pop returns the next unique item.
func (s *SingularFilter) Pop() (Item, error) {
	it, err := s.r.Pop()
	if err != nil {
		return Item{}, err
	}
	if err := s.skip(); err != nil {
		return Item{}, err
	}
	return it, nil
}
