package dedup

import (
	"sort"

	"github.com/wordtools/wdedup/arena"
	"github.com/wordtools/wdedup/bloom"
	"github.com/wordtools/wdedup/profile"
)

type sortItem struct {
	key   bloom.Key
	occur uint64
}

// SortDedup appends one item per occurrence without searching; Pour
// sorts the whole batch and scans runs. Memory cost is one slot per
// occurrence, so it fills faster than the tree on repetitive input
// but each Insert is O(1).
type SortDedup struct {
	arena *arena.Arena[sortItem]
}

// NewSort builds a sort-based dedup over mem.
func NewSort(mem []byte) Dedup {
	return &SortDedup{arena: arena.New[sortItem](mem)}
}

func (d *SortDedup) Insert(word []byte, off uint64) bool {
	idx, tail, ok := d.arena.Alloc(tailBytes(word))
	if !ok {
		return false
	}
	it := d.arena.Item(idx)
	fillKey(&it.key, word, tail)
	it.occur = off
	return true
}

func (d *SortDedup) Pour(w *profile.Writer) (uint64, error) {
	items := d.arena.Consume()
	sort.Slice(items, func(i, j int) bool {
		return items[i].key.Compare(items[j].key) < 0
	})
	var word []byte
	for i := 0; i < len(items); {
		j := i + 1
		for j < len(items) && items[j].key.Compare(items[i].key) == 0 {
			j++
		}
		word = items[i].key.AppendWord(word[:0])
		it := profile.Item{Word: word, Repeated: j-i > 1}
		if !it.Repeated {
			it.Occur = items[i].occur
		}
		if err := w.Push(it); err != nil {
			w.Close()
			return 0, err
		}
		i = j
	}
	return w.Close()
}
