package dedup

import (
	"github.com/wordtools/wdedup/arena"
	"github.com/wordtools/wdedup/bloom"
	"github.com/wordtools/wdedup/profile"
)

const null = int32(-1)

type treeItem struct {
	key    bloom.Key
	occur  uint64 // 0 means repeated, otherwise offset+1
	left   int32
	right  int32
	parent int32
	red    bool
}

// TreeDedup keeps one node per distinct word in a red-black tree
// whose links are indices into the arena's item slice. A repeated
// insert marks the existing node and allocates nothing, so memory
// cost tracks the number of distinct words.
type TreeDedup struct {
	arena *arena.Arena[treeItem]
	root  int32
}

// NewTree builds a tree-based dedup over mem.
func NewTree(mem []byte) Dedup {
	return &TreeDedup{arena: arena.New[treeItem](mem), root: null}
}

func (d *TreeDedup) item(i int32) *treeItem {
	return d.arena.Item(int(i))
}

func (d *TreeDedup) Insert(word []byte, off uint64) bool {
	probe := bloom.Probe(word)
	parent := null
	cur := d.root
	var cmp int
	for cur != null {
		it := d.item(cur)
		cmp = probe.Compare(it.key)
		if cmp == 0 {
			it.occur = 0
			return true
		}
		parent = cur
		if cmp < 0 {
			cur = it.left
		} else {
			cur = it.right
		}
	}
	idx, tail, ok := d.arena.Alloc(tailBytes(word))
	if !ok {
		return false
	}
	n := int32(idx)
	it := d.item(n)
	fillKey(&it.key, word, tail)
	it.occur = off + 1
	it.left, it.right, it.parent = null, null, parent
	it.red = true
	switch {
	case parent == null:
		d.root = n
	case cmp < 0:
		d.item(parent).left = n
	default:
		d.item(parent).right = n
	}
	d.fixInsert(n)
	return true
}

func (d *TreeDedup) fixInsert(n int32) {
	for n != d.root && d.item(d.item(n).parent).red {
		p := d.item(n).parent
		g := d.item(p).parent
		if p == d.item(g).left {
			u := d.item(g).right
			if u != null && d.item(u).red {
				d.item(p).red = false
				d.item(u).red = false
				d.item(g).red = true
				n = g
			} else {
				if n == d.item(p).right {
					n = p
					d.rotateLeft(n)
					p = d.item(n).parent
				}
				d.item(p).red = false
				d.item(g).red = true
				d.rotateRight(g)
			}
		} else {
			u := d.item(g).left
			if u != null && d.item(u).red {
				d.item(p).red = false
				d.item(u).red = false
				d.item(g).red = true
				n = g
			} else {
				if n == d.item(p).left {
					n = p
					d.rotateRight(n)
					p = d.item(n).parent
				}
				d.item(p).red = false
				d.item(g).red = true
				d.rotateLeft(g)
			}
		}
	}
	d.item(d.root).red = false
}

func (d *TreeDedup) rotateLeft(x int32) {
	y := d.item(x).right
	d.item(x).right = d.item(y).left
	if d.item(y).left != null {
		d.item(d.item(y).left).parent = x
	}
	p := d.item(x).parent
	d.item(y).parent = p
	switch {
	case p == null:
		d.root = y
	case x == d.item(p).left:
		d.item(p).left = y
	default:
		d.item(p).right = y
	}
	d.item(y).left = x
	d.item(x).parent = y
}

func (d *TreeDedup) rotateRight(x int32) {
	y := d.item(x).left
	d.item(x).left = d.item(y).right
	if d.item(y).right != null {
		d.item(d.item(y).right).parent = x
	}
	p := d.item(x).parent
	d.item(y).parent = p
	switch {
	case p == null:
		d.root = y
	case x == d.item(p).left:
		d.item(p).left = y
	default:
		d.item(p).right = y
	}
	d.item(y).right = x
	d.item(x).parent = y
}

func (d *TreeDedup) Pour(w *profile.Writer) (uint64, error) {
	items := d.arena.Consume()
	var word []byte
	n := d.root
	if n != null {
		for items[n].left != null {
			n = items[n].left
		}
	}
	for n != null {
		it := &items[n]
		word = it.key.AppendWord(word[:0])
		p := profile.Item{Word: word, Repeated: it.occur == 0}
		if !p.Repeated {
			p.Occur = it.occur - 1
		}
		if err := w.Push(p); err != nil {
			w.Close()
			return 0, err
		}
		if it.right != null {
			n = it.right
			for items[n].left != null {
				n = items[n].left
			}
		} else {
			c := n
			n = it.parent
			for n != null && c == items[n].right {
				c, n = n, items[n].parent
			}
		}
	}
	return w.Close()
}
