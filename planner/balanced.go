package planner

// Balanced pairs profiles layer by layer, left to right; an odd
// leftover within a layer is carried unchanged behind that layer's
// outputs. For n leaves it emits exactly n-1 plans and builds a tree
// of depth ceil(log2 n).
type Balanced struct {
	cur  []uint64
	nxt  []uint64
	next uint64
	root uint64
	done bool
}

// NewBalanced builds a planner over segs. The output id counter is
// seeded past the largest existing id.
func NewBalanced(segs []Segment) *Balanced {
	b := &Balanced{next: maxID(segs) + 1}
	for _, s := range segs {
		b.cur = append(b.cur, s.ID)
	}
	return b
}

func (b *Balanced) Pop(p *Plan) bool {
	for !b.done {
		if len(b.cur) >= 2 {
			*p = Plan{Left: b.cur[0], Right: b.cur[1], Out: b.next}
			b.next++
			b.cur = b.cur[2:]
			b.nxt = append(b.nxt, p.Out)
			return true
		}
		if len(b.nxt) == 0 {
			if len(b.cur) == 1 {
				b.root = b.cur[0]
			}
			b.done = true
			break
		}
		if len(b.cur) == 1 {
			b.nxt = append(b.nxt, b.cur[0])
		}
		b.cur = append(b.cur[:0], b.nxt...)
		b.nxt = b.nxt[:0]
	}
	p.Out = b.root
	return false
}

func (b *Balanced) Push(Segment) {}
