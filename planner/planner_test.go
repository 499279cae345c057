package planner

import "testing"

func drain(t *testing.T, pl Planner) ([]Plan, uint64) {
	t.Helper()
	var plans []Plan
	var p Plan
	for pl.Pop(&p) {
		plans = append(plans, p)
		if len(plans) > 10000 {
			t.Fatalf("planner does not terminate")
		}
	}
	return plans, p.Out
}

func uniformSegs(n int) []Segment {
	segs := make([]Segment, n)
	for i := range segs {
		segs[i] = Segment{ID: uint64(i), Size: 1}
	}
	return segs
}

// checkTree verifies the n-1 plan count, that every consumed id is
// consumed once, and that exactly the root is never consumed.
func checkTree(t *testing.T, segs []Segment, plans []Plan, root uint64) {
	t.Helper()
	if len(plans) != len(segs)-1 {
		t.Fatalf("plans: got %d, want %d", len(plans), len(segs)-1)
	}
	produced := map[uint64]bool{}
	for _, s := range segs {
		produced[s.ID] = true
	}
	consumed := map[uint64]bool{}
	for i, p := range plans {
		for _, in := range []uint64{p.Left, p.Right} {
			if !produced[in] {
				t.Fatalf("plan %d consumes unknown id %d", i, in)
			}
			if consumed[in] {
				t.Fatalf("plan %d consumes id %d twice", i, in)
			}
			consumed[in] = true
		}
		if produced[p.Out] {
			t.Fatalf("plan %d reuses id %d", i, p.Out)
		}
		produced[p.Out] = true
	}
	var unconsumed []uint64
	for id := range produced {
		if !consumed[id] {
			unconsumed = append(unconsumed, id)
		}
	}
	if len(unconsumed) != 1 || unconsumed[0] != root {
		t.Fatalf("unconsumed ids %v, root %d", unconsumed, root)
	}
}

func TestBalancedSmall(t *testing.T) {
	plans, root := drain(t, NewBalanced(uniformSegs(3)))
	want := []Plan{{0, 1, 3}, {3, 2, 4}}
	if len(plans) != len(want) {
		t.Fatalf("plans: got %v", plans)
	}
	for i := range want {
		if plans[i] != want[i] {
			t.Fatalf("plan %d: got %v, want %v", i, plans[i], want[i])
		}
	}
	if root != 4 {
		t.Fatalf("root: got %d, want 4", root)
	}
}

func TestBalancedTreeShape(t *testing.T) {
	for _, n := range []int{1, 2, 5, 8, 13, 100} {
		segs := uniformSegs(n)
		plans, root := drain(t, NewBalanced(segs))
		checkTree(t, segs, plans, root)
	}
}

func TestBalancedSingleSegment(t *testing.T) {
	plans, root := drain(t, NewBalanced([]Segment{{ID: 7, Size: 10}}))
	if len(plans) != 0 {
		t.Fatalf("single segment produced plans: %v", plans)
	}
	if root != 7 {
		t.Fatalf("root: got %d, want 7", root)
	}
}

func TestBalancedIDCounterSeed(t *testing.T) {
	segs := []Segment{{ID: 4, Size: 1}, {ID: 9, Size: 1}}
	plans, root := drain(t, NewBalanced(segs))
	if len(plans) != 1 || plans[0].Out != 10 {
		t.Fatalf("plans: got %v, want out id 10", plans)
	}
	if root != 10 {
		t.Fatalf("root: got %d", root)
	}
}

func TestBalancedDeterministic(t *testing.T) {
	a, _ := drain(t, NewBalanced(uniformSegs(13)))
	b, _ := drain(t, NewBalanced(uniformSegs(13)))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("plan %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestBalancedPopAfterDone(t *testing.T) {
	pl := NewBalanced(uniformSegs(2))
	var p Plan
	for pl.Pop(&p) {
	}
	root := p.Out
	if pl.Pop(&p) {
		t.Fatalf("pop after done yielded a plan")
	}
	if p.Out != root {
		t.Fatalf("root changed: %d vs %d", p.Out, root)
	}
}

func TestDPTreeShape(t *testing.T) {
	for _, n := range []int{1, 2, 5, 8, 13} {
		segs := uniformSegs(n)
		plans, root := drain(t, NewDP(segs))
		checkTree(t, segs, plans, root)
	}
}

func TestDPSkewedPairsSmallFirst(t *testing.T) {
	segs := []Segment{{ID: 0, Size: 1}, {ID: 1, Size: 1}, {ID: 2, Size: 100}}
	pl := NewDP(segs)
	plans, root := drain(t, pl)
	want := []Plan{{0, 1, 3}, {3, 2, 4}}
	for i := range want {
		if plans[i] != want[i] {
			t.Fatalf("plan %d: got %v, want %v", i, plans[i], want[i])
		}
	}
	if root != 4 {
		t.Fatalf("root: got %d", root)
	}
	if pl.Cost() != 208 {
		t.Fatalf("cost: got %d, want 208", pl.Cost())
	}
}

func TestDPCostMatchesPlanSum(t *testing.T) {
	segs := []Segment{
		{ID: 0, Size: 3}, {ID: 1, Size: 14}, {ID: 2, Size: 1},
		{ID: 3, Size: 5}, {ID: 4, Size: 9}, {ID: 5, Size: 2},
	}
	pl := NewDP(segs)
	plans, _ := drain(t, pl)
	size := map[uint64]uint64{}
	for _, s := range segs {
		size[s.ID] = s.Size
	}
	var sum uint64
	for _, p := range plans {
		out := size[p.Left] + size[p.Right]
		sum += 2 * out
		size[p.Out] = out
	}
	if pl.Cost() != sum {
		t.Fatalf("cost %d != plan sum %d", pl.Cost(), sum)
	}
}

func TestDPUniformMatchesBalancedCost(t *testing.T) {
	for _, n := range []int{2, 4, 8, 16} {
		segs := uniformSegs(n)
		dp := NewDP(segs)
		plans, _ := drain(t, NewBalanced(segs))
		size := map[uint64]uint64{}
		for _, s := range segs {
			size[s.ID] = s.Size
		}
		var balancedCost uint64
		for _, p := range plans {
			out := size[p.Left] + size[p.Right]
			balancedCost += 2 * out
			size[p.Out] = out
		}
		if dp.Cost() != balancedCost {
			t.Fatalf("n=%d: dp cost %d, balanced cost %d", n, dp.Cost(), balancedCost)
		}
	}
}
