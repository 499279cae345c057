package pipeline

import (
	"bytes"

	"github.com/c2h5oh/datasize"

	"github.com/wordtools/wdedup/planner"
	"github.com/wordtools/wdedup/profile"
	"github.com/wordtools/wdedup/task"
)

// replayMerges consumes the wmerge portion of the recovery log,
// checking each logged merge against the planner's schedule. It
// returns the root id and done=true when the stage's end record was
// found.
func replayMerges(c *task.Config, pl planner.Planner, gc bool) (root uint64, done bool, err error) {
	replayed := 0
	for {
		rec, ok, err := c.ReadRecord()
		if err != nil {
			return 0, false, err
		}
		if !ok {
			if replayed > 0 {
				c.Logf("resuming wmerge, %d merges recovered", replayed)
			}
			return 0, false, nil
		}
		var p planner.Plan
		switch rec.Kind {
		case task.KindMerge:
			if !pl.Pop(&p) {
				return 0, false, c.Corrupt()
			}
			if p.Left != rec.Left || p.Right != rec.Right || p.Out != rec.Out {
				return 0, false, c.Corrupt()
			}
			if gc {
				if err := c.RemoveProfile(rec.Left); err != nil {
					return 0, false, err
				}
				if err := c.RemoveProfile(rec.Right); err != nil {
					return 0, false, err
				}
			}
			pl.Push(planner.Segment{ID: rec.Out, Size: rec.Size})
			replayed++
		case task.KindEndMerge:
			if pl.Pop(&p) {
				return 0, false, c.Corrupt()
			}
			return p.Out, true, nil
		default:
			return 0, false, c.Corrupt()
		}
	}
}

// mergePair combines profiles left and right into out. Words present
// in both inputs come out repeated; the rest pass through unchanged.
// Returns the physical size of the written profile.
func mergePair(c *task.Config, left, right, out uint64) (uint64, error) {
	l, err := c.OpenProfile(left)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	r, err := c.OpenProfile(right)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	w, err := c.CreateProfile(out)
	if err != nil {
		return 0, err
	}

	for !l.Empty() && !r.Empty() {
		cmp := bytes.Compare(l.Peek().Word, r.Peek().Word)
		var it profile.Item
		switch {
		case cmp < 0:
			if it, err = l.Pop(); err != nil {
				return 0, err
			}
		case cmp > 0:
			if it, err = r.Pop(); err != nil {
				return 0, err
			}
		default:
			if it, err = l.Pop(); err != nil {
				return 0, err
			}
			if _, err = r.Pop(); err != nil {
				return 0, err
			}
			it.Repeated = true
			it.Occur = 0
		}
		if err := w.Push(it); err != nil {
			return 0, err
		}
	}
	for _, rest := range []*profile.Reader{l, r} {
		for !rest.Empty() {
			it, err := rest.Pop()
			if err != nil {
				return 0, err
			}
			if err := w.Push(it); err != nil {
				return 0, err
			}
		}
	}
	return w.Close()
}

// Merge runs the wmerge stage: resume the logged merges against the
// planner's schedule, then execute the remaining plans, logging each
// completed merge as its own sync unit. Returns the root profile id.
func Merge(c *task.Config, pl planner.Planner, gc bool) (uint64, error) {
	root, done, err := replayMerges(c, pl, gc)
	if err != nil {
		return 0, err
	}
	if done {
		return root, nil
	}
	if err := c.RecoveryDone(); err != nil {
		return 0, err
	}

	var p planner.Plan
	for pl.Pop(&p) {
		size, err := mergePair(c, p.Left, p.Right, p.Out)
		if err != nil {
			return 0, err
		}
		if err := c.AppendMerge(p.Left, p.Right, p.Out, size); err != nil {
			return 0, err
		}
		if gc {
			if err := c.RemoveProfile(p.Left); err != nil {
				return 0, err
			}
			if err := c.RemoveProfile(p.Right); err != nil {
				return 0, err
			}
		}
		pl.Push(planner.Segment{ID: p.Out, Size: size})
		c.Logf("merged %d+%d into %d, %s profile",
			p.Left, p.Right, p.Out, datasize.ByteSize(size).HumanReadable())
	}
	if err := c.AppendEndMerge(); err != nil {
		return 0, err
	}
	return p.Out, nil
}
