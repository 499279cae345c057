package pipeline

import (
	"github.com/wordtools/wdedup/profile"
	"github.com/wordtools/wdedup/task"
)

// FindFirst scans the root profile for the unique word with the lowest
// occurrence offset. A nil word means every word in the input repeats.
func FindFirst(c *task.Config, root uint64) ([]byte, error) {
	r, err := c.OpenProfile(root)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	f, err := profile.NewSingularFilter(r)
	if err != nil {
		return nil, err
	}

	var best []byte
	var bestOff uint64
	for !f.Empty() {
		it, err := f.Pop()
		if err != nil {
			return nil, err
		}
		if best == nil || it.Occur < bestOff {
			best = append(best[:0], it.Word...)
			bestOff = it.Occur
		}
	}
	return best, nil
}
