// Package pipeline implements the three processing stages: profile,
// merge, and find-first.
package pipeline

import (
	"os"

	"github.com/c2h5oh/datasize"

	"github.com/wordtools/wdedup/dedup"
	"github.com/wordtools/wdedup/planner"
	"github.com/wordtools/wdedup/task"
	"github.com/wordtools/wdedup/wio"
)

func isSpace(b byte) bool {
	// NUL counts as whitespace so words can never carry one, keeping
	// the NUL-terminated encodings unambiguous
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == 0
}

// tokenizer yields maximal runs of non-whitespace bytes straight from
// the reader's prefetch buffer; only words that run to the end of the
// buffered window (and so may continue past it) are copied into
// scratch.
type tokenizer struct {
	f       *wio.SequentialFile
	scratch []byte
}

// next returns the next word and its absolute byte offset. A nil word
// means end of input. The returned slice is valid until the next
// call.
func (t *tokenizer) next() ([]byte, uint64, error) {
	for {
		eof, err := t.f.EOF()
		if err != nil {
			return nil, 0, err
		}
		if eof {
			return nil, 0, nil
		}
		buf := t.f.Buffer()
		i := 0
		for i < len(buf) && isSpace(buf[i]) {
			i++
		}
		t.f.Skip(i)
		if i < len(buf) {
			break
		}
	}
	off := t.f.Tell()
	t.scratch = t.scratch[:0]
	for {
		buf := t.f.Buffer()
		j := 0
		for j < len(buf) && !isSpace(buf[j]) {
			j++
		}
		if len(t.scratch) == 0 && j < len(buf) {
			t.f.Skip(j)
			return buf[:j], off, nil
		}
		t.scratch = append(t.scratch, buf[:j]...)
		t.f.Skip(j)
		if j < len(buf) {
			return t.scratch, off, nil
		}
		eof, err := t.f.EOF()
		if err != nil {
			return nil, 0, err
		}
		if eof {
			return t.scratch, off, nil
		}
	}
}

// replaySegments consumes the wprof portion of the recovery log,
// checking segment contiguity. complete reports whether the stage's
// end record was found.
func replaySegments(c *task.Config) (segs []planner.Segment, next uint64, complete bool, err error) {
	for {
		rec, ok, err := c.ReadRecord()
		if err != nil {
			return nil, 0, false, err
		}
		if !ok {
			return segs, next, false, nil
		}
		switch rec.Kind {
		case task.KindSegment:
			if rec.Start != next || rec.End < rec.Start {
				return nil, 0, false, c.Corrupt()
			}
			segs = append(segs, planner.Segment{
				ID:   uint64(len(segs)),
				Size: rec.End - rec.Start + 1,
			})
			next = rec.End + 1
		case task.KindEndProf:
			return segs, next, true, nil
		default:
			return nil, 0, false, c.Corrupt()
		}
	}
}

// ReplaySegments recovers the completed profile stage's segments
// without running it; the log must already hold the stage's end
// record.
func ReplaySegments(c *task.Config) ([]planner.Segment, error) {
	segs, _, complete, err := replaySegments(c)
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, c.Corrupt()
	}
	return segs, nil
}

// Profile runs the wprof stage: resume from the log, then stream the
// input through bounded-memory dedups, spilling one sorted segment
// profile per fill and logging each spill as its own sync unit.
func Profile(c *task.Config, input string, mk dedup.Factory) ([]planner.Segment, error) {
	segs, next, complete, err := replaySegments(c)
	if err != nil {
		return nil, err
	}
	if complete {
		return segs, nil
	}
	if err := c.RecoveryDone(); err != nil {
		return nil, err
	}

	st, err := os.Stat(input)
	if err != nil || !st.Mode().IsRegular() || uint64(st.Size()) < next {
		return nil, wio.NewError(wio.ErrnoMissingInput, input, "input file")
	}
	if len(segs) > 0 {
		c.Logf("resuming wprof at byte %d, %d segments recovered", next, len(segs))
	}

	in, err := wio.OpenSequential(input, "input file", next)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	tok := &tokenizer{f: in}

	start := next
	var pending []byte
	var pendingOff uint64
	for {
		d := mk(c.WorkMem)
		count := 0
		if pending != nil {
			if !d.Insert(pending, pendingOff) {
				return nil, wio.NewError(wio.ErrnoNoMemory, input, "input file")
			}
			count++
			pending = nil
		}
		prevOff := in.Tell()
		for {
			prevOff = in.Tell()
			word, off, err := tok.next()
			if err != nil {
				return nil, err
			}
			if word == nil {
				break
			}
			if !d.Insert(word, off) {
				if count == 0 {
					return nil, wio.NewError(wio.ErrnoNoMemory, input, "input file")
				}
				pending = append(pending[:0], word...)
				pendingOff = off
				break
			}
			count++
		}
		if count == 0 {
			break
		}
		id := uint64(len(segs))
		w, err := c.CreateProfile(id)
		if err != nil {
			return nil, err
		}
		size, err := d.Pour(w)
		if err != nil {
			return nil, err
		}
		end := prevOff - 1
		if err := c.AppendSegment(start, end); err != nil {
			return nil, err
		}
		c.Logf("segment %d: bytes [%d,%d], %s profile",
			id, start, end, datasize.ByteSize(size).HumanReadable())
		segs = append(segs, planner.Segment{ID: id, Size: end - start + 1})
		start = prevOff
		if pending == nil {
			break
		}
	}
	if err := c.AppendEndProf(); err != nil {
		return nil, err
	}
	return segs, nil
}
