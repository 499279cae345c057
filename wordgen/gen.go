// Package wordgen writes synthetic whitespace-separated word corpora
// for exercising the deduplication pipeline. Word frequencies follow a
// Zipf distribution, so most of the file is a small set of very common
// words with a long tail of rare ones, and a configurable number of
// guaranteed-unique words is planted at evenly spaced positions.
package wordgen

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type Main struct {
	Filename string `help:"output file to write"`
	Words    uint64 `help:"number of corpus words to draw"`
	Vocab    uint64 `help:"vocabulary size for the Zipf draw"`
	Skew     float64 `help:"Zipf skew parameter, must be > 1"`
	Planted  int    `help:"number of planted words occurring exactly once"`
	Shards   int    `help:"number of concurrently generated shards"`
	Seed     int64  `help:"seed; output is a pure function of the flags"`
	LineLen  int    `help:"words per output line"`

	Stdin  io.Reader `json:"-"`
	Stdout io.Writer `json:"-"`
	Stderr io.Writer `json:"-"`
}

func NewMain() *Main {
	return &Main{
		Filename: "corpus.txt",
		Words:    1 << 20,
		Vocab:    1 << 16,
		Skew:     1.1,
		Planted:  1,
		Shards:   8,
		Seed:     1,
		LineLen:  16,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

func (m *Main) Run() error {
	if m.Skew <= 1 {
		return errors.Errorf("skew %v out of range, must be > 1", m.Skew)
	}
	if m.Vocab == 0 || m.Shards < 1 || m.LineLen < 1 {
		return errors.New("vocab, shards and line-len must be positive")
	}
	if m.Planted > 0 && uint64(m.Planted) >= m.Words {
		return errors.Errorf("cannot plant %d words into a %d-word corpus", m.Planted, m.Words)
	}

	f, err := os.Create(m.Filename)
	if err != nil {
		return errors.Wrap(err, "creating output file")
	}
	defer f.Close()

	shards := make([]bytes.Buffer, m.Shards)
	var eg errgroup.Group
	for s := 0; s < m.Shards; s++ {
		s := s
		eg.Go(func() error {
			m.generateShard(s, &shards[s])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	bw := bufio.NewWriter(f)
	for i := range shards {
		if _, err := bw.Write(shards[i].Bytes()); err != nil {
			return errors.Wrap(err, "writing corpus")
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "writing corpus")
	}
	return errors.Wrap(f.Sync(), "writing corpus")
}

// shardRange returns the half-open global word-index range shard s
// covers. Ranges partition [0, Words).
func (m *Main) shardRange(s int) (uint64, uint64) {
	per := m.Words / uint64(m.Shards)
	lo := uint64(s) * per
	hi := lo + per
	if s == m.Shards-1 {
		hi = m.Words
	}
	return lo, hi
}

// plantedAt returns the planted word for global index i, or "".
// Planted positions are spread evenly through the corpus.
func (m *Main) plantedAt(i uint64) string {
	if m.Planted == 0 {
		return ""
	}
	stride := m.Words / uint64(m.Planted+1)
	if stride == 0 {
		stride = 1
	}
	if i%stride != 0 {
		return ""
	}
	j := i/stride - 1
	if i == 0 || j >= uint64(m.Planted) {
		return ""
	}
	return fmt.Sprintf("planted%04d", j)
}

// generateShard writes shard s into buf. Each shard draws from its own
// rng seeded by (Seed, s), so shards are reproducible independently of
// scheduling.
func (m *Main) generateShard(s int, buf *bytes.Buffer) {
	rng := rand.New(rand.NewSource(m.Seed + int64(s)))
	zipf := rand.NewZipf(rng, m.Skew, 1, m.Vocab-1)
	lo, hi := m.shardRange(s)
	col := 0
	for i := lo; i < hi; i++ {
		var word string
		if word = m.plantedAt(i); word == "" {
			word = fmt.Sprintf("w%06d", zipf.Uint64())
		}
		buf.WriteString(word)
		col++
		if col == m.LineLen {
			buf.WriteByte('\n')
			col = 0
		} else {
			buf.WriteByte(' ')
		}
	}
	if col != 0 {
		buf.WriteByte('\n')
	}
}
