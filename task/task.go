// Package task owns the working directory: the recovery log with its
// version gate and read-to-append phase transition, profile file
// naming, and the working-memory buffer shared by the stages.
package task

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wordtools/wdedup/profile"
	"github.com/wordtools/wdedup/wio"
)

// Version gates the log and profile encoding. A workdir written by an
// incompatible build is rejected rather than misread.
const Version = "20190609.0001"

// Record kinds. Each appended record is its own sync unit.
const (
	kindVersion  = byte('v')
	KindSegment  = byte('s')
	KindEndProf  = byte('e')
	KindMerge    = byte('m')
	KindEndMerge = byte('x')
)

// Record is one typed recovery-log entry. Start and End are set for
// segment records; Left, Right, Out and Size for merge records.
type Record struct {
	Kind  byte
	Start uint64
	End   uint64
	Left  uint64
	Right uint64
	Out   uint64
	Size  uint64
}

// Options configure a workdir session.
type Options struct {
	MemSize uint64
	Pinned  bool
	Verbose bool
}

// Config is the per-invocation state threaded through the stages. It
// starts in the recovery phase, replaying the existing log through
// ReadRecord; RecoveryDone switches it to the append phase.
type Config struct {
	workdir  string
	logPath  string
	reader   *wio.SequentialFile
	writer   *wio.AppendFile
	boundary uint64
	WorkMem  []byte
	pinned   bool
	logger   *log.Logger
}

func newLogger(verbose bool) *log.Logger {
	if verbose {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

// Open prepares the workdir: creates it if absent, seeds a fresh log
// with the version record, verifies the version of an existing log,
// and allocates the working memory.
func Open(workdir string, opts Options) (*Config, error) {
	st, err := os.Stat(workdir)
	switch {
	case err == nil:
		if !st.IsDir() {
			return nil, wio.NewError(wio.ErrnoNotDirectory, workdir, "working directory")
		}
	case os.IsNotExist(err):
		if err := os.MkdirAll(workdir, 0755); err != nil {
			return nil, wio.FromOS(err, workdir, "working directory")
		}
	default:
		return nil, wio.FromOS(err, workdir, "working directory")
	}

	c := &Config{
		workdir: workdir,
		logPath: filepath.Join(workdir, "log"),
		logger:  newLogger(opts.Verbose),
	}

	if _, err := os.Stat(c.logPath); os.IsNotExist(err) {
		w, err := wio.CreateAppend(c.logPath, "recovery log", wio.Log)
		if err != nil {
			return nil, err
		}
		if err := w.WriteByte(kindVersion); err != nil {
			return nil, err
		}
		if err := w.WriteString([]byte(Version)); err != nil {
			return nil, err
		}
		if _, err := w.Close(); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, wio.FromOS(err, c.logPath, "recovery log")
	}

	c.reader, err = wio.OpenSequential(c.logPath, "recovery log", 0)
	if err != nil {
		return nil, err
	}
	if err := c.checkVersion(); err != nil {
		c.reader.Close()
		return nil, err
	}
	c.boundary = c.reader.Tell()

	c.WorkMem, err = allocWorkMem(opts.MemSize, opts.Pinned)
	if err != nil {
		c.reader.Close()
		return nil, err
	}
	c.pinned = opts.Pinned
	return c, nil
}

func (c *Config) checkVersion() error {
	kind, err := c.reader.ReadByte()
	if err != nil {
		return c.Corrupt()
	}
	if kind != kindVersion {
		return c.Corrupt()
	}
	v, err := c.reader.ReadString()
	if err != nil {
		return c.Corrupt()
	}
	if string(v) != Version {
		return wio.NewError(wio.ErrnoVersionMismatch, c.logPath, "recovery log")
	}
	return nil
}

// Corrupt builds the fatal error for a log that violates its own
// framing or the stage invariants.
func (c *Config) Corrupt() error {
	return wio.NewError(wio.ErrnoCorruptLog, c.logPath, "recovery log")
}

// ReadRecord returns the next complete log record during the recovery
// phase. ok=false means replay is over: the log is exhausted, its
// tail is a torn partial unit (treated as absent), or the config has
// already switched to the append phase.
func (c *Config) ReadRecord() (Record, bool, error) {
	if c.reader == nil {
		return Record{}, false, nil
	}
	eof, err := c.reader.EOF()
	if err != nil {
		return Record{}, false, err
	}
	if eof {
		return Record{}, false, nil
	}
	rec, err := c.readRecord()
	if err == io.ErrUnexpectedEOF {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	c.boundary = c.reader.Tell()
	return rec, true, nil
}

func (c *Config) readRecord() (Record, error) {
	kind, err := c.reader.ReadByte()
	if err != nil {
		return Record{}, err
	}
	rec := Record{Kind: kind}
	switch kind {
	case KindSegment:
		if rec.Start, err = c.reader.ReadU64(); err != nil {
			return Record{}, err
		}
		if rec.End, err = c.reader.ReadU64(); err != nil {
			return Record{}, err
		}
	case KindMerge:
		for _, p := range []*uint64{&rec.Left, &rec.Right, &rec.Out, &rec.Size} {
			if *p, err = c.reader.ReadU64(); err != nil {
				return Record{}, err
			}
		}
	case KindEndProf, KindEndMerge:
	default:
		return Record{}, c.Corrupt()
	}
	return rec, nil
}

// RecoveryDone closes the replay reader, drops any torn tail past the
// last complete sync unit, and reopens the log for appending. Calling
// it again is a no-op.
func (c *Config) RecoveryDone() error {
	if c.writer != nil {
		return nil
	}
	if err := c.reader.Close(); err != nil {
		return err
	}
	c.reader = nil
	st, err := os.Stat(c.logPath)
	if err != nil {
		return wio.FromOS(err, c.logPath, "recovery log")
	}
	if uint64(st.Size()) > c.boundary {
		if err := os.Truncate(c.logPath, int64(c.boundary)); err != nil {
			return wio.FromOS(err, c.logPath, "recovery log")
		}
	}
	c.writer, err = wio.OpenAppend(c.logPath, "recovery log", wio.Log)
	return err
}

// AppendSegment syncs one segment record.
func (c *Config) AppendSegment(start, end uint64) error {
	if err := c.writer.WriteByte(KindSegment); err != nil {
		return err
	}
	if err := c.writer.WriteU64(start); err != nil {
		return err
	}
	if err := c.writer.WriteU64(end); err != nil {
		return err
	}
	return c.writer.Sync()
}

// AppendEndProf syncs the profile stage's completion record.
func (c *Config) AppendEndProf() error {
	if err := c.writer.WriteByte(KindEndProf); err != nil {
		return err
	}
	return c.writer.Sync()
}

// AppendMerge syncs one merge record.
func (c *Config) AppendMerge(left, right, out, size uint64) error {
	if err := c.writer.WriteByte(KindMerge); err != nil {
		return err
	}
	for _, v := range []uint64{left, right, out, size} {
		if err := c.writer.WriteU64(v); err != nil {
			return err
		}
	}
	return c.writer.Sync()
}

// AppendEndMerge syncs the merge stage's completion record.
func (c *Config) AppendEndMerge() error {
	if err := c.writer.WriteByte(KindEndMerge); err != nil {
		return err
	}
	return c.writer.Sync()
}

// ProfilePath names profile id inside the workdir.
func (c *Config) ProfilePath(id uint64) string {
	return filepath.Join(c.workdir, strconv.FormatUint(id, 10))
}

// OpenProfile opens profile id for reading.
func (c *Config) OpenProfile(id uint64) (*profile.Reader, error) {
	f, err := wio.OpenSequential(c.ProfilePath(id), "profile", 0)
	if err != nil {
		return nil, err
	}
	return profile.NewReader(f)
}

// CreateProfile opens profile id for writing, truncating a leftover
// from an interrupted run.
func (c *Config) CreateProfile(id uint64) (*profile.Writer, error) {
	f, err := wio.CreateAppend(c.ProfilePath(id), "profile", wio.Buffered)
	if err != nil {
		return nil, err
	}
	return profile.NewWriter(f), nil
}

// RemoveProfile unlinks profile id. A missing file is fine; removal
// is replayed during recovery.
func (c *Config) RemoveProfile(id uint64) error {
	err := os.Remove(c.ProfilePath(id))
	if err != nil && !os.IsNotExist(err) {
		return wio.FromOS(err, c.ProfilePath(id), "profile")
	}
	return nil
}

// Logf writes a progress line when verbose logging is on.
func (c *Config) Logf(format string, args ...interface{}) {
	c.logger.Printf(format, args...)
}

// Close releases the log handles and the working memory.
func (c *Config) Close() error {
	var first error
	if c.reader != nil {
		if err := c.reader.Close(); err != nil {
			first = err
		}
		c.reader = nil
	}
	if c.writer != nil {
		if _, err := c.writer.Close(); err != nil && first == nil {
			first = err
		}
		c.writer = nil
	}
	if c.WorkMem != nil {
		if err := releaseWorkMem(c.WorkMem, c.pinned); err != nil && first == nil {
			first = err
		}
		c.WorkMem = nil
	}
	return first
}
