// Command wdedup prints the first word that occurs exactly once in a
// file, streaming through bounded memory and resuming interrupted runs
// from the working directory's recovery log.
package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wordtools/wdedup/dedup"
	"github.com/wordtools/wdedup/pipeline"
	"github.com/wordtools/wdedup/planner"
	"github.com/wordtools/wdedup/task"
	"github.com/wordtools/wdedup/wio"
)

// Main contains the flags wdedup uses. The default values for its
// fields are set through cobra in newRootCmd.
type Main struct {
	MemorySize string
	PagePinned bool
	ProfOnly   bool
	MergeOnly  bool
	DisableGC  bool
	Dedup      string
	Planner    string
	ConfigFile string
	Verbose    bool
}

var m = &Main{}

// fileConfig mirrors the flag set for the optional toml config file.
// Pointer fields distinguish an absent key from a false one.
type fileConfig struct {
	MemorySize string `toml:"memory-size"`
	PagePinned *bool  `toml:"page-pinned"`
	DisableGC  *bool  `toml:"disable-gc"`
	Dedup      string `toml:"dedup"`
	Planner    string `toml:"planner"`
}

// applyConfig fills in flag values from the config file for every flag
// the command line left untouched.
func applyConfig(flags *pflag.FlagSet) error {
	if m.ConfigFile == "" {
		return nil
	}
	var fc fileConfig
	if _, err := toml.DecodeFile(m.ConfigFile, &fc); err != nil {
		return errors.Wrap(err, "reading config file")
	}
	if fc.MemorySize != "" && !flags.Changed("memory-size") {
		m.MemorySize = fc.MemorySize
	}
	if fc.PagePinned != nil && !flags.Changed("page-pinned") {
		m.PagePinned = *fc.PagePinned
	}
	if fc.DisableGC != nil && !flags.Changed("disable-gc") {
		m.DisableGC = *fc.DisableGC
	}
	if fc.Dedup != "" && !flags.Changed("dedup") {
		m.Dedup = fc.Dedup
	}
	if fc.Planner != "" && !flags.Changed("planner") {
		m.Planner = fc.Planner
	}
	return nil
}

func (m *Main) factory() (dedup.Factory, error) {
	switch m.Dedup {
	case "tree":
		return dedup.NewTree, nil
	case "sort":
		return dedup.NewSort, nil
	}
	return nil, errors.Errorf("unknown dedup %q, want tree or sort", m.Dedup)
}

func (m *Main) newPlanner(segs []planner.Segment) (planner.Planner, error) {
	switch m.Planner {
	case "balanced":
		return planner.NewBalanced(segs), nil
	case "dp":
		return planner.NewDP(segs), nil
	}
	return nil, errors.Errorf("unknown planner %q, want balanced or dp", m.Planner)
}

// Run executes the requested stages against input and workdir.
func (m *Main) Run(input, workdir string) error {
	if m.ProfOnly && m.MergeOnly {
		return errors.New("--wprof-only and --wmerge-only are mutually exclusive")
	}
	var memSize datasize.ByteSize
	if err := memSize.UnmarshalText([]byte(m.MemorySize)); err != nil {
		return errors.Wrapf(err, "bad memory size %q", m.MemorySize)
	}
	if memSize.Bytes() < task.MinMemory {
		return errors.Errorf("memory size %s is below the %s minimum",
			memSize.HumanReadable(), datasize.ByteSize(task.MinMemory).HumanReadable())
	}
	mk, err := m.factory()
	if err != nil {
		return err
	}

	c, err := task.Open(workdir, task.Options{
		MemSize: memSize.Bytes(),
		Pinned:  m.PagePinned,
		Verbose: m.Verbose,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	var segs []planner.Segment
	if m.MergeOnly {
		segs, err = pipeline.ReplaySegments(c)
	} else {
		segs, err = pipeline.Profile(c, input, mk)
	}
	if err != nil {
		return err
	}
	if m.ProfOnly {
		return c.Close()
	}
	if len(segs) == 0 {
		return c.Close()
	}

	pl, err := m.newPlanner(segs)
	if err != nil {
		return err
	}
	root, err := pipeline.Merge(c, pl, !m.DisableGC)
	if err != nil {
		return err
	}
	word, err := pipeline.FindFirst(c, root)
	if err != nil {
		return err
	}
	if err := c.Close(); err != nil {
		return err
	}
	if word != nil {
		fmt.Println(string(word))
	}
	return nil
}

func newRootCmd() *cobra.Command {
	rc := &cobra.Command{
		Use:   "wdedup [flags] FILE WORKDIR",
		Short: "find the first word occurring exactly once in FILE",
		Long: `wdedup streams FILE through a fixed working-memory budget, spilling
sorted per-segment word profiles into WORKDIR, pair-merging them, and
printing the first word that occurs exactly once. Interrupted runs
resume from WORKDIR's recovery log.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfig(cmd.Flags()); err != nil {
				return err
			}
			return m.Run(args[0], args[1])
		},
	}
	rc.Flags().StringVarP(&m.MemorySize, "memory-size", "m", "1g", "Working memory budget, e.g. 64m or 2g")
	rc.Flags().BoolVarP(&m.PagePinned, "page-pinned", "p", false, "Pin the working memory with mlock")
	rc.Flags().BoolVar(&m.ProfOnly, "wprof-only", false, "Stop after the profile stage")
	rc.Flags().BoolVar(&m.MergeOnly, "wmerge-only", false, "Skip the profile stage, resuming from a completed one")
	rc.Flags().BoolVar(&m.DisableGC, "disable-gc", false, "Keep merged input profiles instead of unlinking them")
	rc.Flags().StringVar(&m.Dedup, "dedup", "tree", "In-memory deduplicator: tree or sort")
	rc.Flags().StringVar(&m.Planner, "planner", "balanced", "Merge scheduler: balanced or dp")
	rc.Flags().StringVarP(&m.ConfigFile, "config", "c", "", "Toml file supplying flag defaults")
	rc.Flags().BoolVarP(&m.Verbose, "verbose", "v", false, "Enable progress logging")
	rc.SetOutput(os.Stderr)
	return rc
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var werr *wio.Error
		if errors.As(err, &werr) {
			os.Exit(-int(werr.Errno))
		}
		os.Exit(1)
	}
}
