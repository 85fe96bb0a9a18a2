// Package config holds the run configuration. A Config is built once before
// the scan starts and only read afterwards.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/riadafridishibly/parfind/logger"
	"github.com/riadafridishibly/parfind/scanner"
)

const (
	DefaultThreads  = 16
	DefaultMaxDepth = scanner.UnlimitedDepth

	// ExecTerminator ends the argument list of --exec.
	ExecTerminator = ";"
)

// Config is the complete set of user options.
type Config struct {
	Paths []string

	Threads int
	// GoDeep is the queue length at which workers switch to depth-first
	// recursion. 0 means Threads.
	GoDeep   int
	MaxDepth int

	Stat bool
	// Xdev keeps the scan on the filesystem of the first path.
	Xdev bool
	Quit bool

	// filters
	Type  string
	Names []string
	Path  string
	Size  string
	Atime string
	Ctime string
	Mtime string
	Newer string
	User  string
	Group string

	// output
	NoPrint   bool
	Print0    bool
	JSON      bool
	NoSummary bool
	Verbose   bool
	Color     string

	// actions
	CopyTo    string
	NoCopyErr bool
	NoTimeUpd bool
	Unlink    bool
	NoDelErr  bool
	ACLCheck  bool
	Exec      []string
}

func DefaultConfig() Config {
	return Config{
		Threads:  DefaultThreads,
		MaxDepth: DefaultMaxDepth,
		Color:    string(logger.ColorAuto),
	}
}

// Validate checks option values and combinations. It does not touch the
// filesystem or the user database.
func (c *Config) Validate() error {
	var errs []error

	if c.Threads < 1 {
		errs = append(errs, fmt.Errorf("threads must be at least 1, got %d", c.Threads))
	}
	if c.GoDeep < 0 {
		errs = append(errs, fmt.Errorf("godeep must not be negative, got %d", c.GoDeep))
	}
	if c.MaxDepth < 0 || c.MaxDepth > math.MaxUint16 {
		errs = append(errs, fmt.Errorf("maxdepth must be between 0 and %d, got %d", math.MaxUint16, c.MaxDepth))
	}

	if c.Type != "" {
		if _, ok := scanner.TypeFromChar(c.Type[0]); len(c.Type) != 1 || !ok {
			errs = append(errs, fmt.Errorf("invalid type %q (want one of b, c, d, p, l, f, s)", c.Type))
		}
	}

	if _, err := ParseSizeArg(c.Size); err != nil {
		errs = append(errs, err)
	}
	for _, t := range []struct{ name, val string }{
		{"atime", c.Atime}, {"ctime", c.Ctime}, {"mtime", c.Mtime},
	} {
		if _, err := parseDays(t.val); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", t.name, err))
		}
	}

	if c.CopyTo != "" && len(c.Paths) > 1 {
		errs = append(errs, errors.New(`only a single scan path may be given when "--copyto" is used`))
	}

	if len(c.Exec) > 0 && c.Exec[0] == ExecTerminator {
		errs = append(errs, errors.New("exec needs a command before the terminator"))
	}

	if _, err := logger.ParseColorMode(c.Color); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// DepthThreshold resolves GoDeep.
func (c *Config) DepthThreshold() int {
	if c.Threads <= 1 {
		return 0
	}
	if c.GoDeep == 0 {
		return c.Threads
	}
	return c.GoDeep
}

func (c *Config) hasMetaFilters() bool {
	return c.Size != "" || c.Atime != "" || c.Ctime != "" || c.Mtime != "" ||
		c.Newer != "" || c.User != "" || c.Group != ""
}

// StatAll reports whether every entry needs full metadata: requested with
// --stat, or needed by a filter, --copyto or --unlink.
func (c *Config) StatAll() bool {
	return c.Stat || c.hasMetaFilters() || c.CopyTo != "" || c.Unlink
}

// Roots returns the scan paths, defaulting to the current directory.
func (c *Config) Roots() []string {
	if len(c.Paths) == 0 {
		return []string{"."}
	}
	return c.Paths
}

// String renders the effective configuration for verbose output.
func (c *Config) String() string {
	var b strings.Builder
	field := func(name string, v any) { fmt.Fprintf(&b, "  %s: %v\n", name, v) }

	field("paths", strings.Join(c.Roots(), ", "))
	field("threads", c.Threads)
	field("godeep", c.DepthThreshold())
	field("maxdepth", c.MaxDepth)
	field("stat", c.StatAll())
	field("xdev", c.Xdev)
	if c.Type != "" {
		field("type", c.Type)
	}
	if len(c.Names) > 0 {
		field("name", strings.Join(c.Names, ", "))
	}
	for _, kv := range [][2]string{
		{"path", c.Path}, {"size", c.Size}, {"atime", c.Atime}, {"ctime", c.Ctime},
		{"mtime", c.Mtime}, {"newer", c.Newer}, {"user", c.User}, {"group", c.Group},
		{"copyto", c.CopyTo},
	} {
		if kv[1] != "" {
			field(kv[0], kv[1])
		}
	}
	if len(c.Exec) > 0 {
		field("exec", strings.Join(c.Exec, " "))
	}
	return b.String()
}
