package filter

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"

	"github.com/riadafridishibly/parfind/scanner"
)

// Kind selects the attribute a size/time threshold applies to.
type Kind int

const (
	KindSize Kind = iota
	KindAtime
	KindCtime
	KindMtime
	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindSize:
		return "size"
	case KindAtime:
		return "atime"
	case KindCtime:
		return "ctime"
	case KindMtime:
		return "mtime"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Op is a bitmask of the comparisons set on a Threshold.
type Op uint8

const (
	OpExact Op = 1 << iota
	OpLess
	OpGreater
)

// Threshold holds up to three comparisons against one attribute. Values are
// bytes for KindSize and epoch seconds for the time kinds.
type Threshold struct {
	Ops     Op
	Exact   int64
	Less    int64
	Greater int64
}

func (t Threshold) active() bool { return t.Ops != 0 }

// match ANDs every comparison that is set.
func (t Threshold) match(v int64) bool {
	if t.Ops&OpExact != 0 && v != t.Exact {
		return false
	}
	if t.Ops&OpLess != 0 && v >= t.Less {
		return false
	}
	if t.Ops&OpGreater != 0 && v <= t.Greater {
		return false
	}
	return true
}

var kindFields = [numKinds]func(m *scanner.Meta) int64{
	KindSize:  func(m *scanner.Meta) int64 { return m.Size },
	KindAtime: func(m *scanner.Meta) int64 { return m.Atime.Unix() },
	KindCtime: func(m *scanner.Meta) int64 { return m.Ctime.Unix() },
	KindMtime: func(m *scanner.Meta) int64 { return m.Mtime.Unix() },
}

// Config is the set of active filters. The zero value matches everything.
type Config struct {
	// Type is a find(1) type letter, 0 for any type.
	Type byte

	// Names are OR-matched against the base name of each entry.
	Names []string

	// Path is matched against the full path of non-directory entries.
	Path string

	Thresholds [numKinds]Threshold

	UID *uint32
	GID *uint32
}

// SetThreshold adds one comparison for kind. Setting the same op twice keeps
// the last value.
func (c *Config) SetThreshold(k Kind, op Op, v int64) {
	t := &c.Thresholds[k]
	t.Ops |= op
	switch op {
	case OpExact:
		t.Exact = v
	case OpLess:
		t.Less = v
	case OpGreater:
		t.Greater = v
	}
}

func (c *Config) hasThresholds() bool {
	for _, t := range c.Thresholds {
		if t.active() {
			return true
		}
	}
	return false
}

// NeedsMeta reports whether any active stage reads entry metadata.
func (c *Config) NeedsMeta() bool {
	return c.hasThresholds() || c.UID != nil || c.GID != nil
}

type stage func(e *scanner.Entry) bool

// Pipeline runs the active filter stages in a fixed order and stops at the
// first one that rejects an entry. It is immutable and safe for concurrent use.
type Pipeline struct {
	stages    []stage
	needsMeta bool
	log       scanner.Logger
}

// New compiles cfg into a Pipeline. log receives a line for entries whose
// type cannot be determined; it may be nil.
func New(cfg Config, log scanner.Logger) (*Pipeline, error) {
	p := &Pipeline{
		needsMeta: cfg.NeedsMeta(),
		log:       log,
	}

	if cfg.Type != 0 {
		want, ok := scanner.TypeFromChar(cfg.Type)
		if !ok {
			return nil, fmt.Errorf("invalid type filter %q", cfg.Type)
		}
		p.stages = append(p.stages, p.typeStage(want))
	}

	if len(cfg.Names) > 0 {
		globs := make([]glob.Glob, 0, len(cfg.Names))
		for _, name := range cfg.Names {
			g, err := compileFnmatch(name)
			if err != nil {
				return nil, fmt.Errorf("invalid name pattern %q: %w", name, err)
			}
			globs = append(globs, g)
		}
		p.stages = append(p.stages, nameStage(globs))
	}

	if cfg.Path != "" {
		g, err := compileFnmatch(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("invalid path pattern %q: %w", cfg.Path, err)
		}
		p.stages = append(p.stages, pathStage(g))
	}

	if cfg.hasThresholds() {
		p.stages = append(p.stages, thresholdStage(cfg.Thresholds))
	}

	if cfg.UID != nil || cfg.GID != nil {
		p.stages = append(p.stages, ownerStage(cfg.UID, cfg.GID))
	}

	return p, nil
}

// Match reports whether e passes every active stage.
func (p *Pipeline) Match(e *scanner.Entry) bool {
	for _, s := range p.stages {
		if !s(e) {
			return false
		}
	}
	return true
}

func (p *Pipeline) NeedsMeta() bool {
	return p.needsMeta
}

// Active reports whether any stage is configured.
func (p *Pipeline) Active() bool {
	return len(p.stages) > 0
}

func (p *Pipeline) typeStage(want scanner.EntryType) stage {
	return func(e *scanner.Entry) bool {
		t := e.ResolvedType()
		if t == scanner.TypeUnknown {
			if p.log != nil {
				p.log.Errorf("Cannot identify type of entry. Path: %s", e.Path)
			}
			return false
		}
		return t == want
	}
}

func nameStage(globs []glob.Glob) stage {
	return func(e *scanner.Entry) bool {
		base := filepath.Base(e.Path)
		for _, g := range globs {
			if g.Match(base) {
				return true
			}
		}
		return false
	}
}

func pathStage(g glob.Glob) stage {
	return func(e *scanner.Entry) bool {
		return isNonDir(e) && g.Match(e.Path)
	}
}

func thresholdStage(thresholds [numKinds]Threshold) stage {
	return func(e *scanner.Entry) bool {
		if !isNonDir(e) || e.Meta == nil {
			return false
		}
		for k, t := range thresholds {
			if t.active() && !t.match(kindFields[k](e.Meta)) {
				return false
			}
		}
		return true
	}
}

func ownerStage(uid, gid *uint32) stage {
	return func(e *scanner.Entry) bool {
		if e.Meta == nil {
			return false
		}
		if uid != nil && e.Meta.UID != *uid {
			return false
		}
		if gid != nil && e.Meta.GID != *gid {
			return false
		}
		return true
	}
}

// isNonDir is true only when the entry is known not to be a directory.
func isNonDir(e *scanner.Entry) bool {
	t := e.ResolvedType()
	return t != scanner.TypeUnknown && t != scanner.TypeDir
}
