package config

import (
	"fmt"
	"os/user"
	"strconv"
	"time"

	"github.com/riadafridishibly/parfind/filter"
	"github.com/riadafridishibly/parfind/scanner"
)

const secondsPerDay = 24 * 60 * 60

// Comparison is a parsed [+|-]N argument.
type Comparison struct {
	Op    filter.Op
	Value int64
}

// signedArg splits a [+|-]N argument into its sign and digits.
func signedArg(s string) (sign byte, rest string) {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		return s[0], s[1:]
	}
	return 0, s
}

var sizeSuffixes = map[byte]int64{
	'c': 1,
	'b': 512,
	'w': 2,
	'k': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
}

// ParseSizeArg parses a find(1) style size: "+N" is greater than, "-N" less
// than and "N" exactly N. N is in bytes unless it carries one of the
// suffixes c (bytes), b (512-byte blocks), w (2-byte words), k, M or G.
// An empty string yields nil.
func ParseSizeArg(s string) (*Comparison, error) {
	if s == "" {
		return nil, nil
	}

	sign, num := signedArg(s)
	mult := int64(1)
	if n := len(num); n > 0 {
		if m, ok := sizeSuffixes[num[n-1]]; ok {
			mult = m
			num = num[:n-1]
		}
	}

	v, err := strconv.ParseInt(num, 10, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("invalid size %q", s)
	}
	if v > (1<<63-1)/mult {
		return nil, fmt.Errorf("size %q out of range", s)
	}

	c := &Comparison{Op: filter.OpExact, Value: v * mult}
	switch sign {
	case '-':
		c.Op = filter.OpLess
	case '+':
		c.Op = filter.OpGreater
	}
	return c, nil
}

type days struct {
	sign byte
	n    int64
}

func parseDays(s string) (*days, error) {
	if s == "" {
		return nil, nil
	}
	sign, num := signedArg(s)
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%q is not a number of days", s)
	}
	return &days{sign: sign, n: n}, nil
}

// ParseTimeArg parses a number of days into an epoch threshold relative to
// now. "-N" (more recent than N days) compares greater than, "+N" (older)
// less than, and "N" exactly.
func ParseTimeArg(s string, now time.Time) (*Comparison, error) {
	d, err := parseDays(s)
	if err != nil || d == nil {
		return nil, err
	}

	c := &Comparison{Op: filter.OpExact, Value: now.Unix() - d.n*secondsPerDay}
	switch d.sign {
	case '-':
		c.Op = filter.OpGreater
	case '+':
		c.Op = filter.OpLess
	}
	return c, nil
}

// FilterConfig resolves the filter options into a filter.Config. Time
// arguments are taken relative to now. It may stat --newer and look up user
// and group names.
func (c *Config) FilterConfig(now time.Time) (filter.Config, error) {
	fc := filter.Config{
		Names: c.Names,
		Path:  c.Path,
	}
	if c.Type != "" {
		fc.Type = c.Type[0]
	}

	size, err := ParseSizeArg(c.Size)
	if err != nil {
		return fc, err
	}
	if size != nil {
		fc.SetThreshold(filter.KindSize, size.Op, size.Value)
	}

	for _, t := range []struct {
		kind filter.Kind
		arg  string
	}{
		{filter.KindAtime, c.Atime},
		{filter.KindCtime, c.Ctime},
		{filter.KindMtime, c.Mtime},
	} {
		cmp, err := ParseTimeArg(t.arg, now)
		if err != nil {
			return fc, fmt.Errorf("invalid %s: %w", t.kind, err)
		}
		if cmp != nil {
			fc.SetThreshold(t.kind, cmp.Op, cmp.Value)
		}
	}

	if c.Newer != "" {
		meta, err := scanner.Stat(c.Newer)
		if err != nil {
			return fc, fmt.Errorf("Failed to get attributes of path: %s; Error: %w", c.Newer, err)
		}
		fc.SetThreshold(filter.KindMtime, filter.OpGreater, meta.Mtime.Unix())
	}

	if c.User != "" {
		uid, err := ResolveUser(c.User)
		if err != nil {
			return fc, err
		}
		fc.UID = &uid
	}
	if c.Group != "" {
		gid, err := ResolveGroup(c.Group)
		if err != nil {
			return fc, err
		}
		fc.GID = &gid
	}

	return fc, nil
}

// ResolveUser accepts a numeric UID or a user name.
func ResolveUser(s string) (uint32, error) {
	if id, ok := numericID(s); ok {
		return id, nil
	}
	u, err := user.Lookup(s)
	if err != nil {
		return 0, fmt.Errorf("given user name could not be resolved to numeric UID. Does the user exist? User: %s: %w", s, err)
	}
	return parseID(u.Uid)
}

// ResolveGroup accepts a numeric GID or a group name.
func ResolveGroup(s string) (uint32, error) {
	if id, ok := numericID(s); ok {
		return id, nil
	}
	g, err := user.LookupGroup(s)
	if err != nil {
		return 0, fmt.Errorf("given group name could not be resolved to numeric GID. Does the group exist? Group: %s: %w", s, err)
	}
	return parseID(g.Gid)
}

// numericID treats arguments starting with a digit as ids, like find(1).
func numericID(s string) (uint32, bool) {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return 0, false
	}
	id, err := parseID(s)
	return id, err == nil
}

func parseID(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return uint32(v), nil
}
