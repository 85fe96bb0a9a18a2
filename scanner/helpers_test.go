package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
)

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()

	fullPath := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(fullPath), err)
	}
	if err := os.WriteFile(fullPath, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", fullPath, err)
	}
}

func mkdirAll(t *testing.T, root, rel string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Join(root, rel), 0o750); err != nil {
		t.Fatalf("mkdir %s: %v", rel, err)
	}
}

// buildTree creates width top-level directories, each with width
// subdirectories holding three files, and returns the number of entries
// below root.
func buildTree(t *testing.T, root string, width int) int {
	t.Helper()

	n := 0
	for i := range width {
		top := fmt.Sprintf("d%02d", i)
		mkdirAll(t, root, top)
		n++
		for j := range width {
			sub := filepath.Join(top, fmt.Sprintf("s%02d", j))
			mkdirAll(t, root, sub)
			n++
			for k := range 3 {
				writeFile(t, root, filepath.Join(sub, fmt.Sprintf("f%d.txt", k)), []byte("x"))
				n++
			}
		}
		writeFile(t, root, filepath.Join(top, "top.txt"), []byte("yy"))
		n++
	}
	return n
}

// collector records every entry handed to it.
type collector struct {
	mu      sync.Mutex
	paths   map[string]int
	entries []Entry
}

func newCollector() *collector {
	return &collector{paths: make(map[string]int)}
}

func (c *collector) Apply(e *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths[e.Path]++
	c.entries = append(c.entries, *e)
	return nil
}

func (c *collector) sorted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.paths))
	for p := range c.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

type matchFunc func(e *Entry) bool

func (f matchFunc) Match(e *Entry) bool { return f(e) }
func (matchFunc) NeedsMeta() bool       { return false }

// logRecorder keeps every formatted log line.
type logRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *logRecorder) Errorf(format string, args ...any) { l.add(format, args...) }
func (l *logRecorder) Debugf(format string, args ...any) { l.add(format, args...) }

func (l *logRecorder) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *logRecorder) containing(s string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if strings.Contains(line, s) {
			n++
		}
	}
	return n
}
