package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runScan(t *testing.T, opts Options, roots ...string) (*Scanner, error) {
	t.Helper()

	s := NewScanner(opts)

	done := make(chan error, 1)
	go func() { done <- s.Run(t.Context(), roots) }()

	select {
	case err := <-done:
		return s, err
	case <-time.After(30 * time.Second):
		t.Fatalf("scan of %v did not terminate", roots)
		return nil, nil
	}
}

func referenceSet(t *testing.T, root string) []string {
	t.Helper()

	var (
		mu    sync.Mutex
		paths []string
	)
	_, err := ReferenceWalk(root, 4, func(path string, _ bool) {
		mu.Lock()
		paths = append(paths, filepath.Clean(path))
		mu.Unlock()
	})
	require.NoError(t, err)
	sort.Strings(paths)
	return paths
}

func TestScannerReportsEveryEntryForAnyWorkerCount(t *testing.T) {
	root := t.TempDir()
	n := buildTree(t, root, 6)
	want := referenceSet(t, root)
	require.Len(t, want, n+1)

	for _, workers := range []int{1, 2, 8, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			c := newCollector()
			s, err := runScan(t, Options{
				Workers:  workers,
				MaxDepth: UnlimitedDepth,
				Actions:  []Action{c},
			}, root)
			require.NoError(t, err)

			got := c.sorted()
			assert.Equal(t, want, got)
			for p, count := range c.paths {
				assert.Equal(t, 1, count, "reported more than once: %s", p)
			}

			st := s.Stats().Snapshot()
			assert.Equal(t, uint64(n+1), st.Entries())
			assert.Equal(t, uint64(n+1), st.FilterMatches)
			assert.Zero(t, st.Errors)
		})
	}
}

func TestScannerTerminatesWithSmallThresholds(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, 4)

	for _, tc := range []struct{ workers, threshold int }{
		{1, 0}, {2, 1}, {8, 1}, {8, 100},
	} {
		t.Run(fmt.Sprintf("workers=%d/threshold=%d", tc.workers, tc.threshold), func(t *testing.T) {
			_, err := runScan(t, Options{
				Workers:        tc.workers,
				DepthThreshold: tc.threshold,
				MaxDepth:       UnlimitedDepth,
			}, root)
			require.NoError(t, err)
		})
	}
}

func TestScannerEmptyDirectory(t *testing.T) {
	root := t.TempDir()

	for _, workers := range []int{1, 2, 8} {
		c := newCollector()
		s, err := runScan(t, Options{Workers: workers, MaxDepth: UnlimitedDepth, Actions: []Action{c}}, root)
		require.NoError(t, err)

		assert.Equal(t, []string{root}, c.sorted())
		st := s.Stats().Snapshot()
		assert.Equal(t, uint64(1), st.DirsFound)
		assert.Zero(t, st.FilesFound)
	}
}

func TestScannerDepthLimit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/b/c/deep.txt", []byte("x"))
	writeFile(t, root, "a/one.txt", []byte("x"))
	writeFile(t, root, "top.txt", []byte("x"))

	c := newCollector()
	_, err := runScan(t, Options{Workers: 4, MaxDepth: 2, Actions: []Action{c}}, root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		root,
		filepath.Join(root, "a"),
		filepath.Join(root, "a", "b"),
		filepath.Join(root, "a", "one.txt"),
		filepath.Join(root, "top.txt"),
	}, c.sorted())

	for _, e := range c.entries {
		assert.LessOrEqual(t, e.Depth, uint16(2))
	}
}

func TestScannerMaxDepthZeroReportsRootsOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "child.txt", []byte("x"))

	c := newCollector()
	_, err := runScan(t, Options{Workers: 2, MaxDepth: 0, Actions: []Action{c}}, root)
	require.NoError(t, err)
	assert.Equal(t, []string{root}, c.sorted())
}

func TestScannerTrailingSlashRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "f.txt", []byte("x"))

	c := newCollector()
	_, err := runScan(t, Options{Workers: 2, MaxDepth: UnlimitedDepth, Actions: []Action{c}}, root+"/")
	require.NoError(t, err)
	assert.Equal(t, []string{root + "/", root + "/f.txt"}, c.sorted())
}

func TestScannerNonDirectoryRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "f.txt", []byte("x"))
	file := filepath.Join(root, "f.txt")

	c := newCollector()
	s, err := runScan(t, Options{Workers: 2, MaxDepth: UnlimitedDepth, Actions: []Action{c}}, file)
	require.NoError(t, err)
	assert.Equal(t, []string{file}, c.sorted())
	assert.Equal(t, uint64(1), s.Stats().Snapshot().FilesFound)
}

func TestScannerMissingRootContinuesWithOthers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "f.txt", []byte("x"))
	missing := filepath.Join(root, "does-not-exist")

	c := newCollector()
	s, err := runScan(t, Options{Workers: 2, MaxDepth: UnlimitedDepth, Actions: []Action{c}}, missing, root)
	require.ErrorIs(t, err, ErrRootAccess)

	assert.Equal(t, []string{root, filepath.Join(root, "f.txt")}, c.sorted())
	assert.Equal(t, uint64(1), s.Stats().Snapshot().Errors)
}

func TestScannerPermissionDeniedRoot(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	base := t.TempDir()
	locked := filepath.Join(base, "locked")
	mkdirAll(t, base, "locked/inner")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o750) })

	open := filepath.Join(base, "open")
	writeFile(t, base, "open/f.txt", []byte("x"))

	for _, workers := range []int{1, 4} {
		c := newCollector()
		s, err := runScan(t, Options{Workers: workers, MaxDepth: UnlimitedDepth, Actions: []Action{c}}, locked, open)
		require.NoError(t, err)

		assert.Equal(t, []string{locked, open, filepath.Join(open, "f.txt")}, c.sorted())
		assert.Equal(t, uint64(1), s.Stats().Snapshot().Errors)
	}
}

func TestScannerPermissionDeniedSubdirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := t.TempDir()
	writeFile(t, root, "locked/hidden.txt", []byte("x"))
	writeFile(t, root, "visible.txt", []byte("x"))
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o750) })

	c := newCollector()
	s, err := runScan(t, Options{Workers: 3, MaxDepth: UnlimitedDepth, Actions: []Action{c}}, root)
	require.NoError(t, err)

	assert.Equal(t, []string{root, locked, filepath.Join(root, "visible.txt")}, c.sorted())
	assert.Equal(t, uint64(1), s.Stats().Snapshot().Errors)
}

func TestScannerFilterSkipsActions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.go", []byte("x"))
	writeFile(t, root, "sub/keep2.go", []byte("x"))
	writeFile(t, root, "drop.txt", []byte("x"))

	c := newCollector()
	s, err := runScan(t, Options{
		Workers:  2,
		MaxDepth: UnlimitedDepth,
		Filter:   matchFunc(func(e *Entry) bool { return filepath.Ext(e.Path) == ".go" }),
		Actions:  []Action{c},
	}, root)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(root, "keep.go"), filepath.Join(root, "sub", "keep2.go")}, c.sorted())
	st := s.Stats().Snapshot()
	assert.Equal(t, uint64(2), st.FilterMatches)
	assert.Equal(t, uint64(5), st.Entries())
}

func TestScannerRecoverableActionErrorIsCounted(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", []byte("x"))
	writeFile(t, root, "b.txt", []byte("x"))

	failing := ActionFunc(func(e *Entry) error {
		if filepath.Base(e.Path) == "a.txt" {
			return Recoverable(errors.New("cannot handle a.txt"))
		}
		return nil
	})
	c := newCollector()
	log := &logRecorder{}

	s, err := runScan(t, Options{Workers: 2, MaxDepth: UnlimitedDepth, Actions: []Action{failing, c}, Logger: log}, root)
	require.NoError(t, err)

	// later actions still run after a recoverable failure
	assert.Len(t, c.sorted(), 3)
	st := s.Stats().Snapshot()
	assert.Equal(t, uint64(1), st.Errors)
	assert.Equal(t, uint64(3), st.FilterMatches)
	assert.Equal(t, 1, log.containing("cannot handle a.txt"))
}

func TestScannerFatalActionErrorStopsRun(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, 3)

	var (
		mu     sync.Mutex
		fatals []error
	)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	boom := errors.New("boom")
	log := &logRecorder{}
	s := NewScanner(Options{
		Workers:  4,
		MaxDepth: UnlimitedDepth,
		Logger:   log,
		Actions: []Action{ActionFunc(func(e *Entry) error {
			if e.Depth == 1 {
				return boom
			}
			return nil
		})},
		Fatal: func(err error) {
			mu.Lock()
			fatals = append(fatals, err)
			mu.Unlock()
			cancel()
		},
	})

	err := s.Run(ctx, []string{root})
	require.ErrorIs(t, err, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, fatals)
	assert.ErrorIs(t, fatals[0], boom)
	assert.False(t, s.IsRunning())
	// reporting a fatal error is left to the hook
	assert.Zero(t, log.containing("boom"))
}

func TestScannerFailedStatStillReportsEntry(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", []byte("x"))
	writeFile(t, root, "b.txt", []byte("x"))

	statErr := errors.New("injected stat failure")
	c := newCollector()
	log := &logRecorder{}
	s := NewScanner(Options{
		Workers:  2,
		MaxDepth: UnlimitedDepth,
		StatAll:  true,
		Actions:  []Action{c},
		Logger:   log,
	})
	s.statAt = func(ds *dirStream, name string) (*Meta, error) {
		if name == "a.txt" {
			return nil, statErr
		}
		return ds.statAt(name)
	}

	require.NoError(t, s.Run(t.Context(), []string{root}))

	failed := filepath.Join(root, "a.txt")
	c.mu.Lock()
	assert.Equal(t, 1, c.paths[failed])
	for _, e := range c.entries {
		switch e.Path {
		case failed:
			assert.Nil(t, e.Meta)
			assert.ErrorIs(t, e.StatErr, statErr)
		case filepath.Join(root, "b.txt"):
			assert.NotNil(t, e.Meta)
			assert.NoError(t, e.StatErr)
		}
	}
	c.mu.Unlock()

	st := s.Stats().Snapshot()
	assert.Equal(t, uint64(1), st.Errors)
	assert.Equal(t, uint64(3), st.FilterMatches)
	assert.Equal(t, 1, log.containing("Failed to get attributes for path: "+failed))
}

func TestScannerQuitAfterFirstMatchSingleWorker(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, 3)

	c := newCollector()
	s, err := runScan(t, Options{
		Workers:             1,
		MaxDepth:            UnlimitedDepth,
		QuitAfterFirstMatch: true,
		Actions:             []Action{c},
	}, root)
	require.NoError(t, err)

	// the root itself matches, so no directory is opened
	assert.Equal(t, []string{root}, c.sorted())
	assert.Equal(t, uint64(1), s.Stats().Snapshot().FilterMatches)
}

func TestScannerQuitAfterFirstMatchIsBestEffort(t *testing.T) {
	root := t.TempDir()
	total := buildTree(t, root, 5)

	c := newCollector()
	_, err := runScan(t, Options{
		Workers:             8,
		MaxDepth:            UnlimitedDepth,
		QuitAfterFirstMatch: true,
		Filter:              matchFunc(func(e *Entry) bool { return filepath.Ext(e.Path) == ".txt" }),
		Actions:             []Action{c},
	}, root)
	require.NoError(t, err)

	got := len(c.sorted())
	assert.GreaterOrEqual(t, got, 1)
	assert.Less(t, got, total)
}

func TestScannerLazyStat(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, 3)

	s, err := runScan(t, Options{Workers: 4, MaxDepth: UnlimitedDepth}, root)
	require.NoError(t, err)
	st := s.Stats().Snapshot()
	// only entries without a type hint need a metadata call
	assert.Equal(t, st.UnknownFound, st.StatCalls)

	c := newCollector()
	s, err = runScan(t, Options{Workers: 4, MaxDepth: UnlimitedDepth, StatAll: true, Actions: []Action{c}}, root)
	require.NoError(t, err)
	st = s.Stats().Snapshot()
	assert.Equal(t, st.Entries()-1, st.StatCalls, "every entry except the root is stat'ed once")
	for _, e := range c.entries {
		require.NotNil(t, e.Meta, e.Path)
		assert.Equal(t, e.ResolvedType(), e.Meta.Type(), e.Path)
	}
}

func TestScannerSameFilesystem(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, 3)

	rootMeta, err := Stat(root)
	require.NoError(t, err)

	c := newCollector()
	s, err := runScan(t, Options{Workers: 4, MaxDepth: UnlimitedDepth, SameFilesystem: true, Actions: []Action{c}}, root)
	require.NoError(t, err)

	for _, e := range c.entries {
		if e.IsDir() {
			require.NotNil(t, e.Meta, e.Path)
			assert.Equal(t, rootMeta.Dev, e.Meta.Dev, e.Path)
		}
	}
	assert.Equal(t, uint64(len(c.entries)), s.Stats().Snapshot().Entries())
}

func TestScannerSymlinksAreNotFollowed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "real/f.txt", []byte("x"))
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")))

	c := newCollector()
	_, err := runScan(t, Options{Workers: 2, MaxDepth: UnlimitedDepth, Actions: []Action{c}}, root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		root,
		filepath.Join(root, "link"),
		filepath.Join(root, "real"),
		filepath.Join(root, "real", "f.txt"),
	}, c.sorted())

	for _, e := range c.entries {
		if e.Path == filepath.Join(root, "link") {
			assert.Equal(t, TypeSymlink, e.ResolvedType())
		}
	}
}

func TestScannerDoneBeforeStart(t *testing.T) {
	s := NewScanner(Options{Workers: 2, MaxDepth: UnlimitedDepth})
	require.NotNil(t, s.Done())
	select {
	case <-s.Done():
		t.Fatal("done closed before the scan started")
	default:
	}
	assert.Zero(t, s.ElapsedTime())
}

func TestScannerElapsedTimeWhileRunning(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, 4)

	s := NewScanner(Options{Workers: 4, MaxDepth: UnlimitedDepth})
	require.NoError(t, s.Start(t.Context(), []string{root}))

	var wg sync.WaitGroup
	wg.Go(func() {
		for s.IsRunning() {
			_ = s.ElapsedTime()
		}
	})
	require.NoError(t, s.Wait())
	wg.Wait()

	<-s.Done()
	assert.Greater(t, s.ElapsedTime(), time.Duration(0))
}

func TestScannerStartStop(t *testing.T) {
	root := t.TempDir()
	buildTree(t, root, 3)

	s := NewScanner(Options{Workers: 2, MaxDepth: UnlimitedDepth})
	require.NoError(t, s.Start(t.Context(), []string{root}))
	assert.ErrorIs(t, s.Start(t.Context(), []string{root}), ErrRunning)

	s.Stop()
	<-s.Done()
	assert.False(t, s.IsRunning())
	assert.Greater(t, s.ElapsedTime(), time.Duration(0))

	// a stopped scanner can be started again
	require.NoError(t, s.Run(t.Context(), []string{root}))
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "a/b", joinPath("a", "b"))
	assert.Equal(t, "/etc", joinPath("/", "etc"))
	assert.Equal(t, "a/b", trimRootSlash("a/") + "/b")
	assert.Equal(t, "/", trimRootSlash("/"))
}

func TestEntryTypeNames(t *testing.T) {
	for _, tc := range []struct {
		typ  EntryType
		name string
		char byte
	}{
		{TypeBlockDev, "blockdev", 'b'},
		{TypeCharDev, "chardev", 'c'},
		{TypeDir, "dir", 'd'},
		{TypeFIFO, "fifo", 'p'},
		{TypeSymlink, "symlink", 'l'},
		{TypeRegular, "regfile", 'f'},
		{TypeSocket, "unixsock", 's'},
		{TypeUnknown, "unknown", 0},
	} {
		assert.Equal(t, tc.name, tc.typ.String())
		assert.Equal(t, tc.char, tc.typ.Char())
		if tc.char != 0 {
			got, ok := TypeFromChar(tc.char)
			assert.True(t, ok)
			assert.Equal(t, tc.typ, got)
		}
	}
	_, ok := TypeFromChar('x')
	assert.False(t, ok)
}

func TestClassifierNeedsStat(t *testing.T) {
	plain := classifier{}
	assert.False(t, plain.needsStat(TypeRegular))
	assert.False(t, plain.needsStat(TypeDir))
	assert.True(t, plain.needsStat(TypeUnknown))

	mount := classifier{statDirs: true}
	assert.True(t, mount.needsStat(TypeDir))
	assert.False(t, mount.needsStat(TypeSymlink))

	all := classifier{statAll: true}
	assert.True(t, all.needsStat(TypeRegular))
}
