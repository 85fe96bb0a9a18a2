package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// UnlimitedDepth disables the depth limit.
const UnlimitedDepth = math.MaxUint16

// Matcher decides whether a discovered entry is reported.
type Matcher interface {
	Match(e *Entry) bool
	// NeedsMeta reports whether Match relies on Entry.Meta, which makes
	// the scanner stat every entry.
	NeedsMeta() bool
}

// Action is run for every entry that passed the Matcher, on the worker
// that discovered it. A non-nil error aborts the run unless it was wrapped
// with Recoverable.
type Action interface {
	Apply(e *Entry) error
}

// ActionFunc adapts a function to Action.
type ActionFunc func(e *Entry) error

func (f ActionFunc) Apply(e *Entry) error { return f(e) }

// Logger receives diagnostics. Implementations must be safe for concurrent use.
type Logger interface {
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Errorf(string, ...any) {}
func (nopLogger) Debugf(string, ...any) {}

// Options configures a Scanner. It is read-only once a scan has started.
type Options struct {
	// Workers is the number of scan goroutines. Values below 1 mean 1.
	Workers int

	// DepthThreshold is the queue size at which a worker stops pushing
	// subdirectories and recurses into them itself. 0 means Workers.
	// It is forced to 0 for a single worker.
	DepthThreshold int

	// MaxDepth is the deepest entry depth that is reported. Root arguments
	// have depth 0. Use UnlimitedDepth to disable.
	MaxDepth uint16

	// StatAll requests metadata for every entry.
	StatAll bool

	// SameFilesystem keeps the scan on the device of the first root.
	SameFilesystem bool

	// QuitAfterFirstMatch stops opening directories once something matched.
	// Workers already inside a directory finish it, so more than one match
	// can still be reported.
	QuitAfterFirstMatch bool

	Filter  Matcher
	Actions []Action

	// Inspect sees every discovered entry before filtering.
	Inspect func(e *Entry)

	Stats  *Stats
	Logger Logger

	// Fatal is called for errors that make the rest of the scan
	// untrustworthy. The default logs and exits the process.
	Fatal func(err error)
}

const (
	statusIdle int32 = iota
	statusRunning
)

var ErrRunning = errors.New("scanner is already running")

// Scanner walks directory trees with a fixed pool of workers, switching
// between breadth-first pushes onto the shared queue and depth-first
// recursion depending on how much work is already queued.
type Scanner struct {
	opts      Options
	workers   int
	threshold uint64
	cls       classifier
	stats     *Stats
	log       Logger
	fatal     func(err error)

	queue    *Queue
	mountDev uint64

	// statAt is the metadata call for a directory entry; tests replace it
	// to inject failures.
	statAt func(ds *dirStream, name string) (*Meta, error)

	status int32 // idle | running

	startTime   atomic.Int64 // unix nanoseconds
	elapsedTime atomic.Int64

	ctx context.Context

	// mu guards the per-run fields below.
	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	doneChan chan struct{}
	err      error
}

func NewScanner(opts Options) *Scanner {
	workers := max(opts.Workers, 1)

	threshold := opts.DepthThreshold
	if threshold <= 0 {
		threshold = workers
	}
	// no parallelism to create with a single worker
	if workers == 1 {
		threshold = 0
	}

	stats := opts.Stats
	if stats == nil {
		stats = &Stats{}
	}

	var log Logger = nopLogger{}
	if opts.Logger != nil {
		log = opts.Logger
	}

	s := &Scanner{
		opts:      opts,
		workers:   workers,
		threshold: uint64(threshold),
		stats:     stats,
		log:       log,
		fatal:     opts.Fatal,
		cls: classifier{
			statAll:  opts.StatAll || (opts.Filter != nil && opts.Filter.NeedsMeta()),
			statDirs: opts.SameFilesystem,
		},
		statAt:   (*dirStream).statAt,
		doneChan: make(chan struct{}),
		status:   statusIdle,
	}
	if s.fatal == nil {
		s.fatal = func(err error) {
			log.Errorf("Aborting: %v", err)
			os.Exit(1)
		}
	}

	return s
}

// Start seeds the queue with roots and launches the workers. An empty roots
// list scans the current directory.
func (s *Scanner) Start(ctx context.Context, roots []string) error {
	if !atomic.CompareAndSwapInt32(&s.status, statusIdle, statusRunning) {
		return ErrRunning
	}
	start := time.Now()
	s.elapsedTime.Store(0)
	s.startTime.Store(start.UnixNano())

	ctx, cancel := context.WithCancel(ctx)
	s.ctx = ctx
	s.queue = NewQueue(s.workers)

	s.mu.Lock()
	// the channel made by NewScanner serves the first run
	if s.started {
		s.doneChan = make(chan struct{})
	}
	s.started = true
	done := s.doneChan
	s.cancel = cancel
	s.err = nil
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer atomic.StoreInt32(&s.status, statusIdle)
		defer cancel()

		err := s.run(roots)

		s.elapsedTime.Store(int64(time.Since(start)))
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}()

	return nil
}

// Wait blocks until the scan started by Start is complete.
func (s *Scanner) Wait() error {
	<-s.Done()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Run is Start followed by Wait.
func (s *Scanner) Run(ctx context.Context, roots []string) error {
	if err := s.Start(ctx, roots); err != nil {
		return err
	}
	return s.Wait()
}

// Stop cancels a running scan and waits for the workers to return.
func (s *Scanner) Stop() {
	if !s.IsRunning() {
		return
	}
	s.mu.Lock()
	cancel, done := s.cancel, s.doneChan
	s.mu.Unlock()
	cancel()
	<-done
}

func (s *Scanner) IsRunning() bool {
	return atomic.LoadInt32(&s.status) == statusRunning
}

// Done is closed when the current or last scan has finished. Before the
// first Start it is open.
func (s *Scanner) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doneChan
}

func (s *Scanner) Stats() *Stats {
	return s.stats
}

func (s *Scanner) ElapsedTime() time.Duration {
	start := s.startTime.Load()
	if start == 0 {
		return 0
	}
	elapsed := s.elapsedTime.Load()
	if elapsed == 0 {
		return time.Since(time.Unix(0, start))
	}
	return time.Duration(elapsed)
}

func (s *Scanner) run(roots []string) error {
	if len(roots) == 0 {
		roots = []string{"."}
	}

	if s.opts.SameFilesystem {
		meta, err := Stat(roots[0])
		if err != nil {
			return fmt.Errorf("get device id of %s: %w", roots[0], err)
		}
		s.mountDev = meta.Dev
	}

	stop := context.AfterFunc(s.ctx, s.queue.Abort)
	defer stop()

	rootFailed := s.seed(roots)

	var wg sync.WaitGroup
	for range s.workers {
		wg.Go(s.worker)
	}
	wg.Wait()

	if err := s.ctx.Err(); err != nil {
		return err
	}
	if rootFailed {
		return ErrRootAccess
	}
	return nil
}

// seed classifies the root arguments and queues the directories among them.
// It reports whether any root could not be accessed.
func (s *Scanner) seed(roots []string) bool {
	failed := false

	for _, root := range roots {
		if s.ctx.Err() != nil {
			return failed
		}

		meta, err := Lstat(root)
		if err != nil {
			failed = true
			s.stats.Errors.Add(1)
			s.log.Errorf("Failed to get attributes for path: %s; Error: %v", root, err)
			if isAccessError(err) {
				continue
			}
			s.fatal(fmt.Errorf("get attributes of %s: %w", root, err))
			return failed
		}

		e := Entry{Path: root, Meta: meta}
		if !e.IsDir() {
			s.stats.FilesFound.Add(1)
			s.process(&e)
			continue
		}

		s.stats.DirsFound.Add(1)
		s.process(&e)

		if s.opts.MaxDepth > 0 {
			s.queue.Push(WorkItem{Path: trimRootSlash(root), Depth: 0})
		}
	}

	return failed
}

func (s *Scanner) worker() {
	for {
		item, ok := s.queue.TryPop()
		if !ok {
			item, ok = s.queue.PopWait()
			if !ok {
				return
			}
		}
		s.scanDir(item.Path, item.Depth)
	}
}

// scanDir expands one directory. Subdirectories go onto the shared queue
// while it is short and are recursed into directly once it holds at least
// threshold items.
func (s *Scanner) scanDir(dirPath string, depth uint16) {
	if s.ctx.Err() != nil {
		return
	}
	if s.opts.QuitAfterFirstMatch && s.stats.FilterMatches.Load() > 0 {
		return
	}

	ds, err := openDirStream(dirPath)
	if err != nil {
		s.stats.Errors.Add(1)
		s.log.Errorf("Failed to open dir: '%s'; Error: %v", dirPath, err)
		if !isAccessError(err) {
			s.fatal(fmt.Errorf("open dir %s: %w", dirPath, err))
		}
		return
	}
	defer ds.close()

	childDepth := depth + 1

	for {
		name, hint, err := ds.next()
		if err != nil {
			if err != io.EOF {
				s.stats.Errors.Add(1)
				s.log.Errorf("Failed to read from dir: %s; Error: %v", dirPath, err)
			}
			return
		}

		e := s.classify(ds, dirPath, name, hint, childDepth)

		if !e.IsDir() {
			s.stats.FilesFound.Add(1)
			s.process(&e)
			continue
		}

		s.stats.DirsFound.Add(1)
		s.process(&e)

		if !s.shouldDescend(&e) {
			continue
		}

		if s.queue.Len() >= s.threshold {
			s.scanDir(e.Path, childDepth)
		} else {
			s.queue.Push(WorkItem{Path: e.Path, Depth: childDepth})
		}
	}
}

func (s *Scanner) shouldDescend(e *Entry) bool {
	if e.Depth >= s.opts.MaxDepth {
		return false
	}
	if s.opts.SameFilesystem {
		return e.Meta != nil && e.Meta.Dev == s.mountDev
	}
	return true
}

// process runs the filter and, on a match, every action in order.
func (s *Scanner) process(e *Entry) {
	if s.opts.Inspect != nil {
		s.opts.Inspect(e)
	}

	if s.opts.Filter != nil && !s.opts.Filter.Match(e) {
		return
	}

	for _, a := range s.opts.Actions {
		err := a.Apply(e)
		if err == nil {
			continue
		}
		s.stats.Errors.Add(1)
		if !IsRecoverable(err) {
			// the fatal hook reports it
			s.fatal(err)
			return
		}
		s.log.Errorf("%v", err)
	}

	s.stats.FilterMatches.Add(1)
}

// trimRootSlash drops one trailing slash so children are joined with a
// single one, like find(1) does.
func trimRootSlash(p string) string {
	if p != "/" && len(p) > 1 && p[len(p)-1] == '/' {
		return p[:len(p)-1]
	}
	return p
}
