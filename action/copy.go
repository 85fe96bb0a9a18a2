package action

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/riadafridishibly/parfind/scanner"
)

const copyBufferSize = 4 * 1024 * 1024

// CopyOptions controls the Copier.
type CopyOptions struct {
	// UpdateTimes restores atime and mtime of the source on the copy.
	UpdateTimes bool
	// IgnoreErrors turns copy failures into counted errors.
	IgnoreErrors bool
}

// Copier mirrors matched directories, symlinks and regular files from below
// SrcRoot into DestDir. Hardlinks are not preserved. Entries must carry
// metadata.
type Copier struct {
	srcRoot string
	destDir string
	opts    CopyOptions
	stats   *scanner.Stats
	log     Logger

	bufs sync.Pool
}

func NewCopier(srcRoot, destDir string, opts CopyOptions, stats *scanner.Stats, log Logger) *Copier {
	if stats == nil {
		stats = &scanner.Stats{}
	}
	return &Copier{
		srcRoot: srcRoot,
		destDir: destDir,
		opts:    opts,
		stats:   stats,
		log:     orNop(log),
		bufs: sync.Pool{New: func() any {
			b := make([]byte, copyBufferSize)
			return &b
		}},
	}
}

// DestPath maps a scanned path to its location below DestDir.
func (c *Copier) DestPath(path string) string {
	rel := strings.TrimPrefix(path, c.srcRoot)
	return filepath.Join(c.destDir, rel)
}

func (c *Copier) Apply(e *scanner.Entry) error {
	dest := c.DestPath(e.Path)

	if e.Meta == nil {
		return c.fail(fmt.Errorf("Failed to copy entry without attributes: %s", e.Path))
	}

	c.log.Debugf("Copying: %s -> %s", e.Path, dest)

	switch e.Meta.Type() {
	case scanner.TypeDir:
		return c.copyDir(e.Meta, dest)
	case scanner.TypeSymlink:
		return c.copySymlink(e.Path, e.Meta, dest)
	case scanner.TypeRegular:
		return c.copyFile(e.Path, e.Meta, dest)
	}

	c.log.Warnf("Skipping copy of entry due to non-regular file type. Path: %s", e.Path)
	c.stats.FilesNotCopied.Add(1)
	return nil
}

func (c *Copier) fail(err error) error {
	return configurable(err, c.opts.IgnoreErrors)
}

func (c *Copier) copyDir(meta *scanner.Meta, dest string) error {
	mode := (meta.Mode & 0o777) | unix.S_IRWXU
	if err := unix.Mkdir(dest, mode); err != nil && !errors.Is(err, unix.EEXIST) {
		return c.fail(fmt.Errorf("Failed to create dir: %s; Error: %w", dest, err))
	}
	return c.restoreTimes(meta, dest, 0, "dir")
}

func (c *Copier) copySymlink(src string, meta *scanner.Meta, dest string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return c.fail(fmt.Errorf("Failed to read symlink for copying: %s; Error: %w", src, err))
	}

	err = unix.Symlink(target, dest)
	if errors.Is(err, unix.EEXIST) {
		// symlink cannot replace an existing file
		_ = unix.Unlink(dest)
		err = unix.Symlink(target, dest)
	}
	if err != nil {
		return c.fail(fmt.Errorf("Failed to create symlink for copying: %s; Error: %w", dest, err))
	}

	return c.restoreTimes(meta, dest, unix.AT_SYMLINK_NOFOLLOW, "symlink")
}

func (c *Copier) copyFile(src string, meta *scanner.Meta, dest string) error {
	in, err := openNoATime(src)
	if err != nil {
		return c.fail(fmt.Errorf("Failed to open copy source file for reading: %s; Error: %w", src, err))
	}
	defer in.Close()

	perm := os.FileMode(meta.Mode&0o777) | 0o600
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return c.fail(fmt.Errorf("Failed to open copy destination file for writing: %s; Error: %w", dest, err))
	}

	bufp := c.bufs.Get().(*[]byte)
	n, err := io.CopyBuffer(onlyWriter{out}, onlyReader{in}, *bufp)
	c.bufs.Put(bufp)
	c.stats.BytesCopied.Add(uint64(n))

	closeErr := out.Close()
	if err != nil {
		return c.fail(fmt.Errorf("Failed to copy file contents: %s -> %s; Error: %w", src, dest, err))
	}
	if closeErr != nil {
		return c.fail(fmt.Errorf("Failed to write to copy destination file: %s; Error: %w", dest, closeErr))
	}

	return c.restoreTimes(meta, dest, 0, "file")
}

// restoreTimes failures never abort the run.
func (c *Copier) restoreTimes(meta *scanner.Meta, dest string, flags int, kind string) error {
	if !c.opts.UpdateTimes {
		return nil
	}

	ts := []unix.Timespec{
		unix.NsecToTimespec(meta.Atime.UnixNano()),
		unix.NsecToTimespec(meta.Mtime.UnixNano()),
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, dest, ts, flags); err != nil {
		return scanner.Recoverable(fmt.Errorf("Failed to update timestamps of copy destination %s: %s; Error: %w", kind, dest, err))
	}
	return nil
}

// openNoATime opens path read-only without updating its atime where the
// platform and file ownership allow it.
func openNoATime(path string) (*os.File, error) {
	if openFlagNoATime != 0 {
		f, err := os.OpenFile(path, os.O_RDONLY|openFlagNoATime, 0)
		if err == nil || !errors.Is(err, unix.EPERM) {
			return f, err
		}
	}
	return os.Open(path)
}

// onlyReader and onlyWriter hide ReadFrom/WriteTo so io.CopyBuffer uses the
// pooled buffer.
type onlyReader struct{ r io.Reader }

func (o onlyReader) Read(p []byte) (int, error) { return o.r.Read(p) }

type onlyWriter struct{ w io.Writer }

func (o onlyWriter) Write(p []byte) (int, error) { return o.w.Write(p) }
