package scanner

import (
	"io/fs"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
)

// ReferenceResult is what an independent fastwalk traversal found.
type ReferenceResult struct {
	Dirs   uint64
	Files  uint64
	Errors uint64
}

// ReferenceWalk walks root with fastwalk, without following symlinks, and
// calls fn (if non-nil) for every entry including root. fn may be called
// concurrently. It is used to benchmark and cross-check the hybrid scanner.
func ReferenceWalk(root string, workers int, fn func(path string, isDir bool)) (ReferenceResult, error) {
	var dirs, files, errs atomic.Uint64

	conf := fastwalk.Config{Follow: false, NumWorkers: workers}

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs.Add(1)
			return nil
		}

		isDir := d.IsDir()
		if isDir {
			dirs.Add(1)
		} else {
			files.Add(1)
		}

		if fn != nil {
			fn(path, isDir)
		}
		return nil
	}

	err := fastwalk.Walk(&conf, root, walkFn)

	return ReferenceResult{
		Dirs:   dirs.Load(),
		Files:  files.Load(),
		Errors: errs.Load(),
	}, err
}
