package action

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/riadafridishibly/parfind/scanner"
)

// Unlinker removes matched non-directory entries.
type Unlinker struct {
	// IgnoreErrors turns unlink failures into counted errors instead of
	// aborting the run.
	IgnoreErrors bool
	Log          Logger
}

func (u *Unlinker) Apply(e *scanner.Entry) error {
	if e.IsDir() {
		return nil
	}

	log := orNop(u.Log)
	log.Debugf("Unlinking: %s", e.Path)

	if err := unix.Unlink(e.Path); err != nil {
		return configurable(fmt.Errorf("Failed to unlink file: %s; Error: %w", e.Path, err), u.IgnoreErrors)
	}
	return nil
}
