package action

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/riadafridishibly/parfind/scanner"
)

// PathPlaceholder is replaced by the entry path in command arguments.
const PathPlaceholder = "{}"

// Executor runs a command for every matched entry.
type Executor struct {
	// Args is the command line. Every occurrence of PathPlaceholder in the
	// arguments after the executable is replaced by the entry path.
	Args []string

	// Flush is called before the command starts so records already printed
	// appear before anything the command writes.
	Flush func() error

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// ErrCommandSignaled is returned when the command was killed by a signal.
// It is not recoverable.
var ErrCommandSignaled = errors.New("exec command terminated on signal")

// CommandArgs returns the argument vector for path.
func (x *Executor) CommandArgs(path string) []string {
	args := make([]string, len(x.Args))
	copy(args, x.Args)
	for i := 1; i < len(args); i++ {
		args[i] = strings.ReplaceAll(args[i], PathPlaceholder, path)
	}
	return args
}

// Apply runs the command and waits for it. A non-zero exit status is
// ignored.
func (x *Executor) Apply(e *scanner.Entry) error {
	if len(x.Args) == 0 {
		return nil
	}

	if x.Flush != nil {
		if err := x.Flush(); err != nil {
			return scanner.Recoverable(fmt.Errorf("flush output before exec: %w", err))
		}
	}

	args := x.CommandArgs(e.Path)
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdin = x.Stdin
	cmd.Stdout = x.Stdout
	cmd.Stderr = x.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return scanner.Recoverable(fmt.Errorf("Failed to run exec command for path: %s; Error: %w", e.Path, err))
	}

	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return fmt.Errorf("Aborting because %w. Signal: %d; Path: %s",
			ErrCommandSignaled, int(ws.Signal()), e.Path)
	}

	return nil
}
