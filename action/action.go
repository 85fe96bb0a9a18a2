// Package action holds the side effects run on matched entries: copying,
// unlinking, running a command and probing ACLs.
package action

import "github.com/riadafridishibly/parfind/scanner"

// Logger is the subset of the diagnostic logger the actions use.
type Logger interface {
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
func (nopLogger) Debugf(string, ...any) {}

func orNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}

// configurable downgrades err to counted-and-continue when ignore is set.
func configurable(err error, ignore bool) error {
	if err == nil || !ignore {
		return err
	}
	return scanner.Recoverable(err)
}
