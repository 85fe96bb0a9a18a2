// Package logger writes diagnostics to the error stream. Every message is a
// single write so lines from concurrent workers never interleave.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorMode controls ANSI coloring of the diagnostic stream.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode accepts auto, always or never (case-insensitive). Empty
// means auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	}
	return "", fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
}

// UseColor resolves mode for w. In auto mode color is only used for a
// terminal and when NO_COLOR is unset.
func UseColor(w io.Writer, mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Logger is safe for concurrent use. A nil *Logger discards everything.
type Logger struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool

	errColor   *color.Color
	warnColor  *color.Color
	debugColor *color.Color
}

// New returns a Logger writing to w. Debugf is silent unless verbose is set.
func New(w io.Writer, verbose bool, mode ColorMode) *Logger {
	l := &Logger{
		w:          w,
		verbose:    verbose,
		errColor:   color.New(color.FgRed),
		warnColor:  color.New(color.FgYellow),
		debugColor: color.New(color.FgHiBlack),
	}

	if UseColor(w, mode) {
		l.errColor.EnableColor()
		l.warnColor.EnableColor()
		l.debugColor.EnableColor()
	} else {
		l.errColor.DisableColor()
		l.warnColor.DisableColor()
		l.debugColor.DisableColor()
	}

	return l
}

// Verbose reports whether debug output is enabled.
func (l *Logger) Verbose() bool {
	return l != nil && l.verbose
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	l.write(l.errColor, "", format, args)
}

func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.write(l.warnColor, "", format, args)
}

func (l *Logger) Infof(format string, args ...any) {
	if l == nil {
		return
	}
	l.write(nil, "", format, args)
}

func (l *Logger) Debugf(format string, args ...any) {
	if !l.Verbose() {
		return
	}
	l.write(l.debugColor, "DEBUG: ", format, args)
}

func (l *Logger) write(c *color.Color, prefix, format string, args []any) {
	if l.w == nil {
		return
	}

	msg := prefix + fmt.Sprintf(format, args...)
	msg = strings.TrimSuffix(msg, "\n")
	if c != nil {
		msg = c.Sprint(msg)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.w, msg+"\n")
}
