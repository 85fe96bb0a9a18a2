package logger

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColorMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ColorMode
		wantErr bool
	}{
		{"", ColorAuto, false},
		{"auto", ColorAuto, false},
		{"ALWAYS", ColorAlways, false},
		{" never ", ColorNever, false},
		{"sometimes", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColorMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUseColor(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, UseColor(&buf, ColorAuto), "a buffer is never a terminal")
	assert.True(t, UseColor(&buf, ColorAlways))
	assert.False(t, UseColor(&buf, ColorNever))
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false, ColorNever)

	l.Errorf("Failed to open dir: '%s'; Error: %v", "/x", "permission denied")
	l.Warnf("careful")
	l.Infof("hello %d", 1)
	l.Debugf("hidden")

	assert.Equal(t,
		"Failed to open dir: '/x'; Error: permission denied\ncareful\nhello 1\n",
		buf.String())
	assert.False(t, l.Verbose())
}

func TestVerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, true, ColorNever)

	l.Debugf("queue length %d\n", 3)
	assert.Equal(t, "DEBUG: queue length 3\n", buf.String())
}

func TestForcedColor(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false, ColorAlways)

	l.Errorf("bad")
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "bad")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestNilLoggerDiscards(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Errorf("x")
		l.Warnf("x")
		l.Infof("x")
		l.Debugf("x")
	})
}

func TestConcurrentLinesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false, ColorNever)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Go(func() {
			for j := range 50 {
				l.Errorf("worker %02d line %02d", i, j)
			}
		})
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 16*50)
	for _, line := range lines {
		var w, n int
		_, err := fmt.Sscanf(line, "worker %d line %d", &w, &n)
		assert.NoError(t, err, line)
	}
}
