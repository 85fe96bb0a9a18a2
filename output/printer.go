// Package output writes one record per matched entry to the primary output
// stream.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/riadafridishibly/parfind/scanner"
)

// Format selects the record layout.
type Format int

const (
	// FormatText prints the path followed by a newline.
	FormatText Format = iota
	// FormatNull prints the path followed by a NUL byte, for xargs -0.
	FormatNull
	// FormatJSON prints one JSON object per line.
	FormatJSON
)

const bufferSize = 64 * 1024

// Printer serializes records from concurrent workers. Each record is
// assembled first and then written with a single call under the lock.
type Printer struct {
	mu  sync.Mutex
	w   *bufio.Writer
	buf []byte

	format Format
	// long adds the stat fields to JSON records.
	long bool
}

// NewPrinter writes to w. long only affects FormatJSON.
func NewPrinter(w io.Writer, format Format, long bool) *Printer {
	return &Printer{
		w:      bufio.NewWriterSize(w, bufferSize),
		format: format,
		long:   long,
	}
}

// Apply prints e. A failed write is counted and the scan continues.
func (p *Printer) Apply(e *scanner.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf = p.appendRecord(p.buf[:0], e)
	if _, err := p.w.Write(p.buf); err != nil {
		return scanner.Recoverable(fmt.Errorf("write record for %s: %w", e.Path, err))
	}
	return nil
}

// Flush pushes buffered records to the underlying writer. It is called
// before running external commands that may share the output stream.
func (p *Printer) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w.Flush()
}

func (p *Printer) appendRecord(b []byte, e *scanner.Entry) []byte {
	switch p.format {
	case FormatNull:
		b = append(b, e.Path...)
		return append(b, 0)
	case FormatJSON:
		return appendJSON(b, e, p.long)
	}
	b = append(b, e.Path...)
	return append(b, '\n')
}

func appendJSON(b []byte, e *scanner.Entry, long bool) []byte {
	b = append(b, `{"path":"`...)
	b = appendEscaped(b, e.Path)
	b = append(b, `","type":"`...)
	b = append(b, e.ResolvedType().String()...)
	b = append(b, '"')

	if long {
		for _, f := range statFields {
			b = append(b, ',', '"')
			b = append(b, f.name...)
			b = append(b, '"', ':')
			if e.Meta == nil {
				b = append(b, "null"...)
				continue
			}
			b = append(b, '"')
			b = f.value(b, e.Meta)
			b = append(b, '"')
		}
	}

	return append(b, '}', '\n')
}

type statField struct {
	name  string
	value func(b []byte, m *scanner.Meta) []byte
}

func uintField(name string, get func(m *scanner.Meta) uint64) statField {
	return statField{name, func(b []byte, m *scanner.Meta) []byte {
		return strconv.AppendUint(b, get(m), 10)
	}}
}

func intField(name string, get func(m *scanner.Meta) int64) statField {
	return statField{name, func(b []byte, m *scanner.Meta) []byte {
		return strconv.AppendInt(b, get(m), 10)
	}}
}

var statFields = []statField{
	uintField("st_dev", func(m *scanner.Meta) uint64 { return m.Dev }),
	uintField("st_ino", func(m *scanner.Meta) uint64 { return m.Ino }),
	uintField("st_mode", func(m *scanner.Meta) uint64 { return uint64(m.Mode) }),
	uintField("st_nlink", func(m *scanner.Meta) uint64 { return m.Nlink }),
	uintField("st_uid", func(m *scanner.Meta) uint64 { return uint64(m.UID) }),
	uintField("st_gid", func(m *scanner.Meta) uint64 { return uint64(m.GID) }),
	uintField("st_rdev", func(m *scanner.Meta) uint64 { return m.Rdev }),
	intField("st_size", func(m *scanner.Meta) int64 { return m.Size }),
	intField("st_blksize", func(m *scanner.Meta) int64 { return m.Blksize }),
	intField("st_blocks", func(m *scanner.Meta) int64 { return m.Blocks }),
	intField("st_atime", func(m *scanner.Meta) int64 { return m.Atime.Unix() }),
	intField("st_mtime", func(m *scanner.Meta) int64 { return m.Mtime.Unix() }),
	intField("st_ctime", func(m *scanner.Meta) int64 { return m.Ctime.Unix() }),
}

const hexDigits = "0123456789abcdef"

// appendEscaped escapes quotes, backslashes and control characters. Other
// bytes are copied unchanged so names that are not valid UTF-8 round-trip.
func appendEscaped(b []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b = append(b, '\\', '"')
		case '\\':
			b = append(b, '\\', '\\')
		case '\b':
			b = append(b, '\\', 'b')
		case '\f':
			b = append(b, '\\', 'f')
		case '\n':
			b = append(b, '\\', 'n')
		case '\r':
			b = append(b, '\\', 'r')
		case '\t':
			b = append(b, '\\', 't')
		default:
			if c < 0x20 {
				b = append(b, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			} else {
				b = append(b, c)
			}
		}
	}
	return b
}
