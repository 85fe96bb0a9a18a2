package scanner

import (
	"time"

	"golang.org/x/sys/unix"
)

// EntryType is the file type of a discovered entry as reported by the
// directory stream or, failing that, by stat.
type EntryType uint8

const (
	TypeUnknown EntryType = iota
	TypeBlockDev
	TypeCharDev
	TypeDir
	TypeFIFO
	TypeSymlink
	TypeRegular
	TypeSocket
)

var entryTypeNames = [...]string{
	TypeUnknown:  "unknown",
	TypeBlockDev: "blockdev",
	TypeCharDev:  "chardev",
	TypeDir:      "dir",
	TypeFIFO:     "fifo",
	TypeSymlink:  "symlink",
	TypeRegular:  "regfile",
	TypeSocket:   "unixsock",
}

// values taken from find(1)
var entryTypeChars = [...]byte{
	TypeBlockDev: 'b',
	TypeCharDev:  'c',
	TypeDir:      'd',
	TypeFIFO:     'p',
	TypeSymlink:  'l',
	TypeRegular:  'f',
	TypeSocket:   's',
}

// String returns the name used in JSON records.
func (t EntryType) String() string {
	if int(t) < len(entryTypeNames) {
		return entryTypeNames[t]
	}
	return entryTypeNames[TypeUnknown]
}

// Char returns the find(1) type letter, or 0 for TypeUnknown.
func (t EntryType) Char() byte {
	if int(t) < len(entryTypeChars) {
		return entryTypeChars[t]
	}
	return 0
}

// TypeFromChar maps a find(1) type letter back to an EntryType.
func TypeFromChar(c byte) (EntryType, bool) {
	for t, ch := range entryTypeChars {
		if ch != 0 && ch == c {
			return EntryType(t), true
		}
	}
	return TypeUnknown, false
}

// typeFromMode converts the S_IFMT bits of a stat mode.
func typeFromMode(mode uint32) EntryType {
	switch mode & unix.S_IFMT {
	case unix.S_IFBLK:
		return TypeBlockDev
	case unix.S_IFCHR:
		return TypeCharDev
	case unix.S_IFDIR:
		return TypeDir
	case unix.S_IFIFO:
		return TypeFIFO
	case unix.S_IFLNK:
		return TypeSymlink
	case unix.S_IFREG:
		return TypeRegular
	case unix.S_IFSOCK:
		return TypeSocket
	}
	return TypeUnknown
}

// Meta is the full attribute set of an entry, filled by a metadata call.
type Meta struct {
	Dev     uint64
	Ino     uint64
	Mode    uint32
	Nlink   uint64
	UID     uint32
	GID     uint32
	Rdev    uint64
	Size    int64
	Blksize int64
	Blocks  int64
	Atime   time.Time
	Mtime   time.Time
	Ctime   time.Time
}

// Type returns the entry type encoded in Mode.
func (m *Meta) Type() EntryType {
	return typeFromMode(m.Mode)
}

// Entry is a single discovered filesystem object. It lives for one iteration
// of the scan loop and must not be retained by callbacks.
type Entry struct {
	Path string

	// Type is the type hint from the directory stream. TypeUnknown when the
	// filesystem did not report one, or for root arguments.
	Type EntryType

	// Meta is nil when no metadata call was made or when it failed.
	Meta    *Meta
	StatErr error

	// Depth relative to the root argument, which has depth 0.
	Depth uint16
}

// ResolvedType returns the best known type: the stream hint, then the stat
// mode, then TypeUnknown.
func (e *Entry) ResolvedType() EntryType {
	if e.Type != TypeUnknown {
		return e.Type
	}
	if e.Meta != nil {
		return e.Meta.Type()
	}
	return TypeUnknown
}

// IsDir reports whether the entry is known to be a directory.
func (e *Entry) IsDir() bool {
	return e.ResolvedType() == TypeDir
}

// WorkItem is a directory waiting to be expanded.
type WorkItem struct {
	Path  string
	Depth uint16
}
