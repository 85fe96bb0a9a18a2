//go:build darwin || freebsd || openbsd || netbsd || dragonfly

package scanner

import (
	"io"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

const dirBatchSize = 256

type dirStream struct {
	f       *os.File
	fd      int
	entries []fs.DirEntry
}

func openDirStream(path string) (*dirStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &dirStream{f: f, fd: int(f.Fd())}, nil
}

func (d *dirStream) next() (string, EntryType, error) {
	if len(d.entries) == 0 {
		entries, err := d.f.ReadDir(dirBatchSize)
		if len(entries) == 0 {
			if err == nil {
				err = io.EOF
			}
			return "", TypeUnknown, err
		}
		d.entries = entries
	}
	de := d.entries[0]
	d.entries = d.entries[1:]
	return de.Name(), typeFromFileMode(de.Type()), nil
}

func (d *dirStream) statAt(name string) (*Meta, error) {
	var st unix.Stat_t
	if err := unix.Fstatat(d.fd, name, &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return nil, err
	}
	return metaFromStat(&st), nil
}

func (d *dirStream) close() error {
	return d.f.Close()
}

func typeFromFileMode(m fs.FileMode) EntryType {
	switch {
	case m&fs.ModeDir != 0:
		return TypeDir
	case m&fs.ModeSymlink != 0:
		return TypeSymlink
	case m&fs.ModeNamedPipe != 0:
		return TypeFIFO
	case m&fs.ModeSocket != 0:
		return TypeSocket
	case m&fs.ModeCharDevice != 0:
		return TypeCharDev
	case m&fs.ModeDevice != 0:
		return TypeBlockDev
	case m.IsRegular():
		return TypeRegular
	}
	return TypeUnknown
}
