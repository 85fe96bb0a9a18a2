//go:build linux

package scanner

import (
	"encoding/binary"
	"errors"
	"io"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux reads raw linux_dirent64 records so the d_type hint is seen as-is.
// os.File.ReadDir would lstat DT_UNKNOWN entries behind our back.

const (
	direntInoOffset    = int(unsafe.Offsetof(unix.Dirent{}.Ino))
	direntReclenOffset = int(unsafe.Offsetof(unix.Dirent{}.Reclen))
	direntTypeOffset   = int(unsafe.Offsetof(unix.Dirent{}.Type))
	direntNameOffset   = int(unsafe.Offsetof(unix.Dirent{}.Name))

	direntBufSize = 32 * 1024
)

var errInvalidDirent = errors.New("invalid dirent record")

type dirStream struct {
	fd   int
	buf  []byte
	data []byte
}

func openDirStream(path string) (*dirStream, error) {
	var (
		fd  int
		err error
	)
	for {
		fd, err = unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return &dirStream{fd: fd, buf: make([]byte, direntBufSize)}, nil
}

// next returns the next entry name and its type hint, skipping "." and "..".
// It returns io.EOF once the stream is exhausted.
func (d *dirStream) next() (string, EntryType, error) {
	for {
		if len(d.data) == 0 {
			n, err := unix.Getdents(d.fd, d.buf)
			if err == unix.EINTR {
				continue
			}
			if err != nil {
				return "", TypeUnknown, err
			}
			if n <= 0 {
				return "", TypeUnknown, io.EOF
			}
			d.data = d.buf[:n]
		}

		if len(d.data) < direntNameOffset {
			return "", TypeUnknown, errInvalidDirent
		}
		reclen := int(binary.NativeEndian.Uint16(d.data[direntReclenOffset:]))
		if reclen < direntNameOffset || reclen > len(d.data) {
			return "", TypeUnknown, errInvalidDirent
		}
		rec := d.data[:reclen]
		d.data = d.data[reclen:]

		if binary.NativeEndian.Uint64(rec[direntInoOffset:]) == 0 {
			continue // deleted entry
		}

		name := rec[direntNameOffset:]
		for i, b := range name {
			if b == 0 {
				name = name[:i]
				break
			}
		}
		if len(name) == 0 || isDotName(name) {
			continue
		}

		return string(name), typeFromDirent(rec[direntTypeOffset]), nil
	}
}

func (d *dirStream) statAt(name string) (*Meta, error) {
	var st unix.Stat_t
	if err := unix.Fstatat(d.fd, name, &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return nil, err
	}
	return metaFromStat(&st), nil
}

func (d *dirStream) close() error {
	return unix.Close(d.fd)
}

func typeFromDirent(t uint8) EntryType {
	switch t {
	case unix.DT_BLK:
		return TypeBlockDev
	case unix.DT_CHR:
		return TypeCharDev
	case unix.DT_DIR:
		return TypeDir
	case unix.DT_FIFO:
		return TypeFIFO
	case unix.DT_LNK:
		return TypeSymlink
	case unix.DT_REG:
		return TypeRegular
	case unix.DT_SOCK:
		return TypeSocket
	}
	return TypeUnknown
}

func isDotName(name []byte) bool {
	return (len(name) == 1 && name[0] == '.') ||
		(len(name) == 2 && name[0] == '.' && name[1] == '.')
}
