package action

import (
	"errors"

	"golang.org/x/sys/unix"
)

// hasXattr reports whether path (not followed if it is a symlink) has the
// extended attribute name. Missing attributes and filesystems without xattr
// support are not errors.
func hasXattr(path, name string) (bool, error) {
	_, err := unix.Lgetxattr(path, name, nil)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, unix.ENODATA), errors.Is(err, unix.ENOTSUP):
		return false, nil
	}
	return false, err
}
