//go:build !linux

package action

// POSIX ACL xattrs only exist on Linux.
func hasXattr(string, string) (bool, error) {
	return false, nil
}
