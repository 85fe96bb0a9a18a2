package scanner

import "golang.org/x/sys/unix"

func metaFromStat(st *unix.Stat_t) *Meta {
	atime, mtime, ctime := statTimes(st)
	return &Meta{
		Dev:     uint64(st.Dev),
		Ino:     uint64(st.Ino),
		Mode:    uint32(st.Mode),
		Nlink:   uint64(st.Nlink),
		UID:     st.Uid,
		GID:     st.Gid,
		Rdev:    uint64(st.Rdev),
		Size:    st.Size,
		Blksize: int64(st.Blksize),
		Blocks:  st.Blocks,
		Atime:   atime,
		Mtime:   mtime,
		Ctime:   ctime,
	}
}

// Lstat is a metadata call on path that does not follow a trailing symlink.
func Lstat(path string) (*Meta, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return nil, err
	}
	return metaFromStat(&st), nil
}

// Stat is like Lstat but follows symlinks.
func Stat(path string) (*Meta, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nil, err
	}
	return metaFromStat(&st), nil
}
