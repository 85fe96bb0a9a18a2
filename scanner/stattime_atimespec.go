//go:build darwin || netbsd

package scanner

import (
	"time"

	"golang.org/x/sys/unix"
)

func statTimes(st *unix.Stat_t) (atime, mtime, ctime time.Time) {
	return time.Unix(int64(st.Atimespec.Sec), int64(st.Atimespec.Nsec)),
		time.Unix(int64(st.Mtimespec.Sec), int64(st.Mtimespec.Nsec)),
		time.Unix(int64(st.Ctimespec.Sec), int64(st.Ctimespec.Nsec))
}
