package action

import "golang.org/x/sys/unix"

const openFlagNoATime = unix.O_NOATIME
