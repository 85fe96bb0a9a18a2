//go:build !linux

package action

const openFlagNoATime = 0
