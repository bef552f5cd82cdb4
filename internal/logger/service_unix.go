//go:build !windows

package logger

import "syscall"

// detached reports whether the process leads its own process group.
func detached() bool {
	return syscall.Getpgrp() == syscall.Getpid()
}
