//go:build linux || darwin

package logger

import (
	"syscall"
	"unsafe"
)

// isTerminal reports whether fd refers to a terminal. Color switches off
// automatically when output is piped or redirected.
func isTerminal(fd uintptr) bool {
	var t syscall.Termios
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, ioctlTermiosGet, uintptr(unsafe.Pointer(&t)))
	return errno == 0
}
