//go:build darwin

package logger

import "syscall"

const ioctlTermiosGet = syscall.TIOCGETA
