//go:build linux

package logger

import "syscall"

const ioctlTermiosGet = syscall.TCGETS
