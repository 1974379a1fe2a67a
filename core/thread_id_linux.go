//go:build linux

package core

import "golang.org/x/sys/unix"

// currentThreadID returns the kernel thread id of the calling OS thread.
// Only meaningful while the goroutine is locked to its thread.
func currentThreadID() int {
	return unix.Gettid()
}
