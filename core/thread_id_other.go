//go:build !linux

package core

// currentThreadID falls back to the goroutine id where there is no portable
// kernel thread id.
func currentThreadID() int {
	return int(goroutineID())
}
