package task

import (
	"runtime"
	"syscall"
)

// Linux-only: the child is sent SIGTERM if the plugin itself dies, so a killed
// check never leaves a scanner running behind it.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM}
}

// lockSpawnThread pins the calling goroutine to its OS thread for good.
// Pdeathsig fires when the spawning thread exits, not the process, so the
// thread must not be handed back to the scheduler and retired.
// See https://github.com/golang/go/issues/27505.
func lockSpawnThread() {
	runtime.LockOSThread()
}
