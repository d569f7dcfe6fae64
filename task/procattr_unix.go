//go:build unix && !linux

package task

import "syscall"

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}

func lockSpawnThread() {}
