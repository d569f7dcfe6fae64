package task

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Process is a spawned child. It abstracts the operating system process so
// that Task can be tested and so the reaping strategy lives in one place.
type Process interface {
	PID() int
	Signal(os.Signal) error
	// TryWait reaps the child if it has exited, without blocking.
	TryWait() (ExitStatus, bool, error)
	// Wait blocks until the child exits and reaps it.
	Wait() (ExitStatus, error)
}

// ExitStatus is a reaped child's exit status.
type ExitStatus struct {
	Code   int // -1 if terminated by a signal
	Signal syscall.Signal
}

func (s ExitStatus) Success() bool {
	return s.Code == 0
}

func (s ExitStatus) String() string {
	if s.Code == -1 {
		return "signal: " + s.Signal.String()
	}
	return "exit status " + strconv.Itoa(s.Code)
}

// Redirect names the files the child's standard streams are bound to. An
// empty path inherits the parent's stream.
type Redirect struct {
	Stdin  string
	Stdout string
	Stderr string
}

// Spawner starts argv with the given redirections.
type Spawner func(argv []string, r Redirect) (Process, error)

type process struct {
	*os.Process
}

var _ Process = process{}

// StartProcess creates a new child with its standard streams redirected before
// exec. Only descriptors 0-2 are inherited; everything else the parent holds is
// close-on-exec.
func StartProcess(argv []string, r Redirect) (Process, error) {
	files, err := openRedirects(r)
	if err != nil {
		return nil, err
	}
	// The child holds its own copies once started.
	defer closeAll(files)

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, err
	}

	lockSpawnThread()

	p, err := os.StartProcess(path, argv, &os.ProcAttr{
		Files: files,
		Sys:   sysProcAttr(),
	})
	if err != nil {
		return nil, err
	}

	return process{p}, nil
}

func (proc process) PID() int {
	return proc.Pid
}

func (proc process) TryWait() (ExitStatus, bool, error) {
	var ws unix.WaitStatus

	for {
		pid, err := unix.Wait4(proc.Pid, &ws, unix.WNOHANG, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return ExitStatus{}, false, errors.Wrap(err, "wait4")
		}
		if pid != proc.Pid {
			return ExitStatus{}, false, nil
		}

		proc.Release()
		return exitStatus(ws), true, nil
	}
}

func (proc process) Wait() (ExitStatus, error) {
	var ws unix.WaitStatus

	for {
		_, err := unix.Wait4(proc.Pid, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return ExitStatus{}, errors.Wrap(err, "wait4")
		}

		proc.Release()
		return exitStatus(ws), nil
	}
}

func exitStatus(ws unix.WaitStatus) ExitStatus {
	if ws.Signaled() {
		return ExitStatus{Code: -1, Signal: syscall.Signal(ws.Signal())}
	}
	return ExitStatus{Code: ws.ExitStatus()}
}

func openRedirects(r Redirect) ([]*os.File, error) {
	files := []*os.File{os.Stdin, os.Stdout, os.Stderr}

	open := func(i int, path string, flag int) error {
		if path == "" {
			return nil
		}
		f, err := os.OpenFile(path, flag, 0666)
		if err != nil {
			return errors.Wrapf(err, "failed to redirect fd %d", i)
		}
		files[i] = f
		return nil
	}

	if err := open(0, r.Stdin, os.O_RDONLY); err != nil {
		return nil, err
	}

	outFlags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC

	if err := open(1, r.Stdout, outFlags); err != nil {
		closeAll(files)
		return nil, err
	}

	// Sharing one file between stdout and stderr keeps both writing to the same
	// offset, like 2>&1.
	if r.Stderr != "" && r.Stderr == r.Stdout {
		files[2] = files[1]
	} else if err := open(2, r.Stderr, outFlags); err != nil {
		closeAll(files)
		return nil, err
	}

	return files, nil
}

func closeAll(files []*os.File) {
	seen := map[*os.File]bool{}
	for _, f := range files {
		if f == nil || f == os.Stdin || f == os.Stdout || f == os.Stderr || seen[f] {
			continue
		}
		seen[f] = true
		f.Close()
	}
}
