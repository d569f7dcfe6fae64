// Package task runs a single external command to completion on behalf of a
// check. A Task lets the child run autonomously with its standard streams
// redirected to files; the caller can poll it, wait for it while a callback
// runs at a fixed interval, signal it, and read its exit status.
//
// A Task that is discarded before its child has been reaped leaves a zombie
// behind until the plugin exits. Checks are short-lived, so this is tolerated.
package task

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrAlreadyStarted = errors.New("second run on task forbidden")
	ErrInvalidCommand = errors.New("command must be a non-empty argument list or shell string")
	ErrNotStarted     = errors.New("task has not been started")
	ErrFinished       = errors.New("task has already finished")
)

// SpawnFailureCode is the exit status recorded when the child could not be
// started at all, matching the shell's "command not found".
const SpawnFailureCode = 127

// DefaultPollInterval is used by Wait when a poll callback is given without a
// positive interval.
const DefaultPollInterval = 100 * time.Millisecond

const shellPath = "/bin/sh"

// Options configures how a Task's child is started.
type Options struct {
	// Stdin, Stdout and Stderr are file paths to bind the child's streams to.
	// Empty inherits the parent's stream.
	Stdin  string
	Stdout string
	Stderr string

	// Detach runs the command in the background of an intermediate shell and
	// waits for that shell only. Kill, Done and Status then refer to the shell.
	Detach bool
}

type Task struct {
	argv  []string
	shell string
	spawn Spawner

	mu      sync.Mutex
	started bool
	proc    Process
	status  *ExitStatus
}

// New creates a Task that executes argv directly.
func New(argv ...string) *Task {
	return &Task{
		argv:  append([]string(nil), argv...),
		spawn: StartProcess,
	}
}

// NewShell creates a Task that runs command through /bin/sh -c.
func NewShell(command string) *Task {
	return &Task{
		shell: command,
		spawn: StartProcess,
	}
}

// Start spawns the child and returns without waiting for it. It may be called
// once. If the child cannot be spawned, the task is finished with
// SpawnFailureCode and the cause is returned.
func (t *Task) Start(opts Options) error {
	t.mu.Lock()

	if t.started {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}

	argv, err := t.commandArgv(opts.Detach)
	if err != nil {
		t.mu.Unlock()
		return err
	}

	t.started = true

	proc, err := t.spawn(argv, Redirect{
		Stdin:  opts.Stdin,
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
	})
	if err != nil {
		t.status = &ExitStatus{Code: SpawnFailureCode}
		t.mu.Unlock()

		logrus.Debugf("Failed to spawn %s: %s", t.command(), err)
		return errors.Wrapf(err, "failed to start %s", t.command())
	}

	t.proc = proc
	t.mu.Unlock()

	logrus.Debugf("Started %s with pid %d", t.command(), proc.PID())

	if opts.Detach {
		// The shell backgrounds the command and exits immediately.
		if _, err := t.Wait(nil, 0); err != nil {
			return err
		}
	}

	return nil
}

func (t *Task) commandArgv(detach bool) ([]string, error) {
	if t.shell == "" && len(t.argv) == 0 {
		return nil, ErrInvalidCommand
	}
	if t.shell != "" && strings.TrimSpace(t.shell) == "" {
		return nil, ErrInvalidCommand
	}
	if t.shell == "" && t.argv[0] == "" {
		return nil, ErrInvalidCommand
	}

	switch {
	case detach:
		return []string{shellPath, "-c", t.command() + " &"}, nil
	case t.shell != "":
		return []string{shellPath, "-c", t.shell}, nil
	}

	return t.argv, nil
}

// command returns the command as a shell would read it.
func (t *Task) command() string {
	if t.shell != "" {
		return t.shell
	}

	words := make([]string, len(t.argv))
	for i, w := range t.argv {
		words[i] = "'" + strings.ReplaceAll(w, "'", `'\''`) + "'"
	}
	return strings.Join(words, " ")
}

// Wait blocks until the child exits and returns its exit status. If poll is
// not nil, it is called every interval while waiting; otherwise Wait blocks in
// a single system wait. Interrupt and termination signals received while
// waiting are forwarded to the child, and waiting continues.
//
// Once the child has been reaped, Wait returns the cached status immediately.
func (t *Task) Wait(poll func(), interval time.Duration) (ExitStatus, error) {
	if status, ok := t.Status(); ok {
		return status, nil
	}

	proc, err := t.process()
	if err != nil {
		return ExitStatus{}, err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if poll == nil {
		return t.waitBlocking(proc, sigCh)
	}

	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return t.waitPolling(proc, poll, interval, sigCh)
}

func (t *Task) waitPolling(proc Process, poll func(), interval time.Duration, sigCh <-chan os.Signal) (ExitStatus, error) {
	for {
		status, exited, err := proc.TryWait()
		if err != nil {
			return ExitStatus{}, err
		}
		if exited {
			return t.finish(status), nil
		}

		poll()

		timer := time.NewTimer(interval)
		select {
		case sig := <-sigCh:
			timer.Stop()
			t.forward(sig)
		case <-timer.C:
		}
	}
}

func (t *Task) waitBlocking(proc Process, sigCh <-chan os.Signal) (ExitStatus, error) {
	type waitResult struct {
		status ExitStatus
		err    error
	}

	resultCh := make(chan waitResult, 1)
	go func() {
		status, err := proc.Wait()
		resultCh <- waitResult{status, err}
	}()

	for {
		select {
		case res := <-resultCh:
			if res.err != nil {
				return ExitStatus{}, res.err
			}
			return t.finish(res.status), nil
		case sig := <-sigCh:
			t.forward(sig)
		}
	}
}

func (t *Task) forward(sig os.Signal) {
	logrus.Debugf("Forwarding %s to %s", sig, t.command())
	if err := t.Kill(sig); err != nil {
		logrus.Debugf("Failed to forward %s: %s", sig, err)
	}
}

func (t *Task) finish(status ExitStatus) ExitStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == nil {
		t.status = &status
		logrus.Debugf("%s finished with %s", t.command(), status)
	}

	return *t.status
}

func (t *Task) process() (Process, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.proc == nil {
		return nil, ErrNotStarted
	}
	return t.proc, nil
}

// Kill sends sig to the child. It returns ErrFinished once the child has been
// reaped.
func (t *Task) Kill(sig os.Signal) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != nil {
		return ErrFinished
	}
	if t.proc == nil {
		return ErrNotStarted
	}

	return t.proc.Signal(sig)
}

// Terminate sends SIGTERM. It matches the abort callback signature expected
// by TimeoutHandler.
func (t *Task) Terminate() {
	if err := t.Kill(syscall.SIGTERM); err != nil {
		logrus.Debugf("Failed to terminate %s: %s", t.command(), err)
	}
}

// Done reports whether the child has finished, reaping it without blocking if
// it has exited.
func (t *Task) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != nil {
		return true
	}
	if t.proc == nil {
		return false
	}

	status, exited, err := t.proc.TryWait()
	if err != nil {
		logrus.Debugf("Failed to poll %s: %s", t.command(), err)
		return false
	}
	if exited {
		t.status = &status
	}

	return exited
}

// Status returns the cached exit status, and false if the child has not been
// reaped yet.
func (t *Task) Status() (ExitStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == nil {
		return ExitStatus{}, false
	}
	return *t.status, true
}

// PID returns the child's process ID, or 0 if it was never spawned.
func (t *Task) PID() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.proc == nil {
		return 0
	}
	return t.proc.PID()
}

func (t *Task) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := "prepared"
	switch {
	case t.status != nil:
		state = fmt.Sprintf("done, %s", t.status)
	case t.started:
		state = "running"
	}

	return fmt.Sprintf("<Task: %s, %s>", t.command(), state)
}
