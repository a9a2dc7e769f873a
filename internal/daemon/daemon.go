// Package daemon manages the background process: its PID file, detaching
// from the terminal and re-executing itself.
package daemon

import (
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// ChildEnv marks a process started by Daemonize
const ChildEnv = "DRIFTSHELL_DAEMON_CHILD"

// ErrNotRunning is returned by Stop when no live daemon owns the PID file
var ErrNotRunning = errors.New("daemon is not running or PID file is stale")

type Daemon struct {
	pidFile string
}

func New(pidFile string) *Daemon {
	return &Daemon{pidFile: pidFile}
}

// PIDFile returns the path of the PID file
func (d *Daemon) PIDFile() string {
	return d.pidFile
}

func (d *Daemon) WritePID() error {
	pid := os.Getpid()
	if err := os.WriteFile(d.pidFile, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return errors.Wrap(err, "failed to write PID file")
	}
	return nil
}

func (d *Daemon) ReadPID() (int, error) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to read PID file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrap(err, "invalid PID in file")
	}

	return pid, nil
}

func (d *Daemon) RemovePID() error {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove PID file")
	}
	return nil
}

// IsRunning reports whether the PID file names a live process. A stale PID
// file is removed.
func (d *Daemon) IsRunning() (bool, int, error) {
	pid, err := d.ReadPID()
	if err != nil {
		return false, 0, err
	}

	if pid == 0 {
		return false, 0, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, 0, nil
	}

	if err := process.Signal(syscall.Signal(0)); err != nil {
		_ = d.RemovePID()
		return false, 0, nil
	}

	return true, pid, nil
}

func (d *Daemon) Stop() error {
	running, pid, err := d.IsRunning()
	if err != nil {
		return errors.Wrap(err, "error checking daemon status")
	}

	if !running {
		return ErrNotRunning
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return errors.Wrap(err, "failed to find process")
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			_ = d.RemovePID()
			return errors.New("daemon process already terminated")
		}
		return errors.Wrap(err, "failed to send SIGTERM")
	}

	return d.RemovePID()
}

// IsChild reports whether this process was started by Daemonize
func IsChild() bool {
	return os.Getenv(ChildEnv) == "1"
}

// Daemonize starts a detached copy of the current command line in a new
// session and returns its PID. The child sees ChildEnv=1.
func Daemonize() (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, errors.Wrap(err, "failed to locate executable")
	}

	env := append(os.Environ(), ChildEnv+"=1")
	procAttr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	}
	process, err := os.StartProcess(exe, os.Args, procAttr)
	if err != nil {
		return 0, errors.Wrap(err, "failed to start daemon process")
	}
	pid := process.Pid
	_ = process.Release()
	return pid, nil
}

// Restart replaces the current process image with a fresh copy of itself.
// It only returns on failure.
func Restart() error {
	exe, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "failed to locate executable")
	}
	return errors.Wrap(syscall.Exec(exe, os.Args, os.Environ()), "failed to restart")
}
