// Package bus is the control channel between the livecap CLI and the
// daemon: a unix socket carrying single-byte commands, plus a pid file
// guarding against double starts.
package bus

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

const SockName = "control.sock"
const PidName = "livecap.pid"
const ProtoVer = "0.1"

// Commands understood by the daemon.
const (
	CmdToggle  = 't' // start/stop capture
	CmdStatus  = 's'
	CmdClear   = 'c' // clear the shared transcript
	CmdApprove = 'a' // approve the pending join request
	CmdReject  = 'r' // reject the pending join request
	CmdQuit    = 'q'
	CmdVersion = 'v'
)

type socketManager struct {
	path string
}

type pidManager struct {
	path string
}

// ~/.cache/livecap/control.sock
func getSockPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "livecap", SockName), nil
}

// ~/.cache/livecap/livecap.pid
func getPidPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "livecap", PidName), nil
}

func SockPath() (string, error) {
	return getSockPath()
}

func (s *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(s.path) // stale socket from last run
	return net.Listen("unix", s.path)
}

func (s *socketManager) dial() (net.Conn, error) {
	return net.Dial("unix", s.path)
}

func Listen() (net.Listener, error) {
	sp, err := getSockPath()
	if err != nil {
		return nil, err
	}
	sm := &socketManager{path: sp}
	return sm.listen()
}

func Dial() (net.Conn, error) {
	sp, err := getSockPath()
	if err != nil {
		return nil, err
	}
	sm := &socketManager{path: sp}
	return sm.dial()
}

// SendCommand dials the daemon, sends one command byte and returns the
// single-line reply.
func SendCommand(cmd byte) (string, error) {
	c, err := Dial()
	if err != nil {
		return "", err
	}
	defer c.Close()

	if _, err = c.Write([]byte{cmd, '\n'}); err != nil {
		return "", err
	}

	return bufio.NewReader(c).ReadString('\n')
}

func (p *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *pidManager) remove() error {
	return os.Remove(p.path)
}

func (p *pidManager) isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func (p *pidManager) checkExisting() error {
	pidData, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil // no existing daemon
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(string(pidData))
	if err != nil {
		_ = os.Remove(p.path) // invalid pid file, assume stale
		return nil
	}

	if !p.isProcessAlive(pid) {
		_ = os.Remove(p.path) // stale pid file
		return nil
	}

	return fmt.Errorf("daemon already running with PID %d", pid)
}

func CheckExistingDaemon() error {
	pidPath, err := getPidPath()
	if err != nil {
		return err
	}
	pm := &pidManager{path: pidPath}
	return pm.checkExisting()
}

func CreatePidFile() error {
	pidPath, err := getPidPath()
	if err != nil {
		return err
	}
	pm := &pidManager{path: pidPath}
	return pm.create()
}

func RemovePidFile() error {
	pidPath, err := getPidPath()
	if err != nil {
		return err
	}
	pm := &pidManager{path: pidPath}
	return pm.remove()
}
