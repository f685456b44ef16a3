package isolate

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/valbox/go-harden/pkg/mount"
)

const (
	// stagingPrefix names the directory inside the worker dir that
	// briefly holds the old root during the swap.
	stagingPrefix = "oldroot-"
	tokenLen      = 10
)

// overridden in tests; real namespace and mount operations cannot run
// in a test runner process
var (
	checkUserNS     = userNSIsolated
	checkMountNS    = mountNSIsolated
	makeRootPrivate = mount.MakeRootPrivate
	bindWorkerDir   = func(dir string) error { return mount.SelfBind(dir).Mount() }
	mkdir           = os.Mkdir
	pivotRoot       = unix.PivotRoot
	chdir           = unix.Chdir
	unmount         = unix.Unmount
	remove          = os.Remove
	access          = unix.Access
)

// applied guards against a second isolation attempt in this process.
var applied atomic.Bool

// SysProcAttr returns the attributes a spawner must set so the worker
// process starts inside the fresh namespaces Isolate requires. The
// worker maps to uid/gid 0 of the new user namespace, which grants the
// mount and pivot_root capability inside it and nothing on the host.
//
// Namespace flags are set at clone time because unshare(2) fails with
// EINVAL in a multithreaded process, and a Go process is multithreaded
// before main runs.
func SysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWUSER | syscall.CLONE_NEWNS,
		UidMappings: []syscall.SysProcIDMap{
			{ContainerID: 0, HostID: os.Getuid(), Size: 1},
		},
		GidMappingsEnableSetgroups: false,
		GidMappings: []syscall.SysProcIDMap{
			{ContainerID: 0, HostID: os.Getgid(), Size: 1},
		},
	}
}

// Isolate applies the root confinement to the current process, which
// must have been spawned into fresh user and mount namespaces (see
// SysProcAttr). workerDir must be an absolute, existing, writable
// directory. It must be called exactly once, from the process's initial
// startup flow, before any untrusted logic touches the filesystem and
// before goroutines that run untrusted work are started.
//
// Every step is fatal on failure: the returned *Error names the step,
// and the caller must abort instead of running the payload.
func Isolate(workerDir string) error {
	if err := checkWorkerDir(workerDir); err != nil {
		return &Error{Step: StepWorkerDir, Err: err}
	}

	if !applied.CompareAndSwap(false, true) {
		// fail at the first namespace step, deterministically
		return &Error{Step: StepUserNS, Err: ErrAlreadyIsolated}
	}

	if err := checkUserNS(); err != nil {
		return &Error{Step: StepUserNS, Err: err}
	}
	if err := checkMountNS(); err != nil {
		return &Error{Step: StepMountNS, Err: err}
	}

	// ensure the new root and its parent have no shared propagation
	if err := makeRootPrivate(); err != nil {
		return &Error{Step: StepMountPrivate, Err: err}
	}
	if err := bindWorkerDir(workerDir); err != nil {
		return &Error{Step: StepBindWorkerDir, Err: err}
	}

	// Random staging name: concurrently starting workers sharing a
	// filesystem namespace template must not collide, and a
	// pre-existing directory must never be deleted by mistake.
	token, err := randomToken(tokenLen)
	if err != nil {
		return &Error{Step: StepStagingDir, Err: err}
	}
	staging := stagingPrefix + token
	if err := mkdir(filepath.Join(workerDir, staging), 0755); err != nil {
		return &Error{Step: StepStagingDir, Err: err}
	}

	if err := pivotRoot(workerDir, filepath.Join(workerDir, staging)); err != nil {
		return &Error{Step: StepPivotRoot, Err: err}
	}
	if err := chdir("/"); err != nil {
		return &Error{Step: StepChdir, Err: err}
	}
	if err := unmount("/"+staging, unix.MNT_DETACH); err != nil {
		return &Error{Step: StepDetachOldRoot, Err: err}
	}
	if err := remove("/" + staging); err != nil {
		return &Error{Step: StepRemoveStaging, Err: err}
	}
	return nil
}

// initialUIDMap is the full-range identity mapping carried only by the
// initial user namespace.
const initialUIDMap = "0 0 4294967295"

// userNSIsolated verifies the process was cloned into a fresh user
// namespace: its uid_map is written by the spawner and is never the
// initial identity map.
func userNSIsolated() error {
	data, err := os.ReadFile("/proc/self/uid_map")
	if err != nil {
		return fmt.Errorf("read uid_map: %w", err)
	}
	if strings.Join(strings.Fields(string(data)), " ") == initialUIDMap {
		return errors.New("process is in the initial user namespace, spawn the worker with CLONE_NEWUSER")
	}
	return nil
}

// mountNSIsolated verifies the mount namespace is not shared with the
// spawner. An unreadable spawner namespace fails closed: without it
// there is no evidence the namespace is fresh.
func mountNSIsolated() error {
	self, err := os.Readlink("/proc/self/ns/mnt")
	if err != nil {
		return fmt.Errorf("read own mount namespace: %w", err)
	}
	parent, err := os.Readlink(fmt.Sprintf("/proc/%d/ns/mnt", os.Getppid()))
	if err != nil {
		return fmt.Errorf("read spawner mount namespace: %w", err)
	}
	if self == parent {
		return errors.New("mount namespace is shared with the spawner, spawn the worker with CLONE_NEWNS")
	}
	return nil
}

func checkWorkerDir(dir string) error {
	if !filepath.IsAbs(dir) {
		return fmt.Errorf("worker dir %q is not absolute", dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("worker dir %q is not a directory", dir)
	}
	if err := access(dir, unix.W_OK); err != nil {
		return fmt.Errorf("worker dir %q is not writable: %w", dir, err)
	}
	return nil
}

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random token: %w", err)
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(buf), nil
}
