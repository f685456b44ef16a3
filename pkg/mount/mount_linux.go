package mount

import (
	"fmt"
	"os"
	"syscall"
)

// hardenedBindFlags disallows executables, device nodes and setuid
// binaries on the bind mount. MS_REC applies the flags to submounts.
const hardenedBindFlags = syscall.MS_BIND | syscall.MS_REC |
	syscall.MS_NOEXEC | syscall.MS_NODEV | syscall.MS_NOSUID

// MakeRootPrivate marks the root mount and all submounts as private so
// that later namespace mounts cannot propagate to or from the host.
func MakeRootPrivate() error {
	return syscall.Mount("", "/", "", syscall.MS_REC|syscall.MS_PRIVATE, "")
}

// SelfBind binds dir onto itself with the hardened bind flags. This
// turns dir into a mount point, which pivot_root requires, and strips
// exec / dev / suid from everything below it.
func SelfBind(dir string) Mount {
	return Mount{
		Source: dir,
		Target: dir,
		Flags:  hardenedBindFlags,
	}
}

// ReadOnlyBind binds source onto target read-only with the hardened
// bind flags, used to expose an artifact cache inside the new root.
func ReadOnlyBind(source, target string) Mount {
	return Mount{
		Source: source,
		Target: target,
		Flags:  hardenedBindFlags | syscall.MS_RDONLY,
	}
}

// Mount calls mount syscall
func (m Mount) Mount() error {
	if err := os.MkdirAll(m.Target, 0755); err != nil {
		return err
	}
	if err := syscall.Mount(m.Source, m.Target, m.FsType, m.Flags, m.Data); err != nil {
		return err
	}
	// Read-only bind mount need to be remounted
	const bindRo = syscall.MS_BIND | syscall.MS_RDONLY
	if m.Flags&bindRo == bindRo {
		if err := syscall.Mount("", m.Target, m.FsType, m.Flags|syscall.MS_REMOUNT, m.Data); err != nil {
			return err
		}
	}
	return nil
}

func (m Mount) String() string {
	switch {
	case m.Flags&syscall.MS_BIND == syscall.MS_BIND:
		flag := "rw"
		if m.Flags&syscall.MS_RDONLY == syscall.MS_RDONLY {
			flag = "ro"
		}
		return fmt.Sprintf("bind[%s:%s:%s]", m.Source, m.Target, flag)

	case m.FsType == "tmpfs":
		return fmt.Sprintf("tmpfs[%s]", m.Target)

	default:
		return fmt.Sprintf("mount[%s,%s:%s:%x,%s]", m.FsType, m.Source, m.Target, m.Flags, m.Data)
	}
}
