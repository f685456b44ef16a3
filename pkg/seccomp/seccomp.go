// Package seccomp installs a syscall deny-list on the worker process
// after namespace and filesystem confinement. The filter is a second
// fence: even if the payload escapes the interpreter, it cannot open
// sockets or spawn processes.
package seccomp

// deniedSyscalls kills the worker on any attempt to reach the network
// or to spawn a new program. Thread creation (clone) stays allowed,
// the runtime needs it.
var deniedSyscalls = []string{
	"socket",
	"socketpair",
	"connect",
	"bind",
	"listen",
	"accept",
	"accept4",
	"execve",
	"execveat",
	"fork",
	"vfork",
	"io_uring_setup",
	"io_uring_enter",
	"io_uring_register",
}

// DeniedSyscalls returns a copy of the syscall names the filter kills on.
func DeniedSyscalls() []string {
	out := make([]string, len(deniedSyscalls))
	copy(out, deniedSyscalls)
	return out
}
