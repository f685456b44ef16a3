// Package mount wraps the mount syscalls used while confining a worker
// process to its directory.
package mount

// Mount defines a single mount syscall
type Mount struct {
	Source, Target, FsType, Data string
	Flags                        uintptr
}
