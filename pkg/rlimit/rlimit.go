// Package rlimit applies setrlimit resource clamps to the worker
// process before untrusted code runs.
package rlimit

import (
	"fmt"
	"strings"
	"syscall"
)

// RLimits defines the resource clamps applied to the worker process.
// Zero values are skipped; DisableCore should stay set so that a
// crashing payload cannot leave memory contents on disk.
type RLimits struct {
	CPU          uint64 // in s
	CPUHard      uint64 // in s
	Data         uint64 // in bytes
	FileSize     uint64 // in bytes
	Stack        uint64 // in bytes
	AddressSpace uint64 // in bytes
	OpenFile     uint64 // count
	DisableCore  bool   // set core to 0
}

// RLimit is a single resource limit as defined by Linux setrlimit
type RLimit struct {
	// Res is the resource type (e.g. syscall.RLIMIT_CPU)
	Res int
	// Rlim is the limit applied to that resource
	Rlim syscall.Rlimit
}

// setrlimit is overridden in tests
var setrlimit = syscall.Setrlimit

func getRlimit(cur, max uint64) syscall.Rlimit {
	return syscall.Rlimit{Cur: cur, Max: max}
}

// PrepareRLimit collects the non-zero clamps into setrlimit arguments
func (r *RLimits) PrepareRLimit() []RLimit {
	var ret []RLimit
	if r.CPU > 0 {
		cpuHard := r.CPUHard
		if cpuHard < r.CPU {
			cpuHard = r.CPU
		}
		ret = append(ret, RLimit{
			Res:  syscall.RLIMIT_CPU,
			Rlim: getRlimit(r.CPU, cpuHard),
		})
	}
	if r.Data > 0 {
		ret = append(ret, RLimit{
			Res:  syscall.RLIMIT_DATA,
			Rlim: getRlimit(r.Data, r.Data),
		})
	}
	if r.FileSize > 0 {
		ret = append(ret, RLimit{
			Res:  syscall.RLIMIT_FSIZE,
			Rlim: getRlimit(r.FileSize, r.FileSize),
		})
	}
	if r.Stack > 0 {
		ret = append(ret, RLimit{
			Res:  syscall.RLIMIT_STACK,
			Rlim: getRlimit(r.Stack, r.Stack),
		})
	}
	if r.AddressSpace > 0 {
		ret = append(ret, RLimit{
			Res:  syscall.RLIMIT_AS,
			Rlim: getRlimit(r.AddressSpace, r.AddressSpace),
		})
	}
	if r.OpenFile > 0 {
		ret = append(ret, RLimit{
			Res:  syscall.RLIMIT_NOFILE,
			Rlim: getRlimit(r.OpenFile, r.OpenFile),
		})
	}
	if r.DisableCore {
		ret = append(ret, RLimit{
			Res:  syscall.RLIMIT_CORE,
			Rlim: getRlimit(0, 0),
		})
	}
	return ret
}

// Apply installs the clamps on the current process. The first failing
// setrlimit is returned; a partially clamped worker must not proceed.
func (r *RLimits) Apply() error {
	for _, rl := range r.PrepareRLimit() {
		if err := setrlimit(rl.Res, &rl.Rlim); err != nil {
			return fmt.Errorf("rlimit: setrlimit %s: %w", resName(rl.Res), err)
		}
	}
	return nil
}

func resName(res int) string {
	switch res {
	case syscall.RLIMIT_CPU:
		return "CPU"
	case syscall.RLIMIT_DATA:
		return "Data"
	case syscall.RLIMIT_FSIZE:
		return "File"
	case syscall.RLIMIT_STACK:
		return "Stack"
	case syscall.RLIMIT_AS:
		return "AddressSpace"
	case syscall.RLIMIT_NOFILE:
		return "OpenFile"
	case syscall.RLIMIT_CORE:
		return "Core"
	}
	return fmt.Sprintf("Res(%d)", res)
}

func (r RLimit) String() string {
	if r.Res == syscall.RLIMIT_CPU {
		return fmt.Sprintf("CPU[%d s:%d s]", r.Rlim.Cur, r.Rlim.Max)
	}
	if r.Res == syscall.RLIMIT_NOFILE {
		return fmt.Sprintf("OpenFile[%d:%d]", r.Rlim.Cur, r.Rlim.Max)
	}
	return fmt.Sprintf("%s[%s:%s]", resName(r.Res), size(r.Rlim.Cur), size(r.Rlim.Max))
}

func (r RLimits) String() string {
	var sb strings.Builder
	sb.WriteString("RLimits[")
	for i, rl := range r.PrepareRLimit() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(rl.String())
	}
	sb.WriteString("]")
	return sb.String()
}

// size formats byte counts for logs
func size(n uint64) string {
	switch {
	case n < 1<<10:
		return fmt.Sprintf("%d B", n)
	case n < 1<<20:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	case n < 1<<30:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	default:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	}
}
