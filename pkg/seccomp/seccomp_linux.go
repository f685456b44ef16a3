package seccomp

import (
	"fmt"

	libseccomp "github.com/elastic/go-seccomp-bpf"
)

// Supported reports whether the kernel can take the filter.
func Supported() bool {
	return libseccomp.Supported()
}

// Install loads the deny-list filter for all threads of the current
// process. It sets no_new_privs, which is also a precondition for the
// Landlock ruleset, and cannot be undone for the process lifetime.
func Install() error {
	filter := libseccomp.Filter{
		NoNewPrivs: true,
		Flag:       libseccomp.FilterFlagTSync,
		Policy: libseccomp.Policy{
			DefaultAction: libseccomp.ActionAllow,
			Syscalls: []libseccomp.SyscallGroup{
				{
					Action: libseccomp.ActionKillProcess,
					Names:  deniedSyscalls,
				},
			},
		},
	}
	if err := libseccomp.LoadFilter(filter); err != nil {
		return fmt.Errorf("seccomp: load filter: %w", err)
	}
	return nil
}
