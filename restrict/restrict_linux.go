package restrict

import (
	"fmt"
	"os"
	"syscall"

	"github.com/landlock-lsm/go-landlock/landlock"
	llsys "github.com/landlock-lsm/go-landlock/landlock/syscall"
)

// handledAccessV1 is the complete set of access rights the V1 ABI can
// handle; a ruleset created with it denies everything not carved out.
const handledAccessV1 = llsys.AccessFSExecute |
	llsys.AccessFSWriteFile |
	llsys.AccessFSReadFile |
	llsys.AccessFSReadDir |
	llsys.AccessFSRemoveDir |
	llsys.AccessFSRemoveFile |
	llsys.AccessFSMakeChar |
	llsys.AccessFSMakeDir |
	llsys.AccessFSMakeReg |
	llsys.AccessFSMakeSock |
	llsys.AccessFSMakeFifo |
	llsys.AccessFSMakeBlock |
	llsys.AccessFSMakeSym

// overridden in tests
var (
	getABIVersion = llsys.LandlockGetABIVersion
	createRuleset = llsys.LandlockCreateRuleset
	restrictPaths = func(cfg landlock.Config, rules ...landlock.Rule) error {
		return cfg.RestrictPaths(rules...)
	}
	statPath = os.Stat
)

// Restrict applies the default-deny ruleset with the given exceptions
// to the current process. Must run on the process's governing flow
// before any untrusted execution; once applied it cannot be relaxed.
//
// A kernel without Landlock yields (StatusNotEnforced, nil): nothing
// was applied and the caller decides whether that is acceptable. Any
// error means the ruleset could not be installed and the caller must
// fail closed.
func Restrict(exceptions []Exception) (Status, error) {
	abi, err := getABIVersion()
	if err != nil || abi <= 0 {
		return StatusNotEnforced, nil
	}

	// Never negotiate upward past the pinned ABI, even on newer
	// kernels. Older kernels get what they handle and the honest
	// partially-enforced verdict.
	apply := abi
	if apply > RequiredABI {
		apply = RequiredABI
	}

	rules, err := buildRules(exceptions)
	if err != nil {
		return StatusNotEnforced, err
	}
	if err := restrictPaths(configFor(apply), rules...); err != nil {
		return StatusNotEnforced, fmt.Errorf("restrict: apply ruleset: %w", err)
	}

	if apply < RequiredABI {
		return StatusPartiallyEnforced, nil
	}
	return StatusFullyEnforced, nil
}

// Probe reports what Restrict would achieve on this kernel without
// altering the calling process's enforcement state: the trial ruleset
// is created but never self-applied. It runs on its own goroutine so an
// internal crash is contained; a crash yields StatusUnavailable with
// ErrProbeCrashed, distinct from a clean failure.
func Probe() (Status, error) {
	type result struct {
		st  Status
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{StatusUnavailable, fmt.Errorf("%w: %v", ErrProbeCrashed, r)}
			}
		}()
		st, err := tryProbe()
		ch <- result{st, err}
	}()
	res := <-ch
	return res.st, res.err
}

func tryProbe() (Status, error) {
	abi, err := getABIVersion()
	if err != nil || abi <= 0 {
		return StatusNotEnforced, nil
	}

	fd, err := createRuleset(&llsys.RulesetAttr{HandledAccessFS: handledAccessV1}, 0)
	if err != nil {
		return StatusUnavailable, fmt.Errorf("restrict: probe ruleset: %w", err)
	}
	syscall.Close(fd)

	if abi < RequiredABI {
		return StatusPartiallyEnforced, nil
	}
	return StatusFullyEnforced, nil
}

// configFor maps an ABI version to the strict (non best-effort)
// go-landlock config. Only versions up to RequiredABI are ever used.
func configFor(abi int) landlock.Config {
	switch {
	case abi >= 2:
		return landlock.V2
	default:
		return landlock.V1
	}
}

func buildRules(exceptions []Exception) ([]landlock.Rule, error) {
	rules := make([]landlock.Rule, 0, len(exceptions))
	for _, e := range exceptions {
		info, err := statPath(e.Path)
		if err != nil {
			return nil, fmt.Errorf("restrict: exception path %q: %w", e.Path, err)
		}
		set := e.accessFS(info.IsDir())
		if set == 0 {
			return nil, fmt.Errorf("restrict: exception path %q grants no access", e.Path)
		}
		rules = append(rules, landlock.PathAccess(set, e.Path))
	}
	return rules, nil
}

// accessFS translates the exception rights into Landlock access bits.
// Directory-only bits are stripped for plain files, the kernel rejects
// them on non-directory rule targets.
func (e Exception) accessFS(isDir bool) landlock.AccessFSSet {
	var a landlock.AccessFSSet
	if e.Mode&ModeRead != 0 {
		a |= llsys.AccessFSReadFile
	}
	if e.Mode&ModeWrite != 0 {
		a |= llsys.AccessFSWriteFile
		if isDir {
			a |= llsys.AccessFSMakeReg | llsys.AccessFSMakeDir |
				llsys.AccessFSRemoveFile | llsys.AccessFSRemoveDir
		}
	}
	if e.Mode&ModeListDir != 0 && isDir {
		a |= llsys.AccessFSReadDir
	}
	return a
}
