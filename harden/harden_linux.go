package harden

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/valbox/go-harden/envscrub"
	"github.com/valbox/go-harden/isolate"
	"github.com/valbox/go-harden/pkg/rlimit"
	"github.com/valbox/go-harden/pkg/seccomp"
	"github.com/valbox/go-harden/restrict"
)

// overridden in tests
var (
	applyRLimits   = func(r *rlimit.RLimits) error { return r.Apply() }
	isolateWorker  = isolate.Isolate
	restrictFS     = restrict.Restrict
	scrubEnv       = envscrub.Scrub
	installSeccomp = seccomp.Install
)

// Harden applies the full sequence to the current process. It must run
// single-threaded on the process's initial startup flow, before any
// goroutine that executes untrusted logic exists. Once started there is
// no cancellation: steps complete or the process must terminate.
//
// The returned Report always reflects how far hardening got; the error
// is non-nil whenever Report.Hardened is false.
func Harden(cfg Config) (Report, error) {
	rep := Report{Enforcement: restrict.StatusUnavailable}
	logger := log.WithField("worker_dir", cfg.WorkerDir)

	rl := cfg.RLimits
	rl.DisableCore = true
	if err := applyRLimits(&rl); err != nil {
		return fail(rep, logger, "rlimit", err)
	}

	if err := isolateWorker(cfg.WorkerDir); err != nil {
		return fail(rep, logger, "isolate", err)
	}

	st, err := restrictFS(cfg.Exceptions)
	rep.Enforcement = st
	if err != nil {
		return fail(rep, logger, "restrict", err)
	}
	if !st.FullyEnforced() && !cfg.AllowPartial {
		return fail(rep, logger, "restrict",
			fmt.Errorf("filesystem enforcement is %v, policy requires fully-enforced", st))
	}

	keep := cfg.KeepEnv
	if keep == nil {
		keep = envscrub.DefaultAllowList()
	}
	scrubEnv(keep)

	if !cfg.DisableSeccomp {
		if err := installSeccomp(); err != nil {
			return fail(rep, logger, "seccomp", err)
		}
	}

	rep.Hardened = true
	logger.WithField("enforcement", rep.Enforcement.String()).Info("Worker hardened")
	return rep, nil
}

func fail(rep Report, logger *log.Entry, step string, err error) (Report, error) {
	rep.FailedStep = step
	rep.Failure = err.Error()
	logger.WithError(err).WithField("step", step).
		Error("Hardening failed, refusing to run untrusted code")
	return rep, fmt.Errorf("harden: %s: %w", step, err)
}
