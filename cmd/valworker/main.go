// Command valworker is the hardening worker binary. In handshake mode
// it reads its hardening request from the inherited socket at fd 3,
// confines itself and reports back; in standalone mode the request is
// assembled from flags, which is handy for poking at the sandbox from
// a shell.
//
// The process exits 0 only when fully hardened.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/valbox/go-harden/envscrub"
	"github.com/valbox/go-harden/harden"
	"github.com/valbox/go-harden/isolate"
	"github.com/valbox/go-harden/pkg/mount"
	"github.com/valbox/go-harden/restrict"
	"github.com/valbox/go-harden/worker"
)

var (
	handshake      bool
	workerDir      string
	roBinds        []string
	readPaths      []string
	readWritePaths []string
	allowPartial   bool
	noSeccomp      bool
)

func init() {
	pflag.BoolVar(&handshake, "handshake", false, "read the hardening request from fd 3 and report back")
	pflag.StringVar(&workerDir, "worker-dir", "", "directory that becomes the process root (standalone mode)")
	pflag.StringSliceVar(&roBinds, "bind-ro", nil, "source:target read-only binds placed under the worker dir before isolation")
	pflag.StringSliceVar(&readPaths, "read", nil, "read-only path exceptions, as seen inside the new root")
	pflag.StringSliceVar(&readWritePaths, "read-write", nil, "read-write directory exceptions, as seen inside the new root")
	pflag.BoolVar(&allowPartial, "allow-partial", false, "accept partial filesystem enforcement (diagnostics only)")
	pflag.BoolVar(&noSeccomp, "no-seccomp", false, "skip the syscall deny-list (diagnostics only)")
}

func main() {
	pflag.Parse()
	initLog()

	if handshake {
		rep, err := worker.Run()
		exit(rep, err)
	}

	if workerDir == "" {
		fmt.Fprintln(os.Stderr, "valworker: --worker-dir is required without --handshake")
		pflag.Usage()
		os.Exit(2)
	}
	// Standalone mode re-execs itself into fresh namespaces first;
	// hardening cannot create them from an already-running process.
	if os.Getenv(standaloneChildEnv) == "" {
		os.Exit(reexecStandalone())
	}
	if err := mountBinds(); err != nil {
		logrus.WithError(err).Error("Cannot place binds under the worker dir")
		os.Exit(1)
	}
	rep, err := harden.Harden(harden.Config{
		WorkerDir:      workerDir,
		Exceptions:     exceptions(),
		AllowPartial:   allowPartial,
		DisableSeccomp: noSeccomp,
	})
	exit(rep, err)
}

const standaloneChildEnv = "VALWORKER_STANDALONE_CHILD"

func reexecStandalone() int {
	self, err := os.Executable()
	if err != nil {
		logrus.WithError(err).Error("Cannot locate own binary")
		return 1
	}
	cmd := exec.Command(self, os.Args[1:]...)
	cmd.Env = append(os.Environ(), standaloneChildEnv+"=1")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = isolate.SysProcAttr()
	if err := cmd.Run(); err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return ee.ExitCode()
		}
		logrus.WithError(err).Error("Cannot spawn into fresh namespaces")
		return 1
	}
	return 0
}

// mountBinds places the requested read-only binds under the worker
// dir. They happen before isolation; the recursive self-bind carries
// them into the new root.
func mountBinds() error {
	for _, b := range roBinds {
		src, dst, ok := strings.Cut(b, ":")
		if !ok {
			return fmt.Errorf("malformed bind %q, want source:target", b)
		}
		m := mount.ReadOnlyBind(src, filepath.Join(workerDir, dst))
		if err := m.Mount(); err != nil {
			return fmt.Errorf("mount %v: %w", m, err)
		}
	}
	return nil
}

func exceptions() []restrict.Exception {
	var ex []restrict.Exception
	for _, p := range readPaths {
		ex = append(ex, restrict.ReadDir(p))
	}
	for _, p := range readWritePaths {
		ex = append(ex, restrict.ReadWriteDir(p))
	}
	return ex
}

func exit(rep harden.Report, err error) {
	if err != nil || !rep.Hardened {
		logrus.WithFields(logrus.Fields{
			"failedStep":  rep.FailedStep,
			"enforcement": rep.Enforcement.String(),
		}).Error("Worker not hardened")
		os.Exit(1)
	}
	logrus.WithField("enforcement", rep.Enforcement.String()).Info("Worker hardened, ready for payload")
	os.Exit(0)
}

// initLog derives the level from the one environment variable the
// scrubber keeps, so logging survives into the confined process.
func initLog() {
	raw := os.Getenv(envscrub.LogLevelEnv)
	if raw == "" {
		logrus.SetLevel(logrus.InfoLevel)
		return
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(raw))
	if err != nil {
		logrus.SetLevel(logrus.InfoLevel)
		logrus.WithField("value", raw).Warn("Unparsable log level, using info")
		return
	}
	logrus.SetLevel(lvl)
}
