// Command checksec probes whether the running host can support a fully
// hardened worker: unprivileged user namespaces with pivot_root, and
// Landlock at the pinned ABI level. Operators run it once per host;
// exit status 0 means every requested capability is available.
package main

import (
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/valbox/go-harden/isolate"
	"github.com/valbox/go-harden/restrict"
)

// The isolation probe is destructive to the calling process, so it
// runs in a re-executed child flagged by this variable; the parent
// clones the child into the fresh namespaces isolation requires.
const unshareChildEnv = "CHECKSEC_UNSHARE_CHILD"

var (
	checkUnshare  bool
	checkRestrict bool
)

func init() {
	pflag.BoolVar(&checkUnshare, "check-can-unshare", false, "probe user namespace and pivot_root support only")
	pflag.BoolVar(&checkRestrict, "check-can-restrict", false, "probe Landlock support only")
}

func main() {
	if dir := os.Getenv(unshareChildEnv); dir != "" {
		if err := isolate.Isolate(dir); err != nil {
			logrus.WithError(err).Debug("Isolation failed")
			os.Exit(1)
		}
		os.Exit(0)
	}

	pflag.Parse()
	if !checkUnshare && !checkRestrict {
		checkUnshare = true
		checkRestrict = true
	}

	ok := true
	if checkUnshare {
		ok = canUnshare() && ok
	}
	if checkRestrict {
		ok = canRestrict() && ok
	}
	if !ok {
		os.Exit(1)
	}
}

func canUnshare() bool {
	dir, err := os.MkdirTemp("", "checksec-*")
	if err != nil {
		logrus.WithError(err).Error("Cannot create scratch directory")
		return false
	}
	defer os.RemoveAll(dir)

	self, err := os.Executable()
	if err != nil {
		logrus.WithError(err).Error("Cannot locate own binary")
		return false
	}

	cmd := exec.Command(self)
	cmd.Env = append(os.Environ(), unshareChildEnv+"="+dir)
	cmd.SysProcAttr = isolate.SysProcAttr()
	err = cmd.Run()

	if err != nil {
		logrus.WithError(err).Warn("Host cannot isolate workers: user namespaces or pivot_root unavailable")
		return false
	}
	logrus.Info("Host supports namespace and root isolation")
	return true
}

func canRestrict() bool {
	status, err := restrict.Probe()
	log := logrus.WithField("status", status.String())
	if err != nil {
		log.WithError(err).Warn("Landlock probe failed")
		return false
	}
	if !status.FullyEnforced() {
		log.Warn("Host cannot fully enforce filesystem restrictions")
		return false
	}
	log.Info("Host supports filesystem restrictions at the required level")
	return true
}
