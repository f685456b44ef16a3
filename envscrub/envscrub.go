// Package envscrub strips the process environment before untrusted
// code runs, so the payload cannot read host information or use ambient
// variables as a side channel.
package envscrub

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// LogLevelEnv is the one diagnostic variable exempt from scrubbing, a
// deliberate, documented residual side channel.
const LogLevelEnv = "WORKER_LOG_LEVEL"

// DefaultAllowList preserves only the worker's log verbosity setting.
func DefaultAllowList() []string {
	return []string{LogLevelEnv}
}

// overridden in tests
var (
	environ  = os.Environ
	unsetenv = os.Unsetenv
)

// Scrub removes every environment variable whose name is not in allow.
// Malformed entries are logged with the offending key, value and
// reasons, then removal is attempted anyway: the goal is resilience to
// an unusual host environment, not protocol enforcement. Scrub never
// fails the caller.
func Scrub(allow []string) {
	keep := make(map[string]struct{}, len(allow))
	for _, name := range allow {
		keep[name] = struct{}{}
	}

	for _, entry := range environ() {
		key, value := splitEntry(entry)
		if _, ok := keep[key]; ok {
			continue
		}

		if reasons := validate(key, value); len(reasons) > 0 {
			log.WithFields(log.Fields{
				"key":     key,
				"value":   value,
				"reasons": reasons,
			}).Warn("Removing badly-formatted env var, this may misbehave; please remove it from the host environment")
		}

		unsetenv(key)
	}
}

// splitEntry splits a "KEY=VALUE" environ entry at the first separator.
// An entry with no separator is treated as a key with an empty value.
func splitEntry(entry string) (key, value string) {
	if i := strings.IndexByte(entry, '='); i >= 0 {
		return entry[:i], entry[i+1:]
	}
	return entry, ""
}

func validate(key, value string) []string {
	var reasons []string
	if key == "" {
		reasons = append(reasons, "key is empty")
	}
	if strings.ContainsRune(key, '=') {
		reasons = append(reasons, "key contains '='")
	}
	if strings.ContainsRune(key, 0) {
		reasons = append(reasons, "key contains null character")
	}
	if strings.ContainsRune(value, 0) {
		reasons = append(reasons, "value contains null character")
	}
	return reasons
}
