package envscrub

import (
	"sort"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func stubEnviron(t *testing.T, entries []string) (removed *[]string) {
	t.Helper()
	oldEnviron, oldUnsetenv := environ, unsetenv
	t.Cleanup(func() { environ, unsetenv = oldEnviron, oldUnsetenv })

	environ = func() []string { return entries }
	removed = &[]string{}
	unsetenv = func(key string) error {
		*removed = append(*removed, key)
		return nil
	}
	return removed
}

func TestScrubKeepsOnlyAllowList(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	removed := stubEnviron(t, []string{
		"HOME=/root",
		"PATH=/usr/bin",
		LogLevelEnv + "=debug",
		"SECRET_TOKEN=abc",
	})

	Scrub(DefaultAllowList())

	want := []string{"HOME", "PATH", "SECRET_TOKEN"}
	got := append([]string(nil), *removed...)
	sort.Strings(got)
	if len(got) != len(want) {
		t.Fatalf("removed %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("removed %v, want %v", got, want)
		}
	}

	// no warning for well-formed entries
	if n := len(hook.Entries); n != 0 {
		t.Errorf("got %d warnings for well-formed entries, want 0", n)
	}
}

func TestScrubWarnsOnMalformedKey(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	removed := stubEnviron(t, []string{
		"=C:=C:\\",
		"GOOD=1",
	})

	Scrub(nil)

	// malformed entry is still removed
	if len(*removed) != 2 {
		t.Fatalf("removed %v, want 2 entries", *removed)
	}

	entries := hook.AllEntries()
	if len(entries) != 1 {
		t.Fatalf("got %d warnings, want exactly 1", len(entries))
	}
	e := entries[0]
	if e.Level != log.WarnLevel {
		t.Errorf("warning level = %v", e.Level)
	}
	if e.Data["key"] != "" {
		t.Errorf("warning key = %v, want empty key", e.Data["key"])
	}
	reasons, ok := e.Data["reasons"].([]string)
	if !ok || len(reasons) != 1 || reasons[0] != "key is empty" {
		t.Errorf("warning reasons = %v", e.Data["reasons"])
	}
}

func TestScrubWarnsOnNulCharacters(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	stubEnviron(t, []string{"BAD\x00KEY=oops\x00"})

	Scrub(nil)

	entries := hook.AllEntries()
	if len(entries) != 1 {
		t.Fatalf("got %d warnings, want 1", len(entries))
	}
	reasons, _ := entries[0].Data["reasons"].([]string)
	if len(reasons) != 2 {
		t.Fatalf("reasons = %v, want key and value null reports", reasons)
	}
}

func TestScrubNeverFails(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	oldEnviron, oldUnsetenv := environ, unsetenv
	defer func() { environ, unsetenv = oldEnviron, oldUnsetenv }()

	environ = func() []string { return []string{"A=1"} }
	unsetenv = func(string) error { return &testError{} }

	// a failing unsetenv must not panic or abort
	Scrub(nil)
}

type testError struct{}

func (*testError) Error() string { return "unsetenv refused" }

func TestSplitEntry(t *testing.T) {
	tests := []struct {
		entry, key, value string
	}{
		{"A=1", "A", "1"},
		{"A=b=c", "A", "b=c"},
		{"NOVALUE=", "NOVALUE", ""},
		{"NOSEP", "NOSEP", ""},
		{"=weird", "", "weird"},
	}
	for _, tt := range tests {
		k, v := splitEntry(tt.entry)
		if k != tt.key || v != tt.value {
			t.Errorf("splitEntry(%q) = (%q, %q), want (%q, %q)", tt.entry, k, v, tt.key, tt.value)
		}
	}
}
