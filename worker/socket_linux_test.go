package worker

import (
	"testing"

	"github.com/valbox/go-harden/harden"
	"github.com/valbox/go-harden/pkg/rlimit"
	"github.com/valbox/go-harden/pkg/unixsocket"
	"github.com/valbox/go-harden/restrict"
)

func socketPair(t *testing.T) (*socket, *socket) {
	t.Helper()
	a, b, err := unixsocket.NewSocketPair()
	if err != nil {
		t.Fatalf("NewSocketPair: %v", err)
	}
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return newSocket(a), newSocket(b)
}

func TestSocketRequestRoundTrip(t *testing.T) {
	host, wrk := socketPair(t)

	want := Request{
		WorkerDir: "/var/lib/workers/w1",
		Exceptions: []restrict.Exception{
			{Path: "/artifact", Mode: restrict.ModeRead},
			{Path: "/cache", Mode: restrict.ModeRead | restrict.ModeWrite},
		},
		KeepEnv:      []string{"WORKER_LOG_LEVEL", "TZ"},
		RLimits:      rlimit.RLimits{CPU: 30, FileSize: 1 << 20},
		AllowPartial: true,
	}
	if err := host.SendMsg(want, unixsocket.Msg{}); err != nil {
		t.Fatalf("SendMsg: %v", err)
	}

	var got Request
	if _, err := wrk.RecvMsg(&got); err != nil {
		t.Fatalf("RecvMsg: %v", err)
	}
	if got.WorkerDir != want.WorkerDir || got.AllowPartial != want.AllowPartial {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if len(got.Exceptions) != 2 || got.Exceptions[1].Mode != restrict.ModeRead|restrict.ModeWrite {
		t.Errorf("exceptions not preserved: %+v", got.Exceptions)
	}
	if len(got.KeepEnv) != 2 || got.KeepEnv[0] != "WORKER_LOG_LEVEL" {
		t.Errorf("keep env not preserved: %+v", got.KeepEnv)
	}
	if got.RLimits.CPU != 30 || got.RLimits.FileSize != 1<<20 {
		t.Errorf("rlimits not preserved: %+v", got.RLimits)
	}
}

func TestSocketReportRoundTrip(t *testing.T) {
	host, wrk := socketPair(t)

	want := harden.Report{
		Hardened:    false,
		Enforcement: restrict.StatusPartiallyEnforced,
		FailedStep:  "restrict",
		Failure:     "enforcement partially-enforced below required level",
	}
	if err := wrk.SendMsg(want, unixsocket.Msg{}); err != nil {
		t.Fatalf("SendMsg: %v", err)
	}

	var got harden.Report
	if _, err := host.RecvMsg(&got); err != nil {
		t.Fatalf("RecvMsg: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestHandshake(t *testing.T) {
	host, wrk := socketPair(t)

	done := make(chan error, 1)
	go func() {
		var req Request
		if _, err := wrk.RecvMsg(&req); err != nil {
			done <- err
			return
		}
		rep := harden.Report{
			Hardened:    true,
			Enforcement: restrict.StatusFullyEnforced,
		}
		done <- wrk.SendMsg(rep, unixsocket.Msg{})
	}()

	rep, err := handshake(host, Request{WorkerDir: "/w"})
	if err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("worker side: %v", err)
	}
	if !rep.Hardened || rep.Enforcement != restrict.StatusFullyEnforced {
		t.Errorf("unexpected report: %+v", rep)
	}
}

func TestHandshakeWorkerGone(t *testing.T) {
	host, wrk := socketPair(t)
	wrk.Close()

	if _, err := handshake(host, Request{WorkerDir: "/w"}); err == nil {
		t.Error("expected error after peer closed")
	}
}
