package unixsocket

import (
	"bytes"
	"os"
	"testing"
)

func TestSendRecv(t *testing.T) {
	a, b, err := NewSocketPair()
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	defer b.Close()

	go func() {
		a.SendMsg([]byte("ready"), Msg{})
	}()

	buf := make([]byte, 64)
	n, _, err := b.RecvMsg(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf[:n], []byte("ready")) {
		t.Fatalf("RecvMsg got %q, want %q", buf[:n], "ready")
	}
}

func TestSendRecvMsg_Fds(t *testing.T) {
	a, b, err := NewSocketPair()
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	defer b.Close()

	tmpfile, err := os.CreateTemp("", "unixsocket-fd")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())
	defer tmpfile.Close()

	msg := []byte("fdtest")
	go func() {
		a.SendMsg(msg, Msg{Fds: []int{int(tmpfile.Fd())}})
	}()

	buf := make([]byte, 64)
	n, m, err := b.RecvMsg(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf[:n], msg) {
		t.Errorf("RecvMsg got %q, want %q", buf[:n], msg)
	}
	if len(m.Fds) != 1 {
		t.Fatalf("RecvMsg got %d fds, want 1", len(m.Fds))
	}

	f := os.NewFile(uintptr(m.Fds[0]), "recv-fd")
	if f == nil {
		t.Fatal("received fd is not valid")
	}
	f.Close()
}

func TestNewSocket_BadFd(t *testing.T) {
	if _, err := NewSocket(-1); err == nil {
		t.Error("NewSocket(-1) succeeded, want error")
	}
}
