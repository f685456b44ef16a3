package worker

import (
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/valbox/go-harden/pkg/unixsocket"
)

const bufferSize = 16 << 10

var bufferPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, bufferSize)
	},
}

// socket wraps the seqpacket socket with a CBOR codec. One message per
// packet, so a short read means a truncated message rather than a
// framing ambiguity.
type socket struct {
	*unixsocket.Socket
}

func newSocket(s *unixsocket.Socket) *socket {
	return &socket{Socket: s}
}

func (s *socket) RecvMsg(e interface{}) (unixsocket.Msg, error) {
	buff := bufferPool.Get().([]byte)
	defer bufferPool.Put(buff)

	n, msg, err := s.Socket.RecvMsg(buff)
	if err != nil {
		return unixsocket.Msg{}, fmt.Errorf("recv msg: %w", err)
	}
	if err := cbor.Unmarshal(buff[:n], e); err != nil {
		return unixsocket.Msg{}, fmt.Errorf("decode msg: %w", err)
	}
	return msg, nil
}

func (s *socket) SendMsg(e interface{}, msg unixsocket.Msg) error {
	buf, err := cbor.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode msg: %w", err)
	}
	if len(buf) > bufferSize {
		return fmt.Errorf("encode msg: message too large: %d", len(buf))
	}
	if err := s.Socket.SendMsg(buf, msg); err != nil {
		return fmt.Errorf("send msg: %w", err)
	}
	return nil
}
