package link

import "sync/atomic"

// Transport is a raw byte-stream channel to exactly one peer.
type Transport interface {
	Send(b []byte) error
	RegisterReceiver(fn func(chunk []byte))
}

// Receiver consumes reconstructed datagrams. A returned error marks the frame
// as rejected; the link resets its decoder and keeps running.
type Receiver interface {
	ReceiveDatagram(datagram []byte) error
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(datagram []byte) error

func (f ReceiverFunc) ReceiveDatagram(datagram []byte) error {
	return f(datagram)
}

// receiverSlot holds at most one Receiver; Store replaces, never appends.
type receiverSlot struct {
	p atomic.Pointer[receiverBox]
}

type receiverBox struct {
	r Receiver
}

func (s *receiverSlot) Store(r Receiver) {
	if r == nil {
		s.p.Store(nil)
		return
	}
	s.p.Store(&receiverBox{r: r})
}

func (s *receiverSlot) Load() Receiver {
	box := s.p.Load()
	if box == nil {
		return nil
	}
	return box.r
}
