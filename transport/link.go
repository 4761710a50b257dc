package transport

import (
	"time"

	proto "github.com/jmercer/startgate/protocol"
)

// Link wraps a RadioDriver with the packet codec and the half-duplex
// mode discipline: every transmission is a scoped acquire/release of
// the transmit mode, so the radio is always back in listen mode when a
// call returns, error or not.
type Link struct {
	driver RadioDriver
}

func NewLink(d RadioDriver) *Link {
	_ = d.SetMode(ModeListen)
	return &Link{driver: d}
}

// Transmit encodes and sends one packet, restoring listen mode on
// every exit path.
func (l *Link) Transmit(p proto.Packet) error {
	if err := l.driver.SetMode(ModeTransmit); err != nil {
		return err
	}
	err := l.driver.Send(proto.Encode(p))
	if rErr := l.driver.SetMode(ModeListen); err == nil {
		err = rErr
	}
	return err
}

// Poll drains at most one valid packet without blocking. Malformed
// buffers are dropped silently and draining continues, so radio noise
// never surfaces past this point.
func (l *Link) Poll() (proto.Packet, bool) {
	for {
		data, err := l.driver.Recv(0)
		if err != nil {
			return nil, false
		}
		pkt, err := proto.Decode(data)
		if err != nil {
			continue
		}
		return pkt, true
	}
}

// Await blocks up to timeout for one valid packet. Used only on the
// controller's transmit path while waiting for an acknowledgment; a
// device never calls it.
func (l *Link) Await(timeout time.Duration) (proto.Packet, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining < 0 {
			return nil, proto.ErrTimeout
		}
		data, err := l.driver.Recv(remaining)
		if err != nil {
			return nil, proto.ErrTimeout
		}
		pkt, err := proto.Decode(data)
		if err != nil {
			continue // noise; keep waiting out the deadline
		}
		return pkt, nil
	}
}

func (l *Link) SetChannel(ch uint8) error {
	if ch > 125 {
		return proto.ErrInvalidChannel
	}
	return l.driver.SetChannel(ch)
}
