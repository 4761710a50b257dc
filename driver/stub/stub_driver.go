package stub

import (
	"sync"
	"time"

	proto "github.com/jmercer/startgate/protocol"
	"github.com/jmercer/startgate/transport"
)

// Air is a shared in-memory medium for host-side testing and
// simulation. Every endpoint attached to it behaves like a half-duplex
// transceiver: a send is delivered to every other endpoint that is
// currently listening on the same channel, and nothing is buffered for
// endpoints that are transmitting or tuned elsewhere — exactly the
// loss model of the real link.
type Air struct {
	mu        sync.Mutex
	endpoints []*Driver
}

func NewAir() *Air { return &Air{} }

// Endpoint attaches a new transceiver to the medium, initially
// listening on the discovery channel.
func (a *Air) Endpoint() *Driver {
	d := &Driver{air: a, channel: proto.DiscoveryChannel}
	a.mu.Lock()
	a.endpoints = append(a.endpoints, d)
	a.mu.Unlock()
	return d
}

func (a *Air) deliver(from *Driver, channel uint8, data []byte) {
	a.mu.Lock()
	peers := make([]*Driver, len(a.endpoints))
	copy(peers, a.endpoints)
	a.mu.Unlock()

	for _, p := range peers {
		if p == from {
			continue
		}
		p.mu.Lock()
		if p.channel == channel && p.mode == transport.ModeListen && !p.silenced {
			frame := make([]byte, len(data))
			copy(frame, data)
			p.rx.push(frame)
		}
		p.mu.Unlock()
	}
}

// Driver implements transport.RadioDriver over an Air.
type Driver struct {
	air      *Air
	mu       sync.Mutex
	mode     transport.Mode
	channel  uint8
	silenced bool
	rx       ringBuffer
	txLog    [][]byte
}

func (d *Driver) SetMode(m transport.Mode) error {
	d.mu.Lock()
	d.mode = m
	d.mu.Unlock()
	return nil
}

func (d *Driver) SetChannel(channel uint8) error {
	if channel > 125 {
		return proto.ErrInvalidChannel
	}
	d.mu.Lock()
	d.channel = channel
	d.mu.Unlock()
	return nil
}

func (d *Driver) Send(data []byte) error {
	d.mu.Lock()
	if d.mode != transport.ModeTransmit {
		d.mu.Unlock()
		return proto.ErrNotTransmitting
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	d.txLog = append(d.txLog, frame)
	channel := d.channel
	d.mu.Unlock()

	d.air.deliver(d, channel, data)
	return nil
}

func (d *Driver) Recv(timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		d.mu.Lock()
		frame, ok := d.rx.pop()
		d.mu.Unlock()
		if ok {
			return frame, nil
		}
		if timeout <= 0 || time.Now().After(deadline) {
			return nil, proto.ErrTimeout
		}
		time.Sleep(time.Millisecond)
	}
}

// Silence drops everything addressed to this endpoint while set,
// simulating a device out of radio range.
func (d *Driver) Silence(on bool) {
	d.mu.Lock()
	d.silenced = on
	d.mu.Unlock()
}

// InjectRx queues a raw buffer as if it arrived off the air, bypassing
// the medium. Test hook.
func (d *Driver) InjectRx(data []byte) {
	frame := make([]byte, len(data))
	copy(frame, data)
	d.mu.Lock()
	d.rx.push(frame)
	d.mu.Unlock()
}

// TxLog returns a copy of everything this endpoint has sent. Test hook.
func (d *Driver) TxLog() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.txLog))
	for i, f := range d.txLog {
		cp := make([]byte, len(f))
		copy(cp, f)
		out[i] = cp
	}
	return out
}

const ringCapacity = 64

type ringBuffer struct {
	data       [ringCapacity][]byte
	head, tail int // head = next pop, tail = next push
	count      int
}

func (rb *ringBuffer) push(frame []byte) {
	if rb.count == ringCapacity {
		// Overwrite the oldest when full to keep memory bounded
		rb.data[rb.head] = nil
		rb.head = (rb.head + 1) % ringCapacity
		rb.count--
	}
	rb.data[rb.tail] = frame
	rb.tail = (rb.tail + 1) % ringCapacity
	rb.count++
}

func (rb *ringBuffer) pop() ([]byte, bool) {
	if rb.count == 0 {
		return nil, false
	}
	frame := rb.data[rb.head]
	rb.data[rb.head] = nil
	rb.head = (rb.head + 1) % ringCapacity
	rb.count--
	return frame, true
}
