package transport

import "time"

// Mode is the half-duplex state of the transceiver. The radio is a
// single shared resource: a sender must switch to ModeTransmit, send,
// and switch back to ModeListen, with no mode left ambiguous on any
// exit path. Link enforces that discipline; drivers only obey it.
type Mode uint8

const (
	ModeListen Mode = iota
	ModeTransmit
)

// RadioDriver is the opaque boundary to the physical transceiver.
// Implementations exist off-tree for real hardware; driver/stub
// provides an in-memory one for host-side testing and simulation.
type RadioDriver interface {
	SetMode(m Mode) error
	SetChannel(channel uint8) error
	Send(data []byte) error
	Recv(timeout time.Duration) ([]byte, error)
}
