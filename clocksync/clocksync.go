// Package clocksync maps the controller's time base onto a device's
// local clock. The synchronisation material travels inside every START
// packet as a self-contained (controllerClockAtSend, masterStart)
// pair, so a device needs no prior round-trip: the local target is
// derived fresh at the moment of receipt, last-write-wins.
package clocksync

import proto "github.com/jmercer/startgate/protocol"

type State uint8

const (
	Unsynced State = iota
	Synced
)

// Manager holds the device's view of the controller clock.
type Manager struct {
	state  State
	offset int32 // localClock - controllerClock at last resolution
}

func New() *Manager { return &Manager{} }

// Resolve converts a controller-side target into local clock units:
//
//	localTarget = localNow + (masterStart - controllerClock)
//
// All arithmetic is on the wrapping 32-bit counter, so the result is
// correct across rollover. The derived offset overwrites any previous
// one; there is no averaging or filtering.
func (m *Manager) Resolve(localNow, controllerClock, masterStart proto.Ticks) proto.Ticks {
	m.offset = proto.Diff(localNow, controllerClock)
	m.state = Synced
	return localNow + (masterStart - controllerClock)
}

func (m *Manager) State() State { return m.state }

// Offset is the last derived localClock-controllerClock difference,
// kept for status reporting only.
func (m *Manager) Offset() int32 { return m.offset }
