// Package startgate provides a façade to access the synchronized
// start-signal network: a controller and a set of autonomous
// light/sound devices coordinated over a lossy half-duplex radio link.
package startgate

import (
	"github.com/jmercer/startgate/config"
	"github.com/jmercer/startgate/controller"
	"github.com/jmercer/startgate/device"
	"github.com/jmercer/startgate/protocol"
	"github.com/jmercer/startgate/transport"
)

// Re-export the public surface so embedders need only this package.
type (
	Packet          = protocol.Packet
	StartPacket     = protocol.StartPacket
	DiscoverPacket  = protocol.DiscoverPacket
	BroadcastPacket = protocol.BroadcastPacket
	ReadyAck        = protocol.ReadyAck
	Ticks           = protocol.Ticks
	RadioDriver     = transport.RadioDriver
	Controller      = controller.Controller
	Device          = device.Device
)

var (
	ErrMalformedPacket  = protocol.ErrMalformedPacket
	ErrInvalidDirective = protocol.ErrInvalidDirective
	ErrDeliveryFailed   = protocol.ErrDeliveryFailed
	ErrTimeout          = protocol.ErrTimeout
)

// NewController builds a controller over the given transceiver with
// stock configuration and the host clock.
func NewController(d transport.RadioDriver) *controller.Controller {
	return controller.New(d, protocol.SystemClock, config.Default())
}

// NewDevice builds a device over the given transceiver with stock
// configuration, the host clock, and no-op outputs. Real units pass
// their LED and audio drivers through device.New directly.
func NewDevice(id uint8, d transport.RadioDriver) *device.Device {
	return device.New(id, d, protocol.SystemClock, nil, nil, config.Default())
}
