package protocol

import "encoding/binary"

// Packet is the tagged union of everything that crosses the radio
// link. A buffer is decoded exactly once at the boundary and then
// dispatched on the concrete type. All fields are fixed-width
// little-endian with no padding.
type Packet interface {
	Tag() Tag
	Sequence() uint16
}

// Tag is the packet type discriminator carried in byte 0.
type Tag byte

// StartPacket is the synchronisation directive for one device.
//
//	+-----+-----+--------+-------+--------+-----+-------+---------+
//	| tag | seq | target | clock | master | vol | steps | t_ds[4] |
//	+-----+-----+--------+-------+--------+-----+-------+---------+
//	|  1  |  2  |   1    |   4   |   4    |  1  |   1   |    8    |
//	+-----+-----+--------+-------+--------+-----+-------+---------+
//
// CurrentClock is the controller clock sampled when the packet was
// built; MasterStart is the controller tick all step offsets are
// relative to. Steps are deciseconds from MasterStart; only the first
// StepCount entries are meaningful.
type StartPacket struct {
	Seq          uint16
	TargetID     uint8
	CurrentClock Ticks
	MasterStart  Ticks
	Volume       uint8
	StepCount    uint8
	Steps        [4]uint16
}

func (p StartPacket) Tag() Tag         { return TagStart }
func (p StartPacket) Sequence() uint16 { return p.Seq }

// DiscoverPacket probes one target when TargetID names a device, or
// every device at once when TargetID is BroadcastTarget. A device
// answers a broadcast probe by echoing the packet with its own id in
// TargetID, which doubles as its identifier token during a discovery
// round.
type DiscoverPacket struct {
	Seq      uint16
	TargetID uint8
}

func (p DiscoverPacket) Tag() Tag         { return TagDiscover }
func (p DiscoverPacket) Sequence() uint16 { return p.Seq }

// BroadcastPacket carries a numeric command for all devices.
type BroadcastPacket struct {
	Seq     uint16
	Command uint8
}

func (p BroadcastPacket) Tag() Tag         { return TagBroadcast }
func (p BroadcastPacket) Sequence() uint16 { return p.Seq }

// ReadyAck acknowledges the packet whose seq it echoes.
type ReadyAck struct {
	Seq uint16
}

func (p ReadyAck) Tag() Tag         { return TagReadyAck }
func (p ReadyAck) Sequence() uint16 { return p.Seq }

// Encode serialises a packet into its exact on-air byte layout.
func Encode(p Packet) []byte {
	switch v := p.(type) {
	case StartPacket:
		data := make([]byte, StartPacketSize)
		data[0] = byte(TagStart)
		binary.LittleEndian.PutUint16(data[1:3], v.Seq)
		data[3] = v.TargetID
		binary.LittleEndian.PutUint32(data[4:8], uint32(v.CurrentClock))
		binary.LittleEndian.PutUint32(data[8:12], uint32(v.MasterStart))
		data[12] = v.Volume
		data[13] = v.StepCount
		for i := 0; i < MaxSteps; i++ {
			binary.LittleEndian.PutUint16(data[14+2*i:16+2*i], v.Steps[i])
		}
		return data
	case DiscoverPacket:
		data := make([]byte, DiscoverPacketSize)
		data[0] = byte(TagDiscover)
		binary.LittleEndian.PutUint16(data[1:3], v.Seq)
		data[3] = v.TargetID
		return data
	case BroadcastPacket:
		data := make([]byte, BroadcastPacketSize)
		data[0] = byte(TagBroadcast)
		binary.LittleEndian.PutUint16(data[1:3], v.Seq)
		data[3] = v.Command
		return data
	case ReadyAck:
		data := make([]byte, ReadyAckSize)
		data[0] = byte(TagReadyAck)
		binary.LittleEndian.PutUint16(data[1:3], v.Seq)
		return data
	}
	return nil
}

// Decode parses an on-air buffer. The length must match the expected
// size for the tag in byte 0 exactly; anything else returns
// ErrMalformedPacket. Radio noise routinely produces garbage, so the
// caller is expected to drop the error silently.
func Decode(data []byte) (Packet, error) {
	if len(data) == 0 {
		return nil, ErrMalformedPacket
	}
	switch Tag(data[0]) {
	case TagStart:
		if len(data) != StartPacketSize {
			return nil, ErrMalformedPacket
		}
		p := StartPacket{
			Seq:          binary.LittleEndian.Uint16(data[1:3]),
			TargetID:     data[3],
			CurrentClock: Ticks(binary.LittleEndian.Uint32(data[4:8])),
			MasterStart:  Ticks(binary.LittleEndian.Uint32(data[8:12])),
			Volume:       data[12],
			StepCount:    data[13],
		}
		for i := 0; i < MaxSteps; i++ {
			p.Steps[i] = binary.LittleEndian.Uint16(data[14+2*i : 16+2*i])
		}
		return p, nil
	case TagDiscover:
		if len(data) != DiscoverPacketSize {
			return nil, ErrMalformedPacket
		}
		return DiscoverPacket{
			Seq:      binary.LittleEndian.Uint16(data[1:3]),
			TargetID: data[3],
		}, nil
	case TagBroadcast:
		if len(data) != BroadcastPacketSize {
			return nil, ErrMalformedPacket
		}
		return BroadcastPacket{
			Seq:     binary.LittleEndian.Uint16(data[1:3]),
			Command: data[3],
		}, nil
	case TagReadyAck:
		if len(data) != ReadyAckSize {
			return nil, ErrMalformedPacket
		}
		return ReadyAck{Seq: binary.LittleEndian.Uint16(data[1:3])}, nil
	}
	return nil, ErrMalformedPacket
}
