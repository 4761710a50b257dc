package show

import (
	"github.com/google/uuid"

	proto "github.com/jmercer/startgate/protocol"
)

// Directive is one device's compiled share of a batch: decisecond
// step offsets ready for the wire.
type Directive struct {
	DeviceID  uint8     `json:"device_id"`
	StepCount uint8     `json:"step_count"`
	Steps     [4]uint16 `json:"steps"` // deciseconds from master start
	Volume    uint8     `json:"volume"`
}

// Packet assembles the wire directive. currentClock is the
// controller's clock at build time; together with masterStart it is
// the self-contained pair the device resolves its local target from.
func (d Directive) Packet(seq uint16, currentClock, masterStart proto.Ticks) proto.StartPacket {
	return proto.StartPacket{
		Seq:          seq,
		TargetID:     d.DeviceID,
		CurrentClock: currentClock,
		MasterStart:  masterStart,
		Volume:       d.Volume,
		StepCount:    d.StepCount,
		Steps:        d.Steps,
	}
}

// Batch is one compiled show run. MasterStart is zero until the
// controller stamps it at launch.
type Batch struct {
	ID            uuid.UUID   `json:"id"`
	Directives    []Directive `json:"directives"`
	EarliestGreen uint16      `json:"earliest_green"` // deciseconds; go-marker offset
	MasterStart   proto.Ticks `json:"master_start"`
}

// Compile turns parsed entries into a batch. Offsets encode as
// deciseconds rounding half up; volumes clamp to the hardware range,
// with defaultVolume filling entries that named none. The earliest
// green across the batch becomes the go-marker offset.
func Compile(entries []Entry, defaultVolume uint8) *Batch {
	b := &Batch{ID: uuid.New()}
	for _, e := range entries {
		d := Directive{
			DeviceID:  e.DeviceID,
			StepCount: uint8(len(e.Offsets)),
			Volume:    clampVolume(e.Volume, defaultVolume),
		}
		for i, off := range e.Offsets {
			d.Steps[i] = proto.SecondsToDecis(off)
		}
		green := d.Steps[2]
		if len(b.Directives) == 0 || green < b.EarliestGreen {
			b.EarliestGreen = green
		}
		b.Directives = append(b.Directives, d)
	}
	return b
}

// ParseShow is the one-call front door: parse then compile, returning
// the batch plus one error per skipped entry.
func ParseShow(input string, defaultVolume uint8) (*Batch, []error) {
	entries, errs := Parse(input)
	return Compile(entries, defaultVolume), errs
}

func clampVolume(v int, def uint8) uint8 {
	if v < 0 {
		return def
	}
	if v > int(proto.MaxVolume) {
		return proto.MaxVolume
	}
	return uint8(v)
}
