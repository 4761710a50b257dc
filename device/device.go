// Package device implements the device role of the signal network:
// an autonomous battery unit that registers itself with the
// controller, accepts synchronisation directives, and fires its local
// light/sound sequence in time alignment with its peers.
package device

import (
	"log"

	"github.com/jmercer/startgate/clocksync"
	"github.com/jmercer/startgate/config"
	proto "github.com/jmercer/startgate/protocol"
	"github.com/jmercer/startgate/transport"
)

// flashTicks is how long the lamp-test effect stays lit.
const flashTicks = 500 * proto.TicksPerMilli

// announceGapTicks spaces the repeated transmissions of one WHO reply.
const announceGapTicks = 25 * proto.TicksPerMilli

// Device is the single cooperative context of one unit. Its top-level
// mode is a two-state machine: Unregistered (listening on the
// discovery channel) and Registered (listening on the command
// channel); every other protocol state nests inside it. Nothing here
// blocks: deferred effects are deadline values checked by Poll.
type Device struct {
	id    uint8
	link  *transport.Link
	clock proto.Clock

	registered bool
	sync       *clocksync.Manager
	sched      *ActionScheduler
	history    SequenceHistory
	leds       LedBank
	audio      AudioPlayer

	slotWidth       proto.Ticks
	announceRepeats int

	// Deferred WHO reply (slot-staggered, repeated)
	announceAt    proto.Ticks
	announcesLeft int
	announceSeq   uint16

	// Deferred lamp-test off
	flashing   bool
	flashOffAt proto.Ticks
}

// New creates a device with identifier id. Nil outputs fall back to
// no-ops, which is how a lights-only or sound-only unit runs.
func New(id uint8, driver transport.RadioDriver, clock proto.Clock, leds LedBank, audio AudioPlayer, cfg config.Config) *Device {
	if leds == nil {
		leds = nopLeds{}
	}
	if audio == nil {
		audio = nopAudio{}
	}
	link := transport.NewLink(driver)
	_ = link.SetChannel(proto.DiscoveryChannel)
	return &Device{
		id:              id,
		link:            link,
		clock:           clock,
		sync:            clocksync.New(),
		sched:           NewActionScheduler(leds, audio, proto.MillisToTicks(cfg.AudioLeadMs)),
		leds:            leds,
		audio:           audio,
		slotWidth:       proto.MillisToTicks(cfg.SlotWidthMs),
		announceRepeats: cfg.AnnounceRepeats,
	}
}

func (d *Device) ID() uint8 { return d.id }

func (d *Device) Registered() bool { return d.registered }

func (d *Device) ClockSync() *clocksync.Manager { return d.sync }

func (d *Device) Scheduler() *ActionScheduler { return d.sched }

// Poll is one pass of the device loop: drain all pending inbound
// packets non-blockingly, then run the deferred effects and one
// scheduler tick. The caller repeats this as fast as it likes; no
// fixed period is assumed.
func (d *Device) Poll() {
	for {
		pkt, ok := d.link.Poll()
		if !ok {
			break
		}
		d.process(pkt)
	}
	now := d.clock()
	d.tickAnnounce(now)
	d.tickFlash(now)
	d.sched.Tick(now)
}

func (d *Device) process(pkt proto.Packet) {
	switch p := pkt.(type) {
	case proto.DiscoverPacket:
		d.handleDiscover(p)
	case proto.StartPacket:
		d.handleStart(p)
	case proto.BroadcastPacket:
		d.handleBroadcast(p)
	case proto.ReadyAck:
		// Devices never await acks; a stray one is another unit's
		// reply overheard on the shared channel.
	}
}

func (d *Device) handleDiscover(p proto.DiscoverPacket) {
	if p.TargetID == proto.BroadcastTarget {
		// WHO round. Only unregistered devices answer, after a slot
		// delay proportional to the identifier so replies on the
		// shared channel do not collide.
		if d.registered || d.announcesLeft > 0 {
			return
		}
		d.announceSeq = p.Seq
		d.announcesLeft = d.announceRepeats
		d.announceAt = d.clock() + proto.Ticks(d.id)*d.slotWidth
		return
	}
	if p.TargetID == d.id {
		_ = d.link.Transmit(proto.ReadyAck{Seq: p.Seq})
	}
}

func (d *Device) tickAnnounce(now proto.Ticks) {
	if d.announcesLeft == 0 || !proto.Reached(now, d.announceAt) {
		return
	}
	_ = d.link.Transmit(proto.DiscoverPacket{Seq: d.announceSeq, TargetID: d.id})
	d.announcesLeft--
	if d.announcesLeft > 0 {
		d.announceAt = now + announceGapTicks
		return
	}
	// Reply sent: hop to the command channel and stay there until an
	// explicit reset.
	d.registered = true
	_ = d.link.SetChannel(proto.CommandChannel)
	log.Printf("[Device %02d] registered, listening on command channel", d.id)
}

func (d *Device) handleStart(p proto.StartPacket) {
	if p.TargetID != d.id && p.TargetID != proto.BroadcastTarget {
		return
	}
	// Acknowledge first, and acknowledge again for retransmissions:
	// the controller may have missed the previous ack.
	_ = d.link.Transmit(proto.ReadyAck{Seq: p.Seq})

	now := d.clock()
	localTarget := d.sync.Resolve(now, p.CurrentClock, p.MasterStart)
	if d.sched.Load(p, localTarget, now) {
		log.Printf("[Device %02d] scheduled %d actions for seq=%d", d.id, len(d.sched.Actions()), p.Seq)
	}
}

func (d *Device) handleBroadcast(p proto.BroadcastPacket) {
	if d.history.Seen(p.Seq) {
		return
	}
	d.history.Record(p.Seq)

	switch p.Command {
	case proto.CmdFlash:
		d.leds.Set(true, true, true)
		d.flashing = true
		d.flashOffAt = d.clock() + flashTicks
	case proto.CmdReset:
		d.reset()
	case proto.CmdAllOff:
		d.sched.Clear()
	default:
		log.Printf("[Device %02d] unknown broadcast command %d", d.id, p.Command)
	}
}

func (d *Device) tickFlash(now proto.Ticks) {
	if d.flashing && proto.Reached(now, d.flashOffAt) {
		d.leds.Set(false, false, false)
		d.flashing = false
	}
}

// reset returns the device to Unregistered on the discovery channel,
// dropping any schedule. The next WHO round will pick it up again.
func (d *Device) reset() {
	d.registered = false
	d.announcesLeft = 0
	d.sched.Clear()
	_ = d.link.SetChannel(proto.DiscoveryChannel)
	log.Printf("[Device %02d] reset, listening on discovery channel", d.id)
}
