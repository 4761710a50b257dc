// Package controller implements the controller role: the single unit
// that discovers devices, transmits synchronisation directives with
// reliable delivery, and signals the external go marker when the
// earliest green of a batch is due.
package controller

import (
	"log"
	"sync"
	"time"

	"github.com/jmercer/startgate/config"
	proto "github.com/jmercer/startgate/protocol"
	"github.com/jmercer/startgate/show"
	"github.com/jmercer/startgate/transport"
)

// DeliveryResult is the per-target outcome of a batch transmission.
type DeliveryResult struct {
	DeviceID uint8  `json:"device_id"`
	Seq      uint16 `json:"seq"`
	Acked    bool   `json:"acked"`
}

// Controller owns sequence generation and the device catalog. Its
// SendReliable path is the only blocking operation in the system, and
// it blocks only the controller's own progress through a batch —
// device schedulers run in their own contexts.
type Controller struct {
	mu       sync.Mutex
	link     *transport.Link
	sender   *transport.Sender
	clock    proto.Clock
	registry *Registry

	discoveryWindow time.Duration
	startDelay      proto.Ticks
	blastRepeats    int

	// Armed go marker: a deadline value checked by the caller's loop
	// instead of a busy-wait, so it composes with everything else.
	goArmed    bool
	goDeadline proto.Ticks
	onGo       func(batch *show.Batch)
	lastBatch  *show.Batch
}

func New(driver transport.RadioDriver, clock proto.Clock, cfg config.Config) *Controller {
	link := transport.NewLink(driver)
	_ = link.SetChannel(proto.CommandChannel)
	return &Controller{
		link:            link,
		sender:          transport.NewSender(link, cfg.RetryCount, time.Duration(cfg.AckTimeoutMs)*time.Millisecond),
		clock:           clock,
		registry:        NewRegistry(),
		discoveryWindow: time.Duration(cfg.DiscoveryWindowMs) * time.Millisecond,
		startDelay:      proto.MillisToTicks(cfg.StartDelayMs),
		blastRepeats:    cfg.RetryCount,
	}
}

// OnGo installs the external go-marker hook, fired once per batch when
// the controller clock reaches the earliest green time.
func (c *Controller) OnGo(fn func(batch *show.Batch)) {
	c.mu.Lock()
	c.onGo = fn
	c.mu.Unlock()
}

// Discover runs one WHO round: reset the catalog, blast the query on
// the discovery channel, then collect identifier tokens for the fixed
// response window. Duplicate tokens (devices repeat their reply for
// reliability) register once, in arrival order.
func (c *Controller) Discover() []DeviceRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registry.Reset()
	_ = c.link.SetChannel(proto.DiscoveryChannel)

	who := proto.DiscoverPacket{Seq: c.sender.NextSeq(), TargetID: proto.BroadcastTarget}
	c.sender.Blast(who, c.blastRepeats, 5*time.Millisecond)

	deadline := time.Now().Add(c.discoveryWindow)
	for time.Now().Before(deadline) {
		pkt, err := c.link.Await(time.Until(deadline))
		if err != nil {
			break
		}
		reply, ok := pkt.(proto.DiscoverPacket)
		if !ok || reply.TargetID == proto.BroadcastTarget {
			continue
		}
		if c.registry.Add(reply.TargetID) {
			log.Printf("[Controller] found device %02d", reply.TargetID)
		}
	}
	c.registry.Freeze()

	_ = c.link.SetChannel(proto.CommandChannel)
	log.Printf("[Controller] discovery round complete: %d device(s)", c.registry.Len())
	return c.registry.Devices()
}

// Devices returns the catalog from the last discovery round.
func (c *Controller) Devices() []DeviceRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Devices()
}

// Launch stamps the batch's master start (controller now plus the
// fixed start delay), transmits every directive with reliable
// delivery, and arms the go marker at the batch's earliest green.
// A failed delivery is reported and skipped; the batch continues with
// the remaining targets.
func (c *Controller) Launch(b *show.Batch) []DeliveryResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.link.SetChannel(proto.CommandChannel)
	b.MasterStart = c.clock() + c.startDelay

	results := make([]DeliveryResult, 0, len(b.Directives))
	for _, dir := range b.Directives {
		seq := c.sender.NextSeq()
		pkt := dir.Packet(seq, c.clock(), b.MasterStart)
		err := c.sender.SendReliable(pkt)
		if err != nil {
			log.Printf("[Controller] batch %s: device %02d not acknowledged, continuing", b.ID, dir.DeviceID)
		}
		results = append(results, DeliveryResult{DeviceID: dir.DeviceID, Seq: seq, Acked: err == nil})
	}

	c.goDeadline = b.MasterStart + proto.DecisToTicks(b.EarliestGreen)
	c.goArmed = true
	c.lastBatch = b
	log.Printf("[Controller] batch %s launched: %d directive(s), go in %d ds",
		b.ID, len(b.Directives), b.EarliestGreen)
	return results
}

// PollGo checks the armed go deadline against the controller clock and
// fires the hook once when reached. Called from the owner's loop;
// never blocks.
func (c *Controller) PollGo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.goArmed || !proto.Reached(c.clock(), c.goDeadline) {
		return false
	}
	c.goArmed = false
	if c.onGo != nil {
		c.onGo(c.lastBatch)
	}
	log.Printf("[Controller] go marker fired for batch %s", c.lastBatch.ID)
	return true
}

// GoDeadline exposes the armed deadline so callers can schedule their
// own polling cadence around it.
func (c *Controller) GoDeadline() (proto.Ticks, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goDeadline, c.goArmed
}

// LastBatch returns the most recently launched batch, if any.
func (c *Controller) LastBatch() *show.Batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastBatch
}

// FlashAll triggers the lamp-test effect on every registered device.
func (c *Controller) FlashAll() {
	c.broadcast(proto.CmdFlash)
}

// AllOff darkens and silences every registered device.
func (c *Controller) AllOff() {
	c.broadcast(proto.CmdAllOff)
}

// ResetAll returns every device to the unregistered state and the
// discovery channel; the catalog stays frozen until the next round.
func (c *Controller) ResetAll() {
	c.broadcast(proto.CmdReset)
}

func (c *Controller) broadcast(command uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.link.SetChannel(proto.CommandChannel)
	pkt := proto.BroadcastPacket{Seq: c.sender.NextSeq(), Command: command}
	c.sender.Blast(pkt, c.blastRepeats, 5*time.Millisecond)
}
