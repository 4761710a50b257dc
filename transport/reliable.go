package transport

import (
	"log"
	"time"

	proto "github.com/jmercer/startgate/protocol"
)

// Sender is the controller-side reliable delivery layer: bounded
// retries of an identical packet, waiting after each attempt for a
// READY-ACK echoing the packet's seq. It also owns sequence id
// generation; the controller is the only seq producer in the network.
type Sender struct {
	link       *Link
	seq        uint16
	retryCount int
	ackTimeout time.Duration
}

func NewSender(link *Link, retryCount int, ackTimeout time.Duration) *Sender {
	return &Sender{link: link, retryCount: retryCount, ackTimeout: ackTimeout}
}

// NextSeq returns a fresh sequence id. 16-bit, monotonically
// increasing, unique per logical transmission.
func (s *Sender) NextSeq() uint16 {
	s.seq++
	return s.seq
}

// SendReliable transmits p up to the retry bound, returning nil as
// soon as a matching acknowledgment arrives. Retransmissions carry the
// same seq, so the receiver sees them as duplicates and re-acks
// without re-executing side effects. Exhausting the attempts returns
// ErrDeliveryFailed; the caller reports and moves on to the next
// target rather than aborting the batch.
func (s *Sender) SendReliable(p proto.Packet) error {
	for attempt := 1; attempt <= s.retryCount; attempt++ {
		if err := s.link.Transmit(p); err != nil {
			return err
		}
		if s.awaitAck(p.Sequence()) {
			return nil
		}
		if attempt < s.retryCount {
			log.Printf("[Sender] no ack for seq=%d, attempt %d/%d", p.Sequence(), attempt, s.retryCount)
		}
	}
	return proto.ErrDeliveryFailed
}

func (s *Sender) awaitAck(seq uint16) bool {
	deadline := time.Now().Add(s.ackTimeout)
	for time.Now().Before(deadline) {
		pkt, err := s.link.Await(time.Until(deadline))
		if err != nil {
			return false
		}
		if ack, ok := pkt.(proto.ReadyAck); ok && ack.Seq == seq {
			return true
		}
		// Anything else (stale ack, late announce) is discarded; the
		// link has no reordering buffer.
	}
	return false
}

// Blast transmits p a fixed number of times with no acknowledgment
// wait. Used for broadcast queries and commands, where the receiving
// side's duplicate suppression absorbs the repeats. Quiet: a lost
// broadcast is never reported.
func (s *Sender) Blast(p proto.Packet, times int, gap time.Duration) {
	for i := 0; i < times; i++ {
		if err := s.link.Transmit(p); err != nil {
			return
		}
		if i < times-1 {
			time.Sleep(gap)
		}
	}
}
