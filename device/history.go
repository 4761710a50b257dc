package device

// HistoryCapacity bounds the duplicate-suppression window. Twenty
// entries comfortably covers the retransmission burst of any broadcast
// plus a few neighbours.
const HistoryCapacity = 20

// SequenceHistory is a fixed-capacity ring of recently seen message
// ids, used to suppress re-processing of physically retransmitted
// broadcasts that share one application-level seq.
type SequenceHistory struct {
	entries [HistoryCapacity]uint16
	next    int
	count   int
}

func (h *SequenceHistory) Seen(seq uint16) bool {
	for i := 0; i < h.count; i++ {
		if h.entries[i] == seq {
			return true
		}
	}
	return false
}

func (h *SequenceHistory) Record(seq uint16) {
	h.entries[h.next] = seq
	h.next = (h.next + 1) % HistoryCapacity
	if h.count < HistoryCapacity {
		h.count++
	}
}
