package controller

// DeviceRecord is one discovered device, in first-seen order.
type DeviceRecord struct {
	ID    uint8 `json:"id"`
	Order int   `json:"order"`
}

// Registry is the controller's catalog of devices that answered the
// last WHO round. Responses are appended in arrival order with
// duplicates dropped silently; at window close the set is frozen until
// the next round fully resets it.
type Registry struct {
	records []DeviceRecord
	known   map[uint8]struct{}
	open    bool
}

func NewRegistry() *Registry {
	return &Registry{known: make(map[uint8]struct{})}
}

// Reset clears the catalog and opens it for a new round.
func (r *Registry) Reset() {
	r.records = r.records[:0]
	r.known = make(map[uint8]struct{})
	r.open = true
}

// Freeze closes the current round; further Adds are refused.
func (r *Registry) Freeze() { r.open = false }

// Add records id once per round, preserving arrival order. Returns
// true only for the first sighting within an open round.
func (r *Registry) Add(id uint8) bool {
	if !r.open {
		return false
	}
	if _, dup := r.known[id]; dup {
		return false
	}
	r.known[id] = struct{}{}
	r.records = append(r.records, DeviceRecord{ID: id, Order: len(r.records)})
	return true
}

func (r *Registry) Has(id uint8) bool {
	_, ok := r.known[id]
	return ok
}

// Devices returns a copy of the catalog in arrival order.
func (r *Registry) Devices() []DeviceRecord {
	out := make([]DeviceRecord, len(r.records))
	copy(out, r.records)
	return out
}

func (r *Registry) Len() int { return len(r.records) }
