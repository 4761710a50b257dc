package device

import (
	"sort"

	proto "github.com/jmercer/startgate/protocol"
)

// ActionKind discriminates the device-local effects derived from a
// START directive.
type ActionKind uint8

const (
	ActionPlayAudio ActionKind = iota
	ActionSetLed
	ActionAllOff
)

// Action is one absolutely timed local effect. Led actions carry the
// complete bank state, so lighting a colour extinguishes the previous
// one in the same action.
type Action struct {
	At     proto.Ticks
	Kind   ActionKind
	Track  uint8
	Red    bool
	Orange bool
	Green  bool
}

// ActionScheduler converts a START directive into an ordered action
// list and executes it by non-blocking polling. The current list is
// replaced wholesale on every accepted directive, never mutated in
// place; a fresh valid START supersedes whatever was scheduled, even
// mid-execution.
type ActionScheduler struct {
	leds  LedBank
	audio AudioPlayer
	lead  proto.Ticks

	actions []Action
	cursor  int
	volume  uint8

	// Directive fingerprint: a retransmission with the same (seq,
	// masterStart) must not restart an in-progress show.
	lastSeq    uint16
	lastMaster proto.Ticks
	loaded     bool
}

func NewActionScheduler(leds LedBank, audio AudioPlayer, lead proto.Ticks) *ActionScheduler {
	if leds == nil {
		leds = nopLeds{}
	}
	if audio == nil {
		audio = nopAudio{}
	}
	return &ActionScheduler{leds: leds, audio: audio, lead: lead}
}

var stepLeds = [3]struct{ red, orange, green bool }{
	{true, false, false},
	{false, true, false},
	{false, false, true},
}

var stepTracks = [3]uint8{proto.TrackMarks, proto.TrackSet, proto.TrackGo}

// Load builds the schedule for p with its resolved local target time.
// Returns false without touching the current list when p matches the
// last processed fingerprint (the caller still re-acks in that case).
func (s *ActionScheduler) Load(p proto.StartPacket, localTarget, now proto.Ticks) bool {
	if s.loaded && s.lastSeq == p.Seq && s.lastMaster == p.MasterStart {
		return false
	}
	if p.StepCount < proto.MinSteps || p.StepCount > proto.MaxSteps {
		return false
	}

	// Audio floor: never before the target start, never before now.
	floor := localTarget
	if proto.Diff(now, floor) > 0 {
		floor = now
	}

	actions := make([]Action, 0, 2*proto.MinSteps+1)
	for i := 0; i < proto.MinSteps; i++ {
		abs := localTarget + proto.DecisToTicks(p.Steps[i])
		audioAt := abs - s.lead
		if proto.Diff(audioAt, floor) < 0 {
			audioAt = floor
		}
		actions = append(actions, Action{At: audioAt, Kind: ActionPlayAudio, Track: stepTracks[i]})
		c := stepLeds[i]
		actions = append(actions, Action{At: abs, Kind: ActionSetLed, Red: c.red, Orange: c.orange, Green: c.green})
	}
	if p.StepCount == proto.MaxSteps {
		actions = append(actions, Action{At: localTarget + proto.DecisToTicks(p.Steps[3]), Kind: ActionAllOff})
	}

	// Stable sort keyed on distance from the target, so wraparound
	// cannot misorder the list and ties keep emission order (audio
	// stays ahead of its paired led action).
	sort.SliceStable(actions, func(i, j int) bool {
		return proto.Diff(actions[i].At, localTarget) < proto.Diff(actions[j].At, localTarget)
	})

	s.actions = actions
	s.cursor = 0
	s.volume = p.Volume
	s.lastSeq = p.Seq
	s.lastMaster = p.MasterStart
	s.loaded = true
	return true
}

// Tick executes at most one due action and advances the cursor. Called
// every pass of the device loop; the design relies on tick frequency
// being high relative to inter-action spacing, which is at least the
// audio lead.
func (s *ActionScheduler) Tick(now proto.Ticks) {
	if s.cursor >= len(s.actions) {
		return
	}
	a := s.actions[s.cursor]
	if !proto.Reached(now, a.At) {
		return
	}
	switch a.Kind {
	case ActionPlayAudio:
		s.audio.Play(a.Track, s.volume)
	case ActionSetLed:
		s.leds.Set(a.Red, a.Orange, a.Green)
	case ActionAllOff:
		s.leds.Set(false, false, false)
		s.audio.Stop()
	}
	s.cursor++
}

// Clear drops the schedule and darkens the outputs.
func (s *ActionScheduler) Clear() {
	s.actions = nil
	s.cursor = 0
	s.leds.Set(false, false, false)
	s.audio.Stop()
}

// Pending reports how many actions remain unexecuted.
func (s *ActionScheduler) Pending() int { return len(s.actions) - s.cursor }

// Actions exposes the current list for inspection.
func (s *ActionScheduler) Actions() []Action { return s.actions }
