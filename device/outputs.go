package device

import "log"

// LedBank drives the three signal lamps. Implementations set the whole
// bank atomically, so at any instant exactly one or zero colours is
// lit without a separate "previous off" call.
type LedBank interface {
	Set(red, orange, green bool)
}

// AudioPlayer is the opaque playback hardware: start track n at a
// volume, or stop whatever is playing.
type AudioPlayer interface {
	Play(track uint8, volume uint8)
	Stop()
}

type nopLeds struct{}

func (nopLeds) Set(red, orange, green bool) {}

type nopAudio struct{}

func (nopAudio) Play(track uint8, volume uint8) {}

func (nopAudio) Stop() {}

// LogOutputs prints every effect instead of driving hardware. Used by
// the simulate command and handy while bringing up a rig.
type LogOutputs struct {
	DeviceID uint8
}

func (o *LogOutputs) Set(red, orange, green bool) {
	log.Printf("[Device %02d] leds red=%v orange=%v green=%v", o.DeviceID, red, orange, green)
}

func (o *LogOutputs) Play(track uint8, volume uint8) {
	log.Printf("[Device %02d] play track=%d volume=%d", o.DeviceID, track, volume)
}

func (o *LogOutputs) Stop() {
	log.Printf("[Device %02d] audio stop", o.DeviceID)
}
