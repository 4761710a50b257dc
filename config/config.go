// Package config manages the runtime tunables shared by the
// controller and device roles. Values load from an optional JSON file;
// anything absent keeps its default.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds every tunable of the signal network.
type Config struct {
	// RetryCount bounds reliable-delivery transmissions per packet.
	RetryCount int `json:"retry_count"`
	// AckTimeoutMs is how long each attempt waits for a READY-ACK.
	AckTimeoutMs int `json:"ack_timeout_ms"`
	// DiscoveryWindowMs is the response window after a WHO broadcast.
	DiscoveryWindowMs int `json:"discovery_window_ms"`
	// SlotWidthMs spaces device WHO replies by identifier to avoid
	// collisions on the shared channel.
	SlotWidthMs int `json:"slot_width_ms"`
	// AnnounceRepeats is how many times a device retransmits its WHO
	// reply; the controller's dedup absorbs the extras.
	AnnounceRepeats int `json:"announce_repeats"`
	// StartDelayMs is added to the controller clock to form the master
	// start of a batch.
	StartDelayMs int `json:"start_delay_ms"`
	// AudioLeadMs schedules each audio cue ahead of its paired light
	// change, hiding playback start latency.
	AudioLeadMs int `json:"audio_lead_ms"`
	// DefaultVolume applies to directives without an explicit volume.
	DefaultVolume uint8 `json:"default_volume"`
	// HTTPAddr is the control-plane listen address for `serve`.
	HTTPAddr string `json:"http_addr"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		RetryCount:        4,
		AckTimeoutMs:      250,
		DiscoveryWindowMs: 5000,
		SlotWidthMs:       150,
		AnnounceRepeats:   3,
		StartDelayMs:      2000,
		AudioLeadMs:       1000,
		DefaultVolume:     20,
		HTTPAddr:          ":8080",
	}
}

// Load reads cfg from path, falling back to defaults for a missing
// file. A present-but-broken file is an error; silently running a show
// with half-applied tunables is worse than refusing to start.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
