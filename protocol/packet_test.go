package protocol

import (
	"errors"
	"testing"
)

func TestPacketRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		packet Packet
	}{
		{
			name: "start with three steps",
			packet: StartPacket{
				Seq:          42,
				TargetID:     3,
				CurrentClock: 1_000_000,
				MasterStart:  3_000_000,
				Volume:       20,
				StepCount:    3,
				Steps:        [4]uint16{10, 20, 30, 0},
			},
		},
		{
			name: "start with all-off step",
			packet: StartPacket{
				Seq:          0xFFFF,
				TargetID:     0,
				CurrentClock: 0xFFFFFFF0, // near rollover
				MasterStart:  0x00000100,
				Volume:       30,
				StepCount:    4,
				Steps:        [4]uint16{0, 50, 100, 180},
			},
		},
		{
			name:   "discover probe",
			packet: DiscoverPacket{Seq: 7, TargetID: 12},
		},
		{
			name:   "discover broadcast",
			packet: DiscoverPacket{Seq: 8, TargetID: BroadcastTarget},
		},
		{
			name:   "broadcast flash",
			packet: BroadcastPacket{Seq: 9, Command: CmdFlash},
		},
		{
			name:   "ready ack",
			packet: ReadyAck{Seq: 42},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := Encode(tt.packet)
			decoded, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if decoded != tt.packet {
				t.Errorf("Decode() = %#v, want %#v", decoded, tt.packet)
			}
		})
	}
}

func TestEncodedSizes(t *testing.T) {
	tests := []struct {
		name   string
		packet Packet
		want   int
	}{
		{"start", StartPacket{}, StartPacketSize},
		{"discover", DiscoverPacket{}, DiscoverPacketSize},
		{"broadcast", BroadcastPacket{}, BroadcastPacketSize},
		{"ready ack", ReadyAck{}, ReadyAckSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(Encode(tt.packet)); got != tt.want {
				t.Errorf("len(Encode()) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"unknown tag", []byte{0x00, 0x01, 0x02}},
		{"noise", []byte{0x7F, 0xAA, 0xBB, 0xCC, 0xDD}},
		{"start truncated", Encode(StartPacket{Seq: 1})[:StartPacketSize-1]},
		{"start oversized", append(Encode(StartPacket{Seq: 1}), 0x00)},
		{"ack with start length", func() []byte {
			data := make([]byte, StartPacketSize)
			data[0] = byte(TagReadyAck)
			return data
		}()},
		{"discover short", []byte{byte(TagDiscover), 0x01, 0x00}},
		{"broadcast long", []byte{byte(TagBroadcast), 0x01, 0x00, 0x01, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkt, err := Decode(tt.data)
			if !errors.Is(err, ErrMalformedPacket) {
				t.Errorf("Decode() error = %v, want ErrMalformedPacket", err)
			}
			if pkt != nil {
				t.Errorf("Decode() = %#v, want nil (no partial parse)", pkt)
			}
		})
	}
}
