package protocol

// Generic wire & protocol constants (platform independent). All higher
// layers should depend on this file.
const (
	// Packet type tags (first byte of every packet)
	TagStart     Tag = 0xA1 // controller → device, synchronisation directive
	TagDiscover  Tag = 0xA2 // controller → device probe; echoed back as an announce
	TagBroadcast Tag = 0xA3 // controller → all, numeric command
	TagReadyAck  Tag = 0xB1 // device → controller, echoes seq

	// Exact on-air sizes per tag. A buffer whose length does not match
	// the size for its tag is rejected outright, never partially read.
	StartPacketSize     = 22 // tag(1) seq(2) target(1) clock(4) master(4) vol(1) steps(1) t_ds(8)
	DiscoverPacketSize  = 4  // tag(1) seq(2) target(1)
	BroadcastPacketSize = 4  // tag(1) seq(2) command(1)
	ReadyAckSize        = 3  // tag(1) seq(2)

	// BroadcastTarget in a DISCOVER addresses every device at once.
	BroadcastTarget uint8 = 0xFF

	// Broadcast command codes
	CmdFlash  uint8 = 1
	CmdReset  uint8 = 2
	CmdAllOff uint8 = 3

	// Step counts carried by a START
	MinSteps = 3
	MaxSteps = 4

	// Audio playback volume range (DFPlayer-style 0..30)
	MaxVolume uint8 = 30

	// Logical channels: unregistered devices listen on the discovery
	// channel, registered devices on the command channel.
	DiscoveryChannel uint8 = 7
	CommandChannel   uint8 = 80

	// Audio track numbers paired with the first three steps
	TrackMarks uint8 = 1
	TrackSet   uint8 = 2
	TrackGo    uint8 = 3
)
