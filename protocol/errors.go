package protocol

import "errors"

var (
	ErrMalformedPacket  = errors.New("malformed packet")
	ErrInvalidDirective = errors.New("invalid directive")
	ErrDeliveryFailed   = errors.New("delivery not acknowledged")
	ErrTimeout          = errors.New("operation timed out")
	ErrInvalidChannel   = errors.New("invalid channel (valid range: 0-125)")
	ErrNotTransmitting  = errors.New("radio not in transmit mode")
)
