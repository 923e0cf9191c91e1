package bot

import "errors"

// Transport errors. Any of these leaves the exchange with
// StatusTransportFailure.
var (
	// ErrCDBLength indicates a command block outside 1-16 bytes.
	ErrCDBLength = errors.New("bot: command block must be 1-16 bytes")

	// ErrDataLength indicates a negative data transfer length.
	ErrDataLength = errors.New("bot: data length must not be negative")

	// ErrShortCBW indicates fewer than 31 command bytes were received.
	ErrShortCBW = errors.New("bot: CBW too short")

	// ErrShortCSW indicates fewer than 13 status bytes were received.
	ErrShortCSW = errors.New("bot: CSW too short")

	// ErrBadSignature indicates a wrapper with the wrong signature.
	ErrBadSignature = errors.New("bot: invalid wrapper signature")

	// ErrTagMismatch indicates the CSW answers a different CBW.
	ErrTagMismatch = errors.New("bot: CSW tag does not match CBW")

	// ErrShortWrite indicates the CBW was not fully written.
	ErrShortWrite = errors.New("bot: short CBW write")
)
