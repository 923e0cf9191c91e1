package bot

// Command Block Wrapper (CBW) constants.
const (
	CBWSignature = 0x43425355 // "USBC" little-endian
	CBWSize      = 31         // fixed CBW size in bytes
	MaxCDBLength = 16         // the command block field is always padded to this size
)

// Command Status Wrapper (CSW) constants.
const (
	CSWSignature = 0x53425355 // "USBS" little-endian
	CSWSize      = 13         // fixed CSW size in bytes
)

// Direction is the CBW data phase direction flag.
type Direction uint8

const (
	DirectionOut Direction = 0x00 // host to device
	DirectionIn  Direction = 0x80 // device to host
)

func (d Direction) String() string {
	if d == DirectionIn {
		return "in"
	}
	return "out"
}

// Status is the result of one BOT exchange. Values 0-2 are reported by
// the drive in the CSW; StatusTransportFailure means the exchange itself
// could not be trusted.
type Status int

const (
	StatusPassed           Status = 0x00 // command passed
	StatusFailed           Status = 0x01 // command failed
	StatusPhaseError       Status = 0x02 // phase error
	StatusTransportFailure Status = -1   // I/O failure, timeout or invalid CSW
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusPhaseError:
		return "phase error"
	case StatusTransportFailure:
		return "transport failure"
	default:
		return "unknown"
	}
}
