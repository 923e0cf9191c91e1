package bot

import "encoding/binary"

// CommandBlockWrapper is the 31-byte frame that carries a SCSI command
// descriptor block to the drive.
type CommandBlockWrapper struct {
	Tag                uint32   // echoed back in the matching CSW
	DataTransferLength uint32   // bytes expected in the data phase
	Flags              Direction
	LUN                uint8    // always 0 for the drives we talk to
	CBLength           uint8    // 1-16
	CB                 [MaxCDBLength]byte
}

// NewCBW wraps cdb for the given tag, data length and direction.
func NewCBW(tag uint32, dataLen uint32, dir Direction, cdb []byte) (*CommandBlockWrapper, error) {
	if len(cdb) < 1 || len(cdb) > MaxCDBLength {
		return nil, ErrCDBLength
	}
	cbw := &CommandBlockWrapper{
		Tag:                tag,
		DataTransferLength: dataLen,
		Flags:              dir,
		CBLength:           uint8(len(cdb)),
	}
	copy(cbw.CB[:], cdb)
	return cbw, nil
}

// MarshalBinary encodes the wrapper in its little-endian wire layout.
func (cbw *CommandBlockWrapper) MarshalBinary() ([]byte, error) {
	buf := make([]byte, CBWSize)
	binary.LittleEndian.PutUint32(buf[0:4], CBWSignature)
	binary.LittleEndian.PutUint32(buf[4:8], cbw.Tag)
	binary.LittleEndian.PutUint32(buf[8:12], cbw.DataTransferLength)
	buf[12] = byte(cbw.Flags)
	buf[13] = cbw.LUN
	buf[14] = cbw.CBLength
	copy(buf[15:31], cbw.CB[:])
	return buf, nil
}

// UnmarshalBinary decodes a CBW the way a device would.
func (cbw *CommandBlockWrapper) UnmarshalBinary(data []byte) error {
	if len(data) < CBWSize {
		return ErrShortCBW
	}
	if binary.LittleEndian.Uint32(data[0:4]) != CBWSignature {
		return ErrBadSignature
	}
	cbw.Tag = binary.LittleEndian.Uint32(data[4:8])
	cbw.DataTransferLength = binary.LittleEndian.Uint32(data[8:12])
	cbw.Flags = Direction(data[12] & 0x80)
	cbw.LUN = data[13] & 0x0F
	cbw.CBLength = data[14] & 0x1F
	copy(cbw.CB[:], data[15:31])
	return nil
}

// CDB returns the meaningful part of the command block.
func (cbw *CommandBlockWrapper) CDB() []byte {
	n := int(cbw.CBLength)
	if n > MaxCDBLength {
		n = MaxCDBLength
	}
	return cbw.CB[:n]
}

// EncodeCBW is a shorthand for NewCBW followed by MarshalBinary.
func EncodeCBW(tag uint32, dataLen uint32, dir Direction, cdb []byte) ([]byte, error) {
	cbw, err := NewCBW(tag, dataLen, dir, cdb)
	if err != nil {
		return nil, err
	}
	return cbw.MarshalBinary()
}

// CommandStatusWrapper is the 13-byte frame the drive returns after
// every command.
type CommandStatusWrapper struct {
	Signature   uint32
	Tag         uint32
	DataResidue uint32 // bytes expected but not transferred
	Status      uint8
}

// DecodeCSW reads the wire layout without validating it. See Validate.
func DecodeCSW(data []byte) (CommandStatusWrapper, error) {
	if len(data) < CSWSize {
		return CommandStatusWrapper{}, ErrShortCSW
	}
	return CommandStatusWrapper{
		Signature:   binary.LittleEndian.Uint32(data[0:4]),
		Tag:         binary.LittleEndian.Uint32(data[4:8]),
		DataResidue: binary.LittleEndian.Uint32(data[8:12]),
		Status:      data[12],
	}, nil
}

// MarshalBinary encodes the wrapper. Drives produce these; we only do it
// to fake one.
func (csw CommandStatusWrapper) MarshalBinary() ([]byte, error) {
	buf := make([]byte, CSWSize)
	binary.LittleEndian.PutUint32(buf[0:4], csw.Signature)
	binary.LittleEndian.PutUint32(buf[4:8], csw.Tag)
	binary.LittleEndian.PutUint32(buf[8:12], csw.DataResidue)
	buf[12] = csw.Status
	return buf, nil
}

// Validate reports whether the CSW may be trusted as the answer to the
// CBW sent with tag. The status byte is irrelevant here.
func (csw CommandStatusWrapper) Validate(tag uint32) error {
	if csw.Signature != CSWSignature {
		return ErrBadSignature
	}
	if csw.Tag != tag {
		return ErrTagMismatch
	}
	return nil
}
