// Package scsi builds the MMC command descriptor blocks needed to read an
// audio disc and decodes the drive's responses.
package scsi

import (
	"encoding/binary"

	"github.com/rabidaudio/usbcdrip/audiocd"
)

// SCSI operation codes.
const (
	OpTestUnitReady = 0x00
	OpInquiry       = 0x12
	OpReadTOC       = 0x43
	OpReadCD        = 0xBE
)

// Response sizes.
const (
	InquiryLength = 36   // standard INQUIRY data
	TOCAllocation = 1020 // header, 99 tracks and the lead-out, with room to spare
	TOCEntrySize  = 8
	TOCHeaderSize = 4
)

// MaxReadSectors is the most a single READ CD can ask for; the transfer
// length field is 24 bits wide.
const MaxReadSectors = 1<<24 - 1

// READ CD byte 1 and byte 9 values.
const (
	sectorTypeCDDA = 0x04 // expected sector type: CD-DA
	userDataOnly   = 0x10 // main channel user data only, 2352 bytes per sector
)

// TestUnitReady returns the 6-byte TEST UNIT READY CDB.
func TestUnitReady() []byte {
	return []byte{OpTestUnitReady, 0, 0, 0, 0, 0}
}

// Inquiry returns the 6-byte INQUIRY CDB requesting InquiryLength bytes.
func Inquiry() []byte {
	return []byte{OpInquiry, 0, 0, 0, InquiryLength, 0}
}

// ReadTOC returns the 10-byte READ TOC CDB for the standard TOC (format
// 0) of all tracks, with LBA addressing.
//
// Byte 1 carries the MSF bit; it is left clear because the response is
// decoded as 32-bit LBAs.
func ReadTOC() []byte {
	cdb := make([]byte, 10)
	cdb[0] = OpReadTOC
	binary.BigEndian.PutUint16(cdb[7:9], TOCAllocation)
	return cdb
}

// ReadCD returns the 12-byte READ CD CDB for count raw audio sectors
// starting at lba.
func ReadCD(lba uint32, count uint32) []byte {
	cdb := make([]byte, 12)
	cdb[0] = OpReadCD
	cdb[1] = sectorTypeCDDA
	binary.BigEndian.PutUint32(cdb[2:6], lba)
	cdb[6] = byte(count >> 16)
	cdb[7] = byte(count >> 8)
	cdb[8] = byte(count)
	cdb[9] = userDataOnly
	return cdb
}

// ReadCDLength is the data phase length for a READ CD of count sectors.
func ReadCDLength(count uint32) int {
	return int(count) * audiocd.BytesPerSector
}
