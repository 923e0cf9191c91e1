package scsi

import (
	"strings"

	"github.com/elliotwutingfeng/asciiset"
)

// Peripheral device types of interest.
const (
	DeviceTypeDisk  = 0x00
	DeviceTypeCDROM = 0x05
)

// InquiryData is the decoded standard INQUIRY response.
type InquiryData struct {
	DeviceType byte   // peripheral device type, 5 for CD/DVD
	Vendor     string // T10 vendor identification, 8 chars
	Product    string // 16 chars
	Revision   string // 4 chars
}

// IsOptical reports whether the device claims to be a CD/DVD drive.
func (d InquiryData) IsOptical() bool {
	return d.DeviceType == DeviceTypeCDROM
}

func (d InquiryData) String() string {
	return strings.TrimSpace(d.Vendor + " " + d.Product + " " + d.Revision)
}

var printable asciiset.ASCIISet

func init() {
	var chars strings.Builder
	for c := byte(0x20); c < 0x7F; c++ {
		chars.WriteByte(c)
	}
	printable, _ = asciiset.MakeASCIISet(chars.String())
}

// DecodeInquiry decodes a standard INQUIRY response. Short responses
// decode to whatever fields are fully present.
func DecodeInquiry(data []byte) InquiryData {
	var d InquiryData
	if len(data) < 1 {
		return d
	}
	d.DeviceType = data[0] & 0x1F
	d.Vendor = field(data, 8, 16)
	d.Product = field(data, 16, 32)
	d.Revision = field(data, 32, 36)
	return d
}

// field extracts an ASCII string, dropping anything non-printable and
// trimming trailing spaces.
func field(data []byte, start, end int) string {
	if len(data) < end {
		return ""
	}
	b := make([]byte, 0, end-start)
	for _, c := range data[start:end] {
		if printable.Contains(c) {
			b = append(b, c)
		}
	}
	return strings.TrimRight(string(b), " ")
}
