package mock

import (
	"encoding/binary"

	"github.com/rabidaudio/usbcdrip/audiocd"
	"github.com/rabidaudio/usbcdrip/bot"
	"github.com/rabidaudio/usbcdrip/scsi"
)

// Disc answers SCSI commands the way an optical drive with an audio disc
// loaded would. Use its Handle method as an Endpoints handler.
type Disc struct {
	Vendor, Product, Revision string

	NotReady bool // TEST UNIT READY reports check condition

	First, Last uint8
	Entries     []audiocd.Entry // READ TOC entries, including the lead-out

	// FailRead, when set, is consulted for every READ CD. Returning a
	// non-zero reply replaces the normal answer.
	FailRead func(lba, count uint32) (Reply, bool)

	Reads int // READ CD commands seen
}

// SectorPattern is the audio a Disc returns for the sector at lba.
func SectorPattern(lba uint32) []byte {
	p := make([]byte, audiocd.BytesPerSector)
	for i := range p {
		p[i] = byte(lba + uint32(i))
	}
	return p
}

// Sectors concatenates SectorPattern for [start, end).
func Sectors(start, end uint32) []byte {
	var out []byte
	for lba := start; lba < end; lba++ {
		out = append(out, SectorPattern(lba)...)
	}
	return out
}

// Handle implements Handler.
func (d *Disc) Handle(cbw bot.CommandBlockWrapper) Reply {
	cdb := cbw.CDB()
	switch cdb[0] {
	case scsi.OpTestUnitReady:
		if d.NotReady {
			return Reply{Status: 1}
		}
		return Reply{}
	case scsi.OpInquiry:
		data := make([]byte, scsi.InquiryLength)
		data[0] = scsi.DeviceTypeCDROM
		copy(data[8:16], pad(d.Vendor, 8))
		copy(data[16:32], pad(d.Product, 16))
		copy(data[32:36], pad(d.Revision, 4))
		return Reply{Data: data}
	case scsi.OpReadTOC:
		return Reply{Data: scsi.EncodeTOC(d.First, d.Last, d.Entries)}
	case scsi.OpReadCD:
		d.Reads++
		lba := binary.BigEndian.Uint32(cdb[2:6])
		count := uint32(cdb[6])<<16 | uint32(cdb[7])<<8 | uint32(cdb[8])
		if d.FailRead != nil {
			if r, ok := d.FailRead(lba, count); ok {
				return r
			}
		}
		return Reply{Data: Sectors(lba, lba+count)}
	default:
		return Reply{Status: 1}
	}
}

func pad(s string, n int) []byte {
	b := []byte(s)
	for len(b) < n {
		b = append(b, ' ')
	}
	return b[:n]
}
