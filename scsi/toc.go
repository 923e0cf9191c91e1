package scsi

import (
	"encoding/binary"

	"github.com/rabidaudio/usbcdrip/audiocd"
)

// TOCResponse is the decoded READ TOC (format 0) response.
type TOCResponse struct {
	Length     uint16 // TOC data length, excluding the length field itself
	FirstTrack uint8
	LastTrack  uint8
	Entries    []audiocd.Entry
}

// DecodeTOC decodes a READ TOC response. It never fails: entries are read
// from offset 4 in 8-byte steps until either the declared length or the
// buffer runs out, so a truncated response yields a truncated list.
func DecodeTOC(raw []byte) TOCResponse {
	var r TOCResponse
	if len(raw) < TOCHeaderSize {
		return r
	}
	r.Length = binary.BigEndian.Uint16(raw[0:2])
	r.FirstTrack = raw[2]
	r.LastTrack = raw[3]

	end := int(r.Length) + 2
	if end > len(raw) {
		end = len(raw)
	}
	for off := TOCHeaderSize; off+TOCEntrySize <= end; off += TOCEntrySize {
		r.Entries = append(r.Entries, audiocd.Entry{
			Flags:       audiocd.Flag(raw[off+1]),
			TrackNum:    raw[off+2],
			StartSector: binary.BigEndian.Uint32(raw[off+4 : off+8]),
		})
	}
	return r
}

// TOC builds the table of contents model from the response.
func (r TOCResponse) TOC() (*audiocd.TOC, error) {
	return audiocd.NewTOC(r.FirstTrack, r.LastTrack, r.Entries)
}

// EncodeTOC produces a READ TOC response for the given entries. Drives
// produce these; it exists to fake one.
func EncodeTOC(first, last uint8, entries []audiocd.Entry) []byte {
	raw := make([]byte, TOCHeaderSize+TOCEntrySize*len(entries))
	binary.BigEndian.PutUint16(raw[0:2], uint16(len(raw)-2))
	raw[2] = first
	raw[3] = last
	for i, e := range entries {
		off := TOCHeaderSize + i*TOCEntrySize
		raw[off+1] = byte(e.Flags)
		raw[off+2] = e.TrackNum
		binary.BigEndian.PutUint32(raw[off+4:off+8], e.StartSector)
	}
	return raw
}
