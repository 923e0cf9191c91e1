package audiocd

import (
	"encoding/json"
	"time"
)

// Flag is the control/ADR byte attached to a track in the CD's table of
// contents. The low nibble is the control field, the high nibble the ADR.
type Flag uint8

const (
	FlagPreEmphasis Flag = 0x01 // audio recorded with pre-emphasis
	FlagCopyAllowed Flag = 0x02 // digital copy permitted
	FlagData        Flag = 0x04 // data track rather than audio
	FlagFourChannel Flag = 0x08 // four channel audio, never seen in practice
)

// IsAudio reports whether the flags describe an audio track.
func (f Flag) IsAudio() bool {
	return f&FlagData == 0
}

// Entry is one track descriptor as reported by READ TOC.
type Entry struct {
	Flags       Flag
	TrackNum    uint8  // 1-99, or LeadOutTrack
	StartSector uint32 // LBA of the first sector
}

// TrackPosition reports the offset information for a track from the
// table of contents.
type TrackPosition struct {
	Flags         Flag
	TrackNum      uint8  // index of the track, starting at 1
	StartSector   uint32 // address of the sector where the data starts
	LengthSectors uint32 // total number of sectors the track covers
}

// IsAudio reports whether the track is an audio track.
// Mixed-mode disks can have data tracks in addition to audio tracks.
func (t TrackPosition) IsAudio() bool {
	return t.Flags.IsAudio()
}

// EndSector is the first sector after the track.
func (t TrackPosition) EndSector() uint32 {
	return t.StartSector + t.LengthSectors
}

// Duration is the playing time of the track.
func (t TrackPosition) Duration() time.Duration {
	return SectorsDuration(t.LengthSectors)
}

// SectorsDuration converts a sector count to playing time.
func SectorsDuration(sectors uint32) time.Duration {
	return time.Duration(sectors) * time.Second / FramesPerSecond
}

// TOC is the table of contents of an audio disc. Tracks are in ascending
// sector order and each one ends where the next begins; the last one
// ends at the lead-out.
type TOC struct {
	FirstTrack uint8
	LastTrack  uint8
	Tracks     []TrackPosition
	LeadOut    uint32 // first sector after the last track
}

// NewTOC builds the table of contents from the entries the drive
// returned. Entries with track numbers outside first..last are ignored,
// and anything after the lead-out entry is dropped.
//
// A table with no lead-out, no tracks or with start sectors out of order
// cannot be used to rip anything and is reported as an AudioCDError.
func NewTOC(first, last uint8, entries []Entry) (*TOC, error) {
	toc := &TOC{FirstTrack: first, LastTrack: last}

	leadOut := false
	for _, e := range entries {
		if e.TrackNum == LeadOutTrack {
			toc.LeadOut = e.StartSector
			leadOut = true
			break
		}
		if e.TrackNum < 1 || e.TrackNum > MaxTracks || e.TrackNum < first || e.TrackNum > last {
			continue
		}
		toc.Tracks = append(toc.Tracks, TrackPosition{
			Flags:       e.Flags,
			TrackNum:    e.TrackNum,
			StartSector: e.StartSector,
		})
	}

	if !leadOut {
		return nil, ErrReadTOCLeadOut
	}
	if len(toc.Tracks) == 0 {
		return nil, ErrIllegalNumberOfTracks
	}

	// NOTE: the end of the last track is the first sector
	// of the imaginary track after
	for i := range toc.Tracks {
		end := toc.LeadOut
		if i+1 < len(toc.Tracks) {
			end = toc.Tracks[i+1].StartSector
		}
		if end <= toc.Tracks[i].StartSector {
			return nil, ErrIllegalTOC
		}
		toc.Tracks[i].LengthSectors = end - toc.Tracks[i].StartSector
	}
	return toc, nil
}

// TrackCount returns number of tracks on the disc, including data
// tracks.
func (toc *TOC) TrackCount() int {
	return len(toc.Tracks)
}

// LengthSectors returns the total number of addressable sectors, which
// is the sector of the lead-out.
func (toc *TOC) LengthSectors() uint32 {
	return toc.LeadOut
}

// Track looks up a track by its number.
func (toc *TOC) Track(num uint8) (TrackPosition, error) {
	for _, t := range toc.Tracks {
		if t.TrackNum == num {
			return t, nil
		}
	}
	return TrackPosition{}, ErrInvalidTrackNumber
}

// TrackAtSector returns the number of the track containing sector, or 0
// if the sector is before the first track or past the lead-out.
func (toc *TOC) TrackAtSector(sector uint32) uint8 {
	for _, t := range toc.Tracks {
		if sector >= t.StartSector && sector < t.EndSector() {
			return t.TrackNum
		}
	}
	return 0
}

// AudioTracks returns only the audio tracks, in order.
func (toc *TOC) AudioTracks() []TrackPosition {
	var tracks []TrackPosition
	for _, t := range toc.Tracks {
		if t.IsAudio() {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

type jsonTrack struct {
	Num     int    `json:"num"`
	LBA     uint32 `json:"lba"`
	Sectors uint32 `json:"sectors"`
	Type    string `json:"type"`
}

type jsonTOC struct {
	FirstTrack int         `json:"first_track"`
	LastTrack  int         `json:"last_track"`
	Tracks     []jsonTrack `json:"tracks"`
	LeadOutLBA uint32      `json:"leadout_lba"`
	DiscID     string      `json:"discid"`
}

// MarshalJSON writes the table in the layout of toc.json.
func (toc *TOC) MarshalJSON() ([]byte, error) {
	j := jsonTOC{
		FirstTrack: int(toc.FirstTrack),
		LastTrack:  int(toc.LastTrack),
		Tracks:     make([]jsonTrack, len(toc.Tracks)),
		LeadOutLBA: toc.LeadOut,
		DiscID:     DiscID(toc),
	}
	for i, t := range toc.Tracks {
		typ := "audio"
		if !t.IsAudio() {
			typ = "data"
		}
		j.Tracks[i] = jsonTrack{Num: int(t.TrackNum), LBA: t.StartSector, Sectors: t.LengthSectors, Type: typ}
	}
	return json.Marshal(j)
}
