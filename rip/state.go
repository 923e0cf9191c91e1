package rip

import (
	"time"

	"github.com/rabidaudio/usbcdrip/audiocd"
)

// State is the position of a track rip in its state machine:
//
//	Reading -> (Retrying <-> Reading) -> Done
//	Reading -> Retrying -> Aborted -> Done
type State int

const (
	Reading State = iota
	Retrying
	Aborted
	Done
)

func (s State) String() string {
	switch s {
	case Reading:
		return "reading"
	case Retrying:
		return "retrying"
	case Aborted:
		return "aborted"
	case Done:
		return "done"
	}
	return "unknown"
}

// Session is the state of one track rip. It is created per track and
// only the Ripper mutates it.
type Session struct {
	Track    audiocd.TrackPosition
	State    State
	Position uint32 // next sector to read
	Errors   int    // consecutive failed reads
	Retries  int    // failed reads over the whole track
	PCM      []byte
	Started  time.Time
}

func newSession(track audiocd.TrackPosition, now time.Time) *Session {
	return &Session{
		Track:    track,
		State:    Reading,
		Position: track.StartSector,
		PCM:      make([]byte, 0, int(track.LengthSectors)*audiocd.BytesPerSector),
		Started:  now,
	}
}

// Remaining is the number of sectors left to read.
func (s *Session) Remaining() uint32 {
	if s.Position >= s.Track.EndSector() {
		return 0
	}
	return s.Track.EndSector() - s.Position
}

// Read is the number of sectors read so far.
func (s *Session) Read() uint32 {
	return s.Position - s.Track.StartSector
}

// Progress is reported after every chunk read successfully.
type Progress struct {
	Track   uint8
	Read    uint32 // sectors read
	Total   uint32 // sectors in the track
	Percent float64
	Elapsed time.Duration
	Rate    float64 // sectors per second since the track started
	ETA     time.Duration
	Done    bool // last report for the track, whether or not it completed
}

func (s *Session) progress(now time.Time) Progress {
	p := Progress{
		Track:   s.Track.TrackNum,
		Read:    s.Read(),
		Total:   s.Track.LengthSectors,
		Elapsed: now.Sub(s.Started),
	}
	if p.Total > 0 {
		p.Percent = 100 * float64(p.Read) / float64(p.Total)
	}
	if secs := p.Elapsed.Seconds(); secs > 0 {
		p.Rate = float64(p.Read) / secs
	}
	if p.Rate > 0 {
		p.ETA = time.Duration(float64(s.Remaining()) / p.Rate * float64(time.Second))
	}
	return p
}
