package rip

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rabidaudio/usbcdrip/audiocd"
	"github.com/rabidaudio/usbcdrip/wav"
	"github.com/sirupsen/logrus"
)

// ErrInsufficientSpace is returned before any track is read when the
// output directory cannot hold the selected tracks.
var ErrInsufficientSpace = errors.New("rip: not enough free space for the selected tracks")

// TrackSet selects tracks by number. A nil set selects every track.
type TrackSet map[uint8]bool

// Contains reports whether track num is selected.
func (t TrackSet) Contains(num uint8) bool {
	return t == nil || t[num]
}

// ParseTracks parses a list such as "1,3,5-7". The empty string selects
// every track.
func ParseTracks(s string) (TrackSet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	set := TrackSet{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := trackNumber(lo)
		if err != nil {
			return nil, err
		}
		last := first
		if isRange {
			if last, err = trackNumber(hi); err != nil {
				return nil, err
			}
		}
		if last < first {
			return nil, errors.Errorf("rip: bad track range %q", part)
		}
		for n := first; n <= last; n++ {
			set[n] = true
		}
	}
	return set, nil
}

func trackNumber(s string) (uint8, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > audiocd.MaxTracks {
		return 0, errors.Errorf("rip: bad track number %q", s)
	}
	return uint8(n), nil
}

// Report is the outcome of a whole-disc rip.
type Report struct {
	RunID   uuid.UUID
	Results []Result
	Failed  []uint8 // tracks that could not be written
}

// Paths lists the files written, in track order.
func (r *Report) Paths() []string {
	paths := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		paths = append(paths, res.Path)
	}
	return paths
}

// Select returns the audio tracks of toc chosen by include, in
// ascending order. Data tracks and the lead-out are never selected.
func Select(toc *audiocd.TOC, include TrackSet) []audiocd.TrackPosition {
	var tracks []audiocd.TrackPosition
	for _, track := range toc.Tracks {
		if track.TrackNum == audiocd.LeadOutTrack || !track.IsAudio() || !include.Contains(track.TrackNum) {
			continue
		}
		tracks = append(tracks, track)
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].StartSector < tracks[j].StartSector })
	return tracks
}

// SpaceNeeded is the size of the files a rip of tracks writes.
func SpaceNeeded(tracks []audiocd.TrackPosition) uint64 {
	var n uint64
	for _, t := range tracks {
		n += uint64(t.LengthSectors)*audiocd.BytesPerSector + wav.HeaderSize
	}
	return n
}

// RipDisc rips every selected audio track of toc in ascending order.
// Data tracks are never read, and a selection without audio tracks
// returns audiocd.ErrNoAudioTracks. A track that fails is logged and
// skipped; cancellation stops after the track in progress has been
// written and returns ctx.Err() with the report so far.
func (r *Ripper) RipDisc(ctx context.Context, toc *audiocd.TOC, include TrackSet) (*Report, error) {
	report := &Report{RunID: uuid.New()}
	log := r.logger().WithField("run", report.RunID.String())

	for _, track := range toc.Tracks {
		if track.TrackNum != audiocd.LeadOutTrack && !track.IsAudio() && include.Contains(track.TrackNum) {
			log.WithField("track", track.TrackNum).Info("skipping data track")
		}
	}
	tracks := Select(toc, include)
	if len(tracks) == 0 {
		return report, audiocd.ErrNoAudioTracks
	}

	dir := r.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return report, errors.Wrap(err, "rip: output directory")
	}
	free := r.FreeSpace
	if free == nil {
		free = diskFree
	}
	avail, err := free(dir)
	if err != nil {
		return report, err
	}
	if need := SpaceNeeded(tracks); avail < need {
		return report, errors.Wrapf(ErrInsufficientSpace, "%s: need %d bytes, have %d", dir, need, avail)
	}

	for _, track := range tracks {
		tlog := log.WithField("track", track.TrackNum)
		res, err := r.RipTrack(ctx, track)
		if ctxErr := ctx.Err(); ctxErr != nil {
			switch {
			case err == nil || errors.Is(err, ctxErr):
				report.Results = append(report.Results, res)
			default:
				tlog.WithError(err).Error("track failed")
				report.Failed = append(report.Failed, track.TrackNum)
			}
			tlog.Warn("rip cancelled")
			return report, ctxErr
		}
		if err != nil {
			tlog.WithError(err).Error("track failed")
			report.Failed = append(report.Failed, track.TrackNum)
			continue
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

// Manifest is the toc.json written next to the ripped tracks.
type Manifest struct {
	RunID   string       `json:"run_id"`
	DiscID  string       `json:"discid"`
	TOC     *audiocd.TOC `json:"toc"`
	Files   []string     `json:"files"`
	Partial []int        `json:"partial,omitempty"`
	Failed  []int        `json:"failed,omitempty"`
}

// NewManifest summarises a rip. File names are relative to the output
// directory.
func NewManifest(toc *audiocd.TOC, report *Report) Manifest {
	m := Manifest{
		RunID:  report.RunID.String(),
		DiscID: audiocd.DiscID(toc),
		TOC:    toc,
		Files:  []string{},
	}
	for _, n := range report.Failed {
		m.Failed = append(m.Failed, int(n))
	}
	for _, res := range report.Results {
		m.Files = append(m.Files, filepath.Base(res.Path))
		if res.Aborted {
			m.Partial = append(m.Partial, int(res.Track))
		}
	}
	return m
}

// WriteManifest writes toc.json and discid.txt into dir.
func WriteManifest(dir string, m Manifest, log logrus.FieldLogger) error {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "rip: encode manifest")
	}
	if err := os.WriteFile(filepath.Join(dir, "toc.json"), append(raw, '\n'), 0o644); err != nil {
		return errors.Wrap(err, "rip: write toc.json")
	}
	if err := os.WriteFile(filepath.Join(dir, "discid.txt"), []byte(m.DiscID+"\n"), 0o644); err != nil {
		return errors.Wrap(err, "rip: write discid.txt")
	}
	if log != nil {
		log.WithField("discid", m.DiscID).Info("manifest written")
	}
	return nil
}
