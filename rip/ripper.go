// Package rip reads audio tracks off a disc chunk by chunk, retrying
// failed reads a bounded number of times, and writes each track out as
// a WAVE file.
package rip

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rabidaudio/usbcdrip/audiocd"
	"github.com/rabidaudio/usbcdrip/scsi"
	"github.com/rabidaudio/usbcdrip/wav"
	"github.com/sirupsen/logrus"
)

// SectorReader reads raw audio sectors. *scsi.Drive implements it.
type SectorReader interface {
	ReadCD(ctx context.Context, lba, count uint32) ([]byte, error)
}

var _ SectorReader = (*scsi.Drive)(nil)

// WriteFunc stores the audio of one track.
type WriteFunc func(path string, pcm []byte) error

const (
	DefaultChunkSize  = audiocd.FramesPerSecond
	DefaultMaxErrors  = 10
	DefaultRetryDelay = 100 * time.Millisecond
)

// Ripper rips tracks one at a time. Zero fields take their defaults; a
// Ripper must not be used from more than one goroutine.
type Ripper struct {
	Drive     SectorReader
	OutputDir string

	ChunkSize  uint32        // sectors per READ CD
	MaxErrors  int           // consecutive failures tolerated before aborting a track
	RetryDelay time.Duration // pause before re-reading a failed chunk

	// Write defaults to wav.WriteFile in CD format, Sleep to a timer
	// that returns early when ctx is done. Verify checks the file after
	// Write; it defaults to VerifyWAV when Write is also unset. Name
	// defaults to TrackFileName and FreeSpace to the filesystem's count
	// of available bytes.
	Write     WriteFunc
	Verify    WriteFunc
	Sleep     func(ctx context.Context, d time.Duration) error
	Now       func() time.Time
	Progress  func(Progress)
	Name      func(num uint8) string
	FreeSpace func(dir string) (uint64, error)
	Logger    logrus.FieldLogger
}

// Result describes one ripped track.
type Result struct {
	Track   uint8
	Path    string
	Sectors uint32 // sectors written, less than the track length if aborted
	Aborted bool
	Retries int
	Elapsed time.Duration
}

// TrackFileName is the name a track is written under.
func TrackFileName(num uint8) string {
	return fmt.Sprintf("track%02d.wav", num)
}

// VerifyWAV decodes a written track and checks it holds pcm.
func VerifyWAV(path string, pcm []byte) error {
	return wav.Verify(path, pcm, wav.CD)
}

// RipTrack reads a whole track and writes it out. When the error budget
// runs out the track is aborted and whatever was read is still written;
// that is not an error unless nothing was read at all, which returns
// audiocd.ErrNoData and writes no file. When ctx is cancelled between
// chunks the partial track is written and ctx.Err() is returned.
func (r *Ripper) RipTrack(ctx context.Context, track audiocd.TrackPosition) (Result, error) {
	now := r.now()
	s := newSession(track, now())
	log := r.logger().WithField("track", track.TrackNum)
	log.WithFields(logrus.Fields{
		"lba":      track.StartSector,
		"sectors":  track.LengthSectors,
		"duration": track.Duration().Round(100 * time.Millisecond).String(),
	}).Info("ripping track")

	cause := r.read(ctx, s, log)
	defer r.report(s, now)
	if s.State == Aborted {
		log.WithFields(logrus.Fields{
			"lba":    s.Position,
			"errors": s.Errors,
		}).Error("too many errors, aborting track")
	}

	res := Result{
		Track:   track.TrackNum,
		Path:    filepath.Join(r.OutputDir, r.fileName(track.TrackNum)),
		Sectors: s.Read(),
		Aborted: s.State == Aborted,
		Retries: s.Retries,
	}
	if res.Aborted && res.Sectors == 0 {
		return res, errors.Wrapf(audiocd.ErrNoData, "rip: track %d", track.TrackNum)
	}
	if err := r.write()(res.Path, s.PCM); err != nil {
		return res, errors.Wrapf(err, "rip: track %d", track.TrackNum)
	}
	if verify := r.verify(); verify != nil {
		if err := verify(res.Path, s.PCM); err != nil {
			return res, errors.Wrapf(err, "rip: track %d", track.TrackNum)
		}
	}
	s.State = Done
	res.Elapsed = now().Sub(s.Started)
	log.WithFields(logrus.Fields{
		"path":    res.Path,
		"bytes":   len(s.PCM),
		"elapsed": res.Elapsed.Round(time.Millisecond).String(),
	}).Info("track saved")
	return res, cause
}

// read runs the transfer loop until the track is complete, aborted or
// cancelled. It returns the context error on cancellation.
func (r *Ripper) read(ctx context.Context, s *Session, log logrus.FieldLogger) error {
	chunk := r.ChunkSize
	if chunk == 0 {
		chunk = DefaultChunkSize
	}
	maxErrors := r.MaxErrors
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	delay := r.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = wait
	}
	now := r.now()

	for s.Remaining() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		count := min(chunk, s.Remaining())
		data, err := r.Drive.ReadCD(ctx, s.Position, count)
		if err == nil && len(data) != int(count)*audiocd.BytesPerSector {
			err = errors.Errorf("short read: got %d of %d bytes", len(data), int(count)*audiocd.BytesPerSector)
		}
		if err == nil {
			s.PCM = append(s.PCM, data...)
			s.Position += count
			s.Errors = 0
			s.State = Reading
			if r.Progress != nil {
				r.Progress(s.progress(now()))
			}
			continue
		}

		s.Errors++
		s.Retries++
		if s.Errors > maxErrors {
			s.State = Aborted
			return nil
		}
		s.State = Retrying
		log.WithError(err).WithFields(logrus.Fields{
			"lba":     s.Position,
			"attempt": s.Errors,
		}).Warn("read failed, retrying")
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

func (r *Ripper) now() func() time.Time {
	if r.Now != nil {
		return r.Now
	}
	return time.Now
}

func (r *Ripper) write() WriteFunc {
	if r.Write != nil {
		return r.Write
	}
	return func(path string, pcm []byte) error {
		return wav.WriteFile(path, pcm, wav.CD)
	}
}

func (r *Ripper) verify() WriteFunc {
	if r.Verify != nil {
		return r.Verify
	}
	if r.Write == nil {
		return VerifyWAV
	}
	return nil
}

func (r *Ripper) fileName(num uint8) string {
	if r.Name != nil {
		if name := r.Name(num); name != "" {
			return name
		}
	}
	return TrackFileName(num)
}

// report sends the final progress of a track.
func (r *Ripper) report(s *Session, now func() time.Time) {
	if r.Progress == nil {
		return
	}
	p := s.progress(now())
	p.Done = true
	r.Progress(p)
}

func (r *Ripper) logger() logrus.FieldLogger {
	if r.Logger != nil {
		return r.Logger.WithField("component", "rip")
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
