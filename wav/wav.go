// Package wav writes ripped CD audio to RIFF/WAVE files.
package wav

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/pkg/errors"
	"github.com/rabidaudio/usbcdrip/audiocd"
)

const HeaderSize = 44

// ErrMismatch is returned by Verify when a file does not decode to the
// audio that was written.
var ErrMismatch = errors.New("wav: file does not match the audio written")

// CD is the format of Red Book audio: 16-bit little-endian stereo at
// 44.1 kHz.
var CD = beep.Format{
	SampleRate:  audiocd.SampleRate,
	NumChannels: audiocd.Channels,
	Precision:   audiocd.BytesPerSample,
}

// Header returns the canonical 44-byte PCM header for dataLen bytes of
// audio in format f.
func Header(dataLen uint32, f beep.Format) []byte {
	h := make([]byte, HeaderSize)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], 36+dataLen)
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], uint16(f.NumChannels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(int(f.SampleRate)*f.Width()))
	binary.LittleEndian.PutUint16(h[32:34], uint16(f.Width()))
	binary.LittleEndian.PutUint16(h[34:36], uint16(8*f.Precision))
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], dataLen)
	return h
}

// WriteFile writes pcm to path as a WAVE file. A trailing partial frame
// is dropped. The file is written under a temporary name in the same
// directory and renamed into place, so path never holds a partial file.
func WriteFile(path string, pcm []byte, f beep.Format) (err error) {
	pcm = pcm[:len(pcm)-len(pcm)%f.Width()]

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "wav: create")
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(Header(uint32(len(pcm)), f)); err != nil {
		return errors.Wrap(err, "wav: write header")
	}
	if _, err = tmp.Write(pcm); err != nil {
		return errors.Wrap(err, "wav: write data")
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "wav: sync")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "wav: close")
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrap(err, "wav: chmod")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "wav: rename")
	}
	return nil
}

// Info describes a decoded WAVE file.
type Info struct {
	Format   beep.Format
	Samples  int // per channel
	Duration time.Duration
}

// Inspect decodes the header of the file at path.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	s, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return Info{}, errors.Wrapf(err, "wav: decode %s", path)
	}
	defer s.Close()

	return Info{
		Format:   format,
		Samples:  s.Len(),
		Duration: format.SampleRate.D(s.Len()),
	}, nil
}

// Verify decodes the file at path and checks it holds pcm in format f.
// A trailing partial frame of pcm is ignored, as WriteFile drops it.
func Verify(path string, pcm []byte, f beep.Format) error {
	info, err := Inspect(path)
	if err != nil {
		return err
	}
	if info.Format != f {
		return errors.Wrapf(ErrMismatch, "%s: format %+v", path, info.Format)
	}
	if want := len(pcm) / f.Width(); info.Samples != want {
		return errors.Wrapf(ErrMismatch, "%s: %d samples, want %d", path, info.Samples, want)
	}
	return nil
}
