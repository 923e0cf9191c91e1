package wav

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rabidaudio/usbcdrip/audiocd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader(t *testing.T) {
	h := Header(2352, CD)
	require.Len(t, h, HeaderSize)
	assert.Equal(t, "RIFF", string(h[0:4]))
	assert.Equal(t, uint32(36+2352), binary.LittleEndian.Uint32(h[4:8]))
	assert.Equal(t, "WAVEfmt ", string(h[8:16]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(h[20:22]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(h[22:24]))
	assert.Equal(t, uint32(44100), binary.LittleEndian.Uint32(h[24:28]))
	assert.Equal(t, uint32(176400), binary.LittleEndian.Uint32(h[28:32]))
	assert.Equal(t, uint16(4), binary.LittleEndian.Uint16(h[32:34]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(h[34:36]))
	assert.Equal(t, "data", string(h[36:40]))
	assert.Equal(t, uint32(2352), binary.LittleEndian.Uint32(h[40:44]))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track01.wav")

	pcm := make([]byte, 75*audiocd.BytesPerSector)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	require.NoError(t, WriteFile(path, pcm, CD))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, raw, HeaderSize+len(pcm))
	assert.Equal(t, pcm, raw[HeaderSize:])

	info, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, CD, info.Format)
	assert.Equal(t, 75*audiocd.SamplesPerFrame, info.Samples)
	assert.Equal(t, time.Second, info.Duration)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestWriteFileDropsPartialFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.wav")
	require.NoError(t, WriteFile(path, make([]byte, 10), CD))

	info, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Samples)
}

func TestWriteFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	require.NoError(t, WriteFile(path, nil, CD))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, raw, HeaderSize)
}

func TestWriteFileMissingDir(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "nope", "x.wav"), nil, CD)
	assert.Error(t, err)
}

func TestInspectNotWave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a riff file, just text padding"), 0o644))
	_, err := Inspect(path)
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track01.wav")
	pcm := make([]byte, 10*audiocd.BytesPerSector+3)
	require.NoError(t, WriteFile(path, pcm, CD))

	assert.NoError(t, Verify(path, pcm, CD))
	assert.ErrorIs(t, Verify(path, pcm[:audiocd.BytesPerSector], CD), ErrMismatch)

	mono := CD
	mono.NumChannels = 1
	assert.ErrorIs(t, Verify(path, pcm, mono), ErrMismatch)
}

func TestVerifyRejectsCorruptHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track01.wav")
	pcm := make([]byte, 10*audiocd.BytesPerSector)
	require.NoError(t, WriteFile(path, pcm, CD))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(raw[40:44], audiocd.BytesPerSector)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	assert.ErrorIs(t, Verify(path, pcm, CD), ErrMismatch)

	copy(raw[0:4], "JUNK")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	assert.Error(t, Verify(path, pcm, CD))
}
