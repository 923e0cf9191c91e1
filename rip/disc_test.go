package rip_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rabidaudio/usbcdrip/audiocd"
	"github.com/rabidaudio/usbcdrip/mock"
	"github.com/rabidaudio/usbcdrip/rip"
	"github.com/rabidaudio/usbcdrip/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTracks(t *testing.T) {
	set, err := rip.ParseTracks("")
	require.NoError(t, err)
	assert.Nil(t, set)
	assert.True(t, set.Contains(7))

	set, err = rip.ParseTracks("1, 3,5-7")
	require.NoError(t, err)
	assert.Equal(t, rip.TrackSet{1: true, 3: true, 5: true, 6: true, 7: true}, set)
	assert.False(t, set.Contains(2))

	for _, bad := range []string{"0", "100", "a", "3-1", "1,,2", "-4"} {
		_, err := rip.ParseTracks(bad)
		assert.Error(t, err, bad)
	}
}

func TestRipDisc(t *testing.T) {
	disc, toc := smallDisc()
	h := newHarness(t, disc)

	report, err := h.ripper.RipDisc(context.Background(), toc, nil)
	require.NoError(t, err)
	assert.NotEqual(t, [16]byte{}, [16]byte(report.RunID))
	assert.Equal(t, []string{
		filepath.Join(h.ripper.OutputDir, "track01.wav"),
		filepath.Join(h.ripper.OutputDir, "track02.wav"),
	}, report.Paths())

	// the data track is never read
	for _, lba := range h.readLBAs() {
		assert.Less(t, lba, uint32(300))
	}
	assert.Equal(t, []uint32{0, 75, 150, 225}, h.readLBAs())
}

func TestRipDiscInclusion(t *testing.T) {
	disc, toc := smallDisc()
	h := newHarness(t, disc)

	report, err := h.ripper.RipDisc(context.Background(), toc, rip.TrackSet{2: true})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, uint8(2), report.Results[0].Track)
	assert.Equal(t, []uint32{150, 225}, h.readLBAs())

	// selecting only the data track rips nothing
	h = newHarness(t, disc)
	report, err = h.ripper.RipDisc(context.Background(), toc, rip.TrackSet{3: true})
	assert.ErrorIs(t, err, audiocd.ErrNoAudioTracks)
	assert.Empty(t, report.Results)
	assert.Empty(t, h.readLBAs())
}

func TestRipDiscDataOnly(t *testing.T) {
	entries := []audiocd.Entry{
		{Flags: 0x14, TrackNum: 1, StartSector: 0},
		{Flags: 0x14, TrackNum: audiocd.LeadOutTrack, StartSector: 150},
	}
	toc, err := audiocd.NewTOC(1, 1, entries)
	require.NoError(t, err)
	h := newHarness(t, &mock.Disc{First: 1, Last: 1, Entries: entries})

	_, err = h.ripper.RipDisc(context.Background(), toc, nil)
	assert.ErrorIs(t, err, audiocd.ErrNoAudioTracks)
	assert.Empty(t, h.readLBAs())
}

func TestRipDiscAbortedTrackContinues(t *testing.T) {
	disc, toc := smallDisc()
	disc.FailRead = failAt(75, -1)
	h := newHarness(t, disc)

	report, err := h.ripper.RipDisc(context.Background(), toc, nil)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.True(t, report.Results[0].Aborted)
	assert.Equal(t, uint32(75), report.Results[0].Sectors)
	assert.False(t, report.Results[1].Aborted)
	assert.Equal(t, mock.Sectors(150, 300), h.written[report.Results[1].Path])
	assert.Empty(t, report.Failed)
}

func TestRipDiscUnreadableTrackFails(t *testing.T) {
	disc, toc := smallDisc()
	disc.FailRead = failAt(0, -1)
	h := newHarness(t, disc)

	report, err := h.ripper.RipDisc(context.Background(), toc, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1}, report.Failed)
	require.Len(t, report.Results, 1)
	assert.Equal(t, uint8(2), report.Results[0].Track)
	assert.Len(t, h.written, 1)
}

func TestRipDiscCancelWithWriteFailure(t *testing.T) {
	disc, toc := smallDisc()
	h := newHarness(t, disc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.ripper.Write = func(string, []byte) error {
		cancel()
		return errors.New("no space left on device")
	}

	report, err := h.ripper.RipDisc(ctx, toc, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Results)
	assert.Equal(t, []uint8{1}, report.Failed)
}

func TestRipDiscInsufficientSpace(t *testing.T) {
	disc, toc := smallDisc()
	h := newHarness(t, disc)

	var asked string
	h.ripper.FreeSpace = func(dir string) (uint64, error) {
		asked = dir
		return rip.SpaceNeeded(rip.Select(toc, nil)) - 1, nil
	}
	_, err := h.ripper.RipDisc(context.Background(), toc, nil)
	assert.ErrorIs(t, err, rip.ErrInsufficientSpace)
	assert.Equal(t, h.ripper.OutputDir, asked)
	assert.Empty(t, h.readLBAs())

	h.ripper.FreeSpace = func(string) (uint64, error) { return rip.SpaceNeeded(rip.Select(toc, nil)), nil }
	_, err = h.ripper.RipDisc(context.Background(), toc, nil)
	assert.NoError(t, err)
}

func TestSelect(t *testing.T) {
	_, toc := smallDisc()
	var nums []uint8
	for _, tr := range rip.Select(toc, nil) {
		nums = append(nums, tr.TrackNum)
	}
	assert.Equal(t, []uint8{1, 2}, nums)
	assert.Empty(t, rip.Select(toc, rip.TrackSet{3: true}))

	// 150 sectors of audio plus a header per track
	assert.Equal(t, uint64(300*audiocd.BytesPerSector+2*wav.HeaderSize), rip.SpaceNeeded(rip.Select(toc, nil)))
}

func TestRipDiscWriteFailureSkipsTrack(t *testing.T) {
	disc, toc := smallDisc()
	h := newHarness(t, disc)
	h.ripper.Write = func(path string, pcm []byte) error {
		if strings.HasSuffix(path, "track01.wav") {
			return errors.New("no space left on device")
		}
		h.written[path] = pcm
		return nil
	}

	report, err := h.ripper.RipDisc(context.Background(), toc, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1}, report.Failed)
	require.Len(t, report.Results, 1)
	assert.Equal(t, uint8(2), report.Results[0].Track)
}

func TestRipDiscCancel(t *testing.T) {
	disc, toc := smallDisc()
	h := newHarness(t, disc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.ripper.Progress = func(p rip.Progress) {
		if p.Track == 1 && p.Read == 75 {
			cancel()
		}
	}

	report, err := h.ripper.RipDisc(ctx, toc, nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, report.Results, 1)
	assert.Equal(t, uint32(75), report.Results[0].Sectors)
	assert.Equal(t, []uint32{0}, h.readLBAs())
}

func TestRipDiscWithManifest(t *testing.T) {
	disc, toc := smallDisc()
	h := newHarness(t, disc)
	h.ripper.Write = nil
	h.ripper.OutputDir = filepath.Join(t.TempDir(), "rips")

	report, err := h.ripper.RipDisc(context.Background(), toc, nil)
	require.NoError(t, err)
	for _, p := range report.Paths() {
		assert.FileExists(t, p)
	}

	m := rip.NewManifest(toc, report)
	require.NoError(t, rip.WriteManifest(h.ripper.OutputDir, m, nil))

	id, err := os.ReadFile(filepath.Join(h.ripper.OutputDir, "discid.txt"))
	require.NoError(t, err)
	assert.Equal(t, audiocd.DiscID(toc)+"\n", string(id))

	raw, err := os.ReadFile(filepath.Join(h.ripper.OutputDir, "toc.json"))
	require.NoError(t, err)
	var decoded struct {
		RunID string   `json:"run_id"`
		Files []string `json:"files"`
		TOC   struct {
			LeadOut uint32 `json:"leadout_lba"`
		} `json:"toc"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, report.RunID.String(), decoded.RunID)
	assert.Equal(t, []string{"track01.wav", "track02.wav"}, decoded.Files)
	assert.Equal(t, uint32(450), decoded.TOC.LeadOut)
}
