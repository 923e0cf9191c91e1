package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rabidaudio/usbcdrip/audiocd"
	"github.com/rabidaudio/usbcdrip/naming"
	"github.com/rabidaudio/usbcdrip/rip"
	"github.com/rabidaudio/usbcdrip/vfs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type ripFlags struct {
	output    string
	tracks    string
	chunkSize uint32
	image     string
	metadata  string
}

func newRipCommand(opts *options) *cobra.Command {
	var f ripFlags
	cmd := &cobra.Command{
		Use:   "rip",
		Short: "Rip the audio tracks of the loaded disc to WAVE files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("output") {
				opts.cfg.OutputDir = f.output
			}
			if cmd.Flags().Changed("chunk-size") {
				opts.cfg.ChunkSectors = f.chunkSize
			}
			include, err := rip.ParseTracks(f.tracks)
			if err != nil {
				return err
			}
			return runRip(cmd, opts, include, f)
		},
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output directory (default from config, /tmp/cd-rip)")
	cmd.Flags().StringVar(&f.tracks, "tracks", "", "tracks to rip, e.g. 1,3,5-7 (default all)")
	cmd.Flags().Uint32Var(&f.chunkSize, "chunk-size", 0, "sectors per READ CD (default from config, 75)")
	cmd.Flags().StringVar(&f.image, "image", "", "also pack the tracks into a FAT32 disk image at this path")
	cmd.Flags().StringVar(&f.metadata, "metadata", "", "album YAML or JSON file used to name the tracks")
	return cmd
}

func runRip(cmd *cobra.Command, opts *options, include rip.TrackSet, f ripFlags) error {
	ctx := cmd.Context()
	var album *naming.Album
	if f.metadata != "" {
		var err error
		if album, err = naming.LoadAlbum(f.metadata); err != nil {
			return err
		}
	}

	drive, dev, err := opts.openDrive()
	if err != nil {
		return err
	}
	defer dev.Close()

	info, err := drive.Inquiry(ctx)
	if err != nil {
		return err
	}
	opts.log.WithField("drive", info.String()).Info("drive identified")

	toc, err := readTOC(ctx, drive)
	if err != nil {
		return err
	}
	printTOC(cmd.OutOrStdout(), toc)

	r := &rip.Ripper{
		Drive:      drive,
		OutputDir:  opts.cfg.OutputDir,
		ChunkSize:  opts.cfg.ChunkSectors,
		MaxErrors:  opts.cfg.MaxErrors,
		RetryDelay: opts.cfg.RetryDelay,
		Progress:   progressPrinter(cmd.ErrOrStderr()),
		Logger:     opts.log,
	}
	if album != nil {
		r.Name = albumNames(album, len(rip.Select(toc, nil)), opts.log)
	}
	report, ripErr := r.RipDisc(ctx, toc, include)
	if ripErr != nil && len(report.Results) == 0 {
		return ripErr
	}

	m := rip.NewManifest(toc, report)
	if err := rip.WriteManifest(r.OutputDir, m, opts.log.WithField("run", m.RunID)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nDisc ID: %s\n", m.DiscID)
	fmt.Fprintf(cmd.OutOrStdout(), "Ripped %d tracks to %s\n", len(report.Results), r.OutputDir)

	if f.image != "" && ripErr == nil {
		if err := packImage(f.image, report, opts.log); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Image: %s\n", f.image)
	}
	return ripErr
}

// albumNames names tracks from album metadata. Problems with the
// metadata are logged; tracks it does not list keep the default name.
func albumNames(album *naming.Album, audioTracks int, log logrus.FieldLogger) func(uint8) string {
	for _, err := range album.Validate(audioTracks) {
		log.WithError(err).Warn("album metadata")
	}
	return func(num uint8) string {
		name, _ := album.FileName(int(num), ".wav")
		return name
	}
}

func packImage(path string, report *rip.Report, log logrus.FieldLogger) error {
	disc := vfs.Disc{}
	var payload int64
	for _, res := range report.Results {
		st, err := os.Stat(res.Path)
		if err != nil {
			return err
		}
		payload += st.Size()
		disc.Tracks = append(disc.Tracks, vfs.Track{Number: res.Track, Source: res.Path})
	}

	img, err := vfs.Create(path, vfs.ImageSize(payload), vfs.DefaultLabel)
	if err != nil {
		return err
	}
	defer img.Close()
	if err := img.AddDisc(disc); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"path": path, "tracks": len(disc.Tracks)}).Info("disk image written")
	return nil
}

// progressPrinter redraws a one-line progress meter per track and ends
// the line once the track is finished, complete or not.
func progressPrinter(w io.Writer) func(rip.Progress) {
	return func(p rip.Progress) {
		fmt.Fprintf(w, "\r  track %02d %3.0f%% | %d/%d sectors | %.0f sectors/s | ETA %s   ",
			p.Track, p.Percent, p.Read, p.Total, p.Rate, p.ETA.Round(time.Second))
		if p.Done {
			fmt.Fprintln(w)
		}
	}
}

func printTOC(w io.Writer, toc *audiocd.TOC) {
	fmt.Fprintf(w, "\nTable of Contents:\n")
	fmt.Fprintf(w, "%8s %6s %10s %10s %10s\n", "Track", "Type", "LBA", "Sectors", "Duration")
	for _, t := range toc.Tracks {
		typ := "audio"
		if !t.IsAudio() {
			typ = "data"
		}
		fmt.Fprintf(w, "%8d %6s %10d %10d %9.1fs\n",
			t.TrackNum, typ, t.StartSector, t.LengthSectors, t.Duration().Seconds())
	}
	fmt.Fprintf(w, "%8s %6s %10d\n", "Lead-out", "-", toc.LeadOut)
	fmt.Fprintf(w, "Disc ID: %s\n", audiocd.DiscID(toc))
}
