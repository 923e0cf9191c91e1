package vfs

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
	"github.com/diskfs/go-diskfs/filesystem/fat32"
	"github.com/diskfs/go-diskfs/partition/mbr"
	"github.com/pkg/errors"
)

const (
	SectorSize     = 512
	PartitionStart = 2048 // sectors, 1MB aligned
	MinImageSize   = 64 * fat32.MB
	DefaultLabel   = "AUDIOCD"
)

// Track is a ripped file on the host to be copied into the image.
type Track struct {
	Number uint8
	Source string
}

// Disc is a set of tracks placed in one directory of the image. An
// empty name puts them in the root.
type Disc struct {
	Name   string
	Tracks []Track
}

// Image is a disk image file holding an MBR and one FAT32 partition,
// ready to be written to a USB stick.
type Image struct {
	filesystem.FileSystem
	Path string
}

// sanitizeName takes a file name and converts it to DOS format
// by uppercasing, limiting to ASCII letters, and triming to 8 chars
func sanitizeName(name string) string {
	// https://en.wikipedia.org/wiki/8.3_filename
	newName := make([]rune, 0, 8)
	for _, r := range strings.ToUpper(name) {
		if len(newName) == 8 {
			break
		}
		if r >= 'A' && r <= 'Z' {
			newName = append(newName, r)
		}
	}
	return string(newName)
}

// ImageSize returns a size large enough to hold payload bytes of files,
// rounded up to whole megabytes.
func ImageSize(payload int64) int64 {
	size := payload + payload/16 + PartitionStart*SectorSize + 8*fat32.MB
	size = (size + fat32.MB - 1) / fat32.MB * fat32.MB
	return max(size, MinImageSize)
}

// Create makes a new image of size bytes at path. The file must not
// already exist.
func Create(path string, size int64, label string) (*Image, error) {
	if size < MinImageSize {
		size = MinImageSize
	}
	if label == "" {
		label = DefaultLabel
	}
	if _, err := os.Stat(path); err == nil {
		return nil, errors.Errorf("vfs: %s already exists", path)
	}

	dsk, err := diskfs.Create(path, size, diskfs.Raw, diskfs.SectorSizeDefault)
	if err != nil {
		return nil, errors.Wrap(err, "vfs: create image")
	}

	// create an MBR with one partition
	table := &mbr.Table{
		LogicalSectorSize:  SectorSize,
		PhysicalSectorSize: SectorSize,
		Partitions: []*mbr.Partition{
			{
				Bootable: false,
				Type:     mbr.Fat32LBA,
				Start:    PartitionStart,
				Size:     uint32(size/SectorSize) - PartitionStart,
			},
		},
	}
	if err := dsk.Partition(table); err != nil {
		os.Remove(path)
		return nil, errors.Wrap(err, "vfs: partition")
	}

	fatfs, err := dsk.CreateFilesystem(disk.FilesystemSpec{
		Partition:   1,
		FSType:      filesystem.TypeFat32,
		VolumeLabel: strings.ToUpper(label),
	})
	if err != nil {
		os.Remove(path)
		return nil, errors.Wrap(err, "vfs: create filesystem")
	}

	return &Image{FileSystem: fatfs, Path: path}, nil
}

// AddDisc copies the disc's tracks into the image as TRACKnn.WAV.
func (im *Image) AddDisc(d Disc) error {
	dir := sanitizeName(d.Name)
	if dir != "" {
		dir = "/" + dir
		if err := im.Mkdir(dir); err != nil {
			return errors.Wrapf(err, "vfs: mkdir %s", dir)
		}
	}

	for _, track := range d.Tracks {
		name := fmt.Sprintf("%s/TRACK%02d.WAV", dir, track.Number)
		if err := im.copyIn(name, track.Source); err != nil {
			return err
		}
	}
	return nil
}

func (im *Image) copyIn(name, source string) error {
	src, err := os.Open(source)
	if err != nil {
		return err
	}
	defer src.Close() // read-only

	dst, err := im.OpenFile(name, os.O_CREATE|os.O_RDWR)
	if err != nil {
		return errors.Wrapf(err, "vfs: create %s", name)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return errors.Wrapf(err, "vfs: write %s", name)
	}
	return dst.Close()
}

// Close releases the image file, which is kept on disk.
func (im *Image) Close() error {
	if c, ok := im.FileSystem.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
