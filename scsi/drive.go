package scsi

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rabidaudio/usbcdrip/audiocd"
	"github.com/rabidaudio/usbcdrip/bot"
)

// Executor runs one command over a transport. *bot.Transport implements
// it.
type Executor interface {
	Execute(ctx context.Context, cdb []byte, dataLen int, dir bot.Direction, timeout time.Duration) ([]byte, bot.Status, error)
}

var _ Executor = (*bot.Transport)(nil)

// Default per-phase timeouts.
const (
	DefaultCommandTimeout = 5 * time.Second
	DefaultTOCTimeout     = 10 * time.Second
	DefaultReadTimeout    = 60 * time.Second
)

// CommandError reports a command that did not pass. Status is the raw
// status code: 1 or 2 from the drive, or bot.StatusTransportFailure when
// the exchange itself failed, in which case Err holds the cause.
type CommandError struct {
	Op     string
	Status bot.Status
	Err    error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scsi: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("scsi: %s failed with status %d", e.Op, int(e.Status))
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Drive issues MMC commands to an optical drive. It never retries; that
// is left to the caller. The zero timeouts select the defaults.
type Drive struct {
	Transport Executor

	CommandTimeout time.Duration // INQUIRY, TEST UNIT READY
	TOCTimeout     time.Duration // READ TOC
	ReadTimeout    time.Duration // READ CD
}

// NewDrive returns a drive using the default timeouts.
func NewDrive(t Executor) *Drive {
	return &Drive{Transport: t}
}

func (d *Drive) exec(ctx context.Context, op string, cdb []byte, dataLen int, timeout time.Duration) ([]byte, error) {
	dir := bot.DirectionOut
	if dataLen > 0 {
		dir = bot.DirectionIn
	}
	data, status, err := d.Transport.Execute(ctx, cdb, dataLen, dir, timeout)
	if err != nil {
		return data, &CommandError{Op: op, Status: bot.StatusTransportFailure, Err: err}
	}
	if status != bot.StatusPassed {
		return data, &CommandError{Op: op, Status: status}
	}
	return data, nil
}

// Inquiry asks the drive to identify itself.
func (d *Drive) Inquiry(ctx context.Context) (InquiryData, error) {
	data, err := d.exec(ctx, "INQUIRY", Inquiry(), InquiryLength, or(d.CommandTimeout, DefaultCommandTimeout))
	if err != nil {
		return InquiryData{}, err
	}
	return DecodeInquiry(data), nil
}

// TestUnitReady returns nil when a disc is loaded and the drive is ready
// to read it.
func (d *Drive) TestUnitReady(ctx context.Context) error {
	_, err := d.exec(ctx, "TEST UNIT READY", TestUnitReady(), 0, or(d.CommandTimeout, DefaultCommandTimeout))
	return err
}

// ReadTOCRaw returns the undecoded READ TOC response.
func (d *Drive) ReadTOCRaw(ctx context.Context) ([]byte, error) {
	return d.exec(ctx, "READ TOC", ReadTOC(), TOCAllocation, or(d.TOCTimeout, DefaultTOCTimeout))
}

// ReadTOC reads and decodes the table of contents. A response that does
// not describe a usable disc yields an audiocd.AudioCDError.
func (d *Drive) ReadTOC(ctx context.Context) (*audiocd.TOC, error) {
	raw, err := d.ReadTOCRaw(ctx)
	if err != nil {
		return nil, err
	}
	if len(raw) < TOCHeaderSize {
		return nil, audiocd.ErrReadTOCHeader
	}
	return DecodeTOC(raw).TOC()
}

// ReadCD reads count raw audio sectors starting at lba. The data is
// returned as received; a transfer shorter than requested is not an
// error at this layer.
func (d *Drive) ReadCD(ctx context.Context, lba uint32, count uint32) ([]byte, error) {
	if count == 0 || count > MaxReadSectors {
		return nil, errors.Errorf("scsi: READ CD of %d sectors out of range", count)
	}
	op := fmt.Sprintf("READ CD at LBA %d", lba)
	return d.exec(ctx, op, ReadCD(lba, count), ReadCDLength(count), or(d.ReadTimeout, DefaultReadTimeout))
}

func or(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
