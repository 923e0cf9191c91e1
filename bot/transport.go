// Package bot implements the host side of the USB Mass Storage
// Bulk-Only Transport: SCSI command blocks are wrapped in a CBW, written
// to the bulk OUT endpoint, optionally followed by a data phase on the
// bulk IN endpoint, and answered by a CSW.
//
// A Transport has exactly one outstanding exchange at a time and is not
// safe for concurrent use.
package bot

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// BulkOut is a host-to-device bulk endpoint. *gousb.OutEndpoint
// satisfies it.
type BulkOut interface {
	WriteContext(ctx context.Context, p []byte) (int, error)
}

// BulkIn is a device-to-host bulk endpoint. *gousb.InEndpoint
// satisfies it.
type BulkIn interface {
	ReadContext(ctx context.Context, p []byte) (int, error)
}

// DefaultTimeout is used for every phase when Execute is called with a
// zero timeout.
const DefaultTimeout = 5 * time.Second

// Transport drives CBW/data/CSW exchanges over a pair of bulk endpoints.
// It owns the tag counter; nothing else may change it.
type Transport struct {
	out BulkOut
	in  BulkIn
	tag uint32
	log logrus.FieldLogger
}

// NewTransport returns a transport whose first command will carry tag 1.
// A nil logger discards all output.
func NewTransport(out BulkOut, in BulkIn, logger logrus.FieldLogger) *Transport {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Transport{
		out: out,
		in:  in,
		tag: 1,
		log: logger.WithField("component", "bot"),
	}
}

// NextTag returns the tag the next command will be sent with.
func (t *Transport) NextTag() uint32 {
	return t.tag
}

// Execute sends cdb and returns the data phase payload along with the
// drive's status.
//
// A status of StatusTransportFailure is always accompanied by a non-nil
// error and whatever data was received before the failure. Otherwise the
// error is nil and the status is the one reported in the CSW; a drive
// reporting failure is not an error at this layer.
//
// Each of the three phases is bounded by timeout independently.
func (t *Transport) Execute(ctx context.Context, cdb []byte, dataLen int, dir Direction, timeout time.Duration) ([]byte, Status, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tag := t.tag
	t.tag++ // every command consumes a tag, even failed ones

	log := t.log.WithFields(logrus.Fields{"tag": tag, "opcode": opcode(cdb)})

	if dataLen < 0 {
		return nil, StatusTransportFailure, ErrDataLength
	}
	cbw, err := EncodeCBW(tag, uint32(dataLen), dir, cdb)
	if err != nil {
		return nil, StatusTransportFailure, err
	}

	n, err := t.write(ctx, cbw, timeout)
	if err != nil {
		log.WithError(err).Debug("CBW write failed")
		return nil, StatusTransportFailure, errors.Wrap(err, "bot: CBW write")
	}
	if n != CBWSize {
		log.WithField("written", n).Debug("CBW short write")
		return nil, StatusTransportFailure, ErrShortWrite
	}

	var data []byte
	var dataErr error
	if dataLen > 0 && dir == DirectionIn {
		buf := make([]byte, dataLen)
		n, err := t.read(ctx, buf, timeout)
		data = buf[:n]
		if err != nil {
			// the status phase still has to be consumed to keep the
			// drive's state machine in step with ours
			dataErr = errors.Wrap(err, "bot: data read")
			log.WithError(err).WithField("received", n).Debug("data phase failed")
		}
	}

	raw := make([]byte, CSWSize)
	n, err = t.read(ctx, raw, timeout)
	if err != nil {
		log.WithError(err).Debug("CSW read failed")
		return data, StatusTransportFailure, errors.Wrap(err, "bot: CSW read")
	}
	csw, err := DecodeCSW(raw[:n])
	if err != nil {
		return data, StatusTransportFailure, err
	}
	if err := csw.Validate(tag); err != nil {
		log.WithError(err).WithField("csw_tag", csw.Tag).Debug("CSW rejected")
		return data, StatusTransportFailure, err
	}
	if dataErr != nil {
		return data, StatusTransportFailure, dataErr
	}

	status := Status(csw.Status)
	log.WithFields(logrus.Fields{
		"status":   status,
		"residue":  csw.DataResidue,
		"received": len(data),
	}).Debug("command complete")
	return data, status, nil
}

func (t *Transport) write(ctx context.Context, p []byte, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return t.out.WriteContext(ctx, p)
}

func (t *Transport) read(ctx context.Context, p []byte, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	n, err := t.in.ReadContext(ctx, p)
	if n < 0 {
		n = 0
	}
	if n > len(p) {
		n = len(p)
	}
	return n, err
}

func opcode(cdb []byte) int {
	if len(cdb) == 0 {
		return -1
	}
	return int(cdb[0])
}
