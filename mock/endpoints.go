// Package mock provides a scripted stand-in for a USB mass storage
// drive's bulk endpoints.
package mock

import (
	"context"
	"errors"

	"github.com/rabidaudio/usbcdrip/bot"
)

// ErrNothingQueued is returned by a read when the device has nothing to
// send, which on real hardware would be a stall or a timeout.
var ErrNothingQueued = errors.New("mock: no data queued on IN endpoint")

// Reply scripts the device's answer to one CBW.
type Reply struct {
	WriteErr error // fail the CBW write itself

	Data    []byte // data phase payload
	DataErr error  // returned together with Data from the data phase read

	Status    uint8
	Residue   uint32
	Signature uint32 // CSW signature, bot.CSWSignature if zero
	TagDelta  int32  // added to the CBW tag when echoing it back
	CSWErr    error  // fail the CSW read
	ShortCSW  bool   // send only 6 status bytes

	Hang bool // block every read until the caller's context expires
}

// Handler decides how the device answers a command.
type Handler func(cbw bot.CommandBlockWrapper) Reply

type read struct {
	data []byte
	err  error
	hang bool
}

// Endpoints implements both bot.BulkOut and bot.BulkIn. Each CBW written
// to it is decoded, recorded and answered through Handler.
type Endpoints struct {
	Handler Handler

	CBWs   []bot.CommandBlockWrapper // every decoded CBW in order
	Writes int                       // number of WriteContext calls
	Reads  int                       // number of ReadContext calls

	pending []read
}

var (
	_ bot.BulkOut = (*Endpoints)(nil)
	_ bot.BulkIn  = (*Endpoints)(nil)
)

// Queue returns a handler answering successive commands with replies in
// order, repeating the last one once they run out.
func Queue(replies ...Reply) Handler {
	i := 0
	return func(bot.CommandBlockWrapper) Reply {
		if len(replies) == 0 {
			return Reply{}
		}
		r := replies[i]
		if i < len(replies)-1 {
			i++
		}
		return r
	}
}

func (m *Endpoints) WriteContext(ctx context.Context, p []byte) (int, error) {
	m.Writes++
	var cbw bot.CommandBlockWrapper
	if err := cbw.UnmarshalBinary(p); err != nil {
		return 0, err
	}
	m.CBWs = append(m.CBWs, cbw)

	r := Reply{}
	if m.Handler != nil {
		r = m.Handler(cbw)
	}
	if r.WriteErr != nil {
		return 0, r.WriteErr
	}

	m.pending = m.pending[:0]
	if cbw.Flags == bot.DirectionIn && cbw.DataTransferLength > 0 {
		m.pending = append(m.pending, read{data: r.Data, err: r.DataErr, hang: r.Hang})
	}
	m.pending = append(m.pending, read{data: r.csw(cbw.Tag), err: r.CSWErr, hang: r.Hang})
	return len(p), nil
}

func (m *Endpoints) ReadContext(ctx context.Context, p []byte) (int, error) {
	m.Reads++
	if len(m.pending) == 0 {
		return 0, ErrNothingQueued
	}
	next := m.pending[0]
	m.pending = m.pending[1:]
	if next.hang {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	n := copy(p, next.data)
	return n, next.err
}

func (r Reply) csw(tag uint32) []byte {
	sig := r.Signature
	if sig == 0 {
		sig = bot.CSWSignature
	}
	raw, _ := bot.CommandStatusWrapper{
		Signature:   sig,
		Tag:         uint32(int64(tag) + int64(r.TagDelta)),
		DataResidue: r.Residue,
		Status:      r.Status,
	}.MarshalBinary()
	if r.ShortCSW {
		return raw[:6]
	}
	return raw
}
