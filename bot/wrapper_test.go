package bot_test

import (
	"encoding/binary"
	"testing"

	"github.com/rabidaudio/usbcdrip/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCBW(t *testing.T) {
	cdb := []byte{0x12, 0x00, 0x00, 0x00, 0x24, 0x00} // INQUIRY, 36 bytes
	cbw, err := bot.EncodeCBW(1, 36, bot.DirectionIn, cdb)
	require.NoError(t, err)

	assert.Len(t, cbw, bot.CBWSize)
	assert.Equal(t, uint32(bot.CBWSignature), binary.LittleEndian.Uint32(cbw[0:4]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(cbw[4:8]))
	assert.Equal(t, uint32(36), binary.LittleEndian.Uint32(cbw[8:12]))
	assert.Equal(t, byte(0x80), cbw[12])
	assert.Equal(t, byte(0), cbw[13], "LUN")
	assert.Equal(t, byte(6), cbw[14])
	assert.Equal(t, cdb, cbw[15:21])
	assert.Equal(t, make([]byte, 10), cbw[21:31], "padding")
}

func TestEncodeCBWEveryLength(t *testing.T) {
	for n := 1; n <= bot.MaxCDBLength; n++ {
		cdb := make([]byte, n)
		for i := range cdb {
			cdb[i] = byte(0xA0 + i)
		}
		cbw, err := bot.EncodeCBW(uint32(n), 0, bot.DirectionOut, cdb)
		require.NoError(t, err)
		assert.Len(t, cbw, bot.CBWSize)
		assert.Equal(t, byte(n), cbw[14])
		assert.Equal(t, byte(0x00), cbw[12])
	}
}

func TestEncodeCBWBadLength(t *testing.T) {
	_, err := bot.EncodeCBW(1, 0, bot.DirectionOut, nil)
	assert.ErrorIs(t, err, bot.ErrCDBLength)

	_, err = bot.EncodeCBW(1, 0, bot.DirectionOut, make([]byte, 17))
	assert.ErrorIs(t, err, bot.ErrCDBLength)
}

func TestCBWUnmarshal(t *testing.T) {
	cdb := []byte{0xBE, 0x04, 0x00, 0x00, 0x00, 0x96, 0x00, 0x00, 0x01, 0x10, 0x00, 0x00}
	raw, err := bot.EncodeCBW(42, 2352, bot.DirectionIn, cdb)
	require.NoError(t, err)

	var cbw bot.CommandBlockWrapper
	require.NoError(t, cbw.UnmarshalBinary(raw))
	assert.Equal(t, uint32(42), cbw.Tag)
	assert.Equal(t, uint32(2352), cbw.DataTransferLength)
	assert.Equal(t, bot.DirectionIn, cbw.Flags)
	assert.Equal(t, cdb, cbw.CDB())

	raw[0] = 0
	assert.ErrorIs(t, cbw.UnmarshalBinary(raw), bot.ErrBadSignature)
	assert.ErrorIs(t, cbw.UnmarshalBinary(raw[:30]), bot.ErrShortCBW)
}

func TestCSWRoundTrip(t *testing.T) {
	cases := []bot.CommandStatusWrapper{
		{Signature: bot.CSWSignature, Tag: 42, DataResidue: 0, Status: 0},
		{Signature: bot.CSWSignature, Tag: 1, DataResidue: 100, Status: 0},
		{Signature: bot.CSWSignature, Tag: 0xFFFFFFFF, DataResidue: 7, Status: 1},
		{Signature: 0xDEADBEEF, Tag: 3, DataResidue: 0, Status: 2},
	}
	for _, want := range cases {
		raw, err := want.MarshalBinary()
		require.NoError(t, err)
		assert.Len(t, raw, bot.CSWSize)

		got, err := bot.DecodeCSW(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDecodeCSWTooShort(t *testing.T) {
	_, err := bot.DecodeCSW(make([]byte, 5))
	assert.ErrorIs(t, err, bot.ErrShortCSW)
}

func TestCSWValidate(t *testing.T) {
	good := bot.CommandStatusWrapper{Signature: bot.CSWSignature, Tag: 9}
	assert.NoError(t, good.Validate(9))
	assert.ErrorIs(t, good.Validate(10), bot.ErrTagMismatch)

	bad := bot.CommandStatusWrapper{Signature: 0xDEADBEEF, Tag: 9}
	assert.ErrorIs(t, bad.Validate(9), bot.ErrBadSignature)
}
