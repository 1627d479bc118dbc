package buffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTyped(t *testing.T, typ byte, body []byte) []byte {
	t.Helper()
	out := &bytes.Buffer{}
	w := NewWriter(nil, out)
	w.Start(typ)
	w.AddBytes(body)
	require.NoError(t, w.End())
	return out.Bytes()
}

func TestReaderReadTypedMsgRoundTrip(t *testing.T) {
	t.Parallel()

	raw := writeTyped(t, 'Q', []byte("select 1\x00"))
	r := NewReader(nil, bytes.NewReader(raw), DefaultBufferSize)

	typ, n, err := r.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, byte('Q'), typ)
	require.Greater(t, n, 0)

	s, err := r.GetString()
	require.NoError(t, err)
	require.Equal(t, "select 1", s)
}

func TestReaderGetStringMissingTerminator(t *testing.T) {
	t.Parallel()

	r := &Reader{Msg: []byte("no terminator")}
	_, err := r.GetString()
	require.Error(t, err)
}

func TestReaderGetBytesNegativeOneIsNull(t *testing.T) {
	t.Parallel()

	r := &Reader{}
	v, err := r.GetBytes(-1)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestReaderGetBytesInsufficientData(t *testing.T) {
	t.Parallel()

	r := &Reader{Msg: []byte{1, 2}}
	_, err := r.GetBytes(5)
	require.Error(t, err)
}

func TestReaderGetUint16AndUint32(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	w := NewWriter(nil, out)
	w.Start('x')
	w.AddInt16(42)
	w.AddInt32(123456)
	require.NoError(t, w.End())

	r := NewReader(nil, bytes.NewReader(out.Bytes()), DefaultBufferSize)
	_, _, err := r.ReadTypedMsg()
	require.NoError(t, err)

	v16, err := r.GetUint16()
	require.NoError(t, err)
	require.EqualValues(t, 42, v16)

	v32, err := r.GetInt32()
	require.NoError(t, err)
	require.EqualValues(t, 123456, v32)
}

func TestReaderMessageSizeExceeded(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	w := NewWriter(nil, out)
	w.Start('Q')
	w.AddBytes(make([]byte, 64))
	require.NoError(t, w.End())

	r := NewReader(nil, bytes.NewReader(out.Bytes()), 8)
	_, _, err := r.ReadTypedMsg()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrMessageSizeExceeded)
}

func TestNewReaderNilSource(t *testing.T) {
	t.Parallel()
	require.Nil(t, NewReader(nil, nil, 0))
}
