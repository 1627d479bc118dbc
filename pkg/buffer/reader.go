// Package buffer implements the low level framing used by the PostgreSQL
// wire protocol: length-prefixed messages with a single type byte for
// frontend->backend traffic.
package buffer

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unsafe"
)

// DefaultBufferSize is used whenever a caller does not provide one.
const DefaultBufferSize = 1 << 21 // 2MiB, generous for metadata-carrying rows

// ErrMessageSizeExceeded is returned whenever an incoming message announces a
// size larger than the reader's configured maximum.
var ErrMessageSizeExceeded = errors.New("message size exceeded")

// MessageSizeExceeded carries the offending sizes for ErrMessageSizeExceeded.
type MessageSizeExceeded struct {
	Max  int
	Size int
}

func (e *MessageSizeExceeded) Error() string {
	return fmt.Sprintf("message of size %d exceeds maximum of %d", e.Size, e.Max)
}

func (e *MessageSizeExceeded) Unwrap() error { return ErrMessageSizeExceeded }

// NewMessageSizeExceeded wraps ErrMessageSizeExceeded with the observed sizes.
func NewMessageSizeExceeded(max, size int) error {
	return &MessageSizeExceeded{Max: max, Size: size}
}

// UnwrapMessageSizeExceeded extracts the sizes carried by err, if any.
func UnwrapMessageSizeExceeded(err error) (*MessageSizeExceeded, bool) {
	var exceeded *MessageSizeExceeded
	if errors.As(err, &exceeded) {
		return exceeded, true
	}
	return nil, false
}

// Reader reads typed and untyped PostgreSQL wire messages off an underlying
// byte stream, reusing its backing array across messages where possible.
type Reader struct {
	logger         *slog.Logger
	src            *bufio.Reader
	Msg            []byte
	MaxMessageSize int
	header         [4]byte
}

// NewReader constructs a Reader over src, using bufferSize for the
// underlying bufio.Reader and as the maximum permitted message size.
func NewReader(logger *slog.Logger, src io.Reader, bufferSize int) *Reader {
	if src == nil {
		return nil
	}

	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Reader{
		logger:         logger,
		src:            bufio.NewReaderSize(src, bufferSize),
		MaxMessageSize: bufferSize,
	}
}

func (r *Reader) reset(size int) {
	allocSize := size
	if allocSize < 4096 {
		allocSize = 4096
	}

	if cap(r.Msg) >= size {
		r.Msg = r.Msg[:size]
		return
	}

	r.Msg = make([]byte, size, allocSize)
}

// ReadByte reads a single raw byte, used for the message type tag.
func (r *Reader) ReadByte() (byte, error) {
	return r.src.ReadByte()
}

// ReadMsgSize reads the 4-byte big-endian length prefix, returning the
// remaining body length (the prefix itself is excluded).
func (r *Reader) ReadMsgSize() (int, error) {
	n, err := io.ReadFull(r.src, r.header[:])
	if err != nil {
		return n, err
	}

	size := int(binary.BigEndian.Uint32(r.header[:])) - 4
	return size, nil
}

// ReadUntypedMsg reads a length-prefixed message body with no leading type
// byte, as used once for StartupMessage / SSLRequest / cancel requests.
func (r *Reader) ReadUntypedMsg() (int, error) {
	size, err := r.ReadMsgSize()
	if err != nil {
		return 0, err
	}

	if size > r.MaxMessageSize || size < 0 {
		return size, NewMessageSizeExceeded(r.MaxMessageSize, size)
	}

	r.reset(size)
	n, err := io.ReadFull(r.src, r.Msg)
	return len(r.header) + n, err
}

// ReadTypedMsg reads a type byte followed by a length-prefixed body, the
// shape of every frontend message once the connection is past startup.
func (r *Reader) ReadTypedMsg() (byte, int, error) {
	t, err := r.ReadByte()
	if err != nil {
		return 0, 0, err
	}

	n, err := r.ReadUntypedMsg()
	if err != nil {
		return t, 0, err
	}

	r.logger.Debug("<- read message", slog.String("type", string(t)), slog.Int("length", n))
	return t, n, nil
}

// Slurp discards size bytes from the stream, used to drain an oversized
// message body after ErrMessageSizeExceeded has already been reported.
func (r *Reader) Slurp(size int) error {
	remaining := size
	for remaining > 0 {
		reading := remaining
		if reading > r.MaxMessageSize {
			reading = r.MaxMessageSize
		}

		r.reset(reading)
		n, err := io.ReadFull(r.src, r.Msg)
		if err != nil {
			return err
		}

		remaining -= n
	}

	return nil
}

// GetString reads a null-terminated string from the remaining message body.
func (r *Reader) GetString() (string, error) {
	pos := bytes.IndexByte(r.Msg, 0)
	if pos == -1 {
		return "", errors.New("expected a null terminated string")
	}

	s := r.Msg[:pos]
	r.Msg = r.Msg[pos+1:]
	// Safe: the backing array is never mutated or reused concurrently with
	// the returned string's lifetime.
	return *(*string)(unsafe.Pointer(&s)), nil
}

// GetBytes consumes and returns the next n bytes. n == -1 is the protocol's
// NULL-parameter sentinel and returns a nil slice.
func (r *Reader) GetBytes(n int) ([]byte, error) {
	if n == -1 {
		return nil, nil
	}

	if len(r.Msg) < n {
		return nil, fmt.Errorf("insufficient data: need %d, have %d", n, len(r.Msg))
	}

	v := r.Msg[:n]
	r.Msg = r.Msg[n:]
	return v, nil
}

// GetUint16 consumes a big-endian uint16.
func (r *Reader) GetUint16() (uint16, error) {
	if len(r.Msg) < 2 {
		return 0, fmt.Errorf("insufficient data: need 2, have %d", len(r.Msg))
	}

	v := binary.BigEndian.Uint16(r.Msg[:2])
	r.Msg = r.Msg[2:]
	return v, nil
}

// GetUint32 consumes a big-endian uint32.
func (r *Reader) GetUint32() (uint32, error) {
	if len(r.Msg) < 4 {
		return 0, fmt.Errorf("insufficient data: need 4, have %d", len(r.Msg))
	}

	v := binary.BigEndian.Uint32(r.Msg[:4])
	r.Msg = r.Msg[4:]
	return v, nil
}

// GetInt32 consumes a big-endian int32.
func (r *Reader) GetInt32() (int32, error) {
	v, err := r.GetUint32()
	return int32(v), err
}
