package buffer

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
)

// Writer accumulates a single outgoing wire message at a time and flushes it
// to the underlying stream on End. It also exposes WriteDirect, the escape
// hatch used to push pre-framed row batches straight to the socket without
// going through the frame/start/end dance.
type Writer struct {
	dst    io.Writer
	logger *slog.Logger
	frame  bytes.Buffer
	err    error
}

// NewWriter constructs a Writer over dst.
func NewWriter(logger *slog.Logger, dst io.Writer) *Writer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Writer{logger: logger, dst: dst}
}

// Start resets the frame and reserves the type byte + 4-byte length header.
func (w *Writer) Start(t byte) {
	w.Reset()
	w.frame.WriteByte(t)
	w.frame.Write([]byte{0, 0, 0, 0})
}

// AddByte appends a single byte.
func (w *Writer) AddByte(b byte) {
	if w.err != nil {
		return
	}
	w.err = w.frame.WriteByte(b)
}

// AddInt16 appends a big-endian int16.
func (w *Writer) AddInt16(v int16) {
	if w.err != nil {
		return
	}
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(v))
	_, w.err = w.frame.Write(buf[:])
}

// AddInt32 appends a big-endian int32.
func (w *Writer) AddInt32(v int32) {
	if w.err != nil {
		return
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	_, w.err = w.frame.Write(buf[:])
}

// AddBytes appends raw bytes verbatim.
func (w *Writer) AddBytes(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.frame.Write(b)
}

// AddString appends a string without a terminator; pair with
// AddNullTerminate for C-style strings.
func (w *Writer) AddString(s string) {
	if w.err != nil {
		return
	}
	_, w.err = w.frame.WriteString(s)
}

// AddNullTerminate appends a single zero byte.
func (w *Writer) AddNullTerminate() {
	w.AddByte(0)
}

// Error returns the first error encountered while building the current frame.
func (w *Writer) Error() error {
	return w.err
}

// Reset discards the in-progress frame.
func (w *Writer) Reset() {
	w.frame.Reset()
	w.err = nil
}

// End patches in the message length and flushes the frame to dst.
func (w *Writer) End() error {
	defer w.Reset()

	if w.err != nil {
		return w.err
	}

	bb := w.frame.Bytes()
	length := uint32(len(bb) - 1) // length excludes the type byte
	binary.BigEndian.PutUint32(bb[1:5], length)

	_, err := w.dst.Write(bb)
	return err
}

// WriteDirect flushes pre-framed bytes straight to dst, bypassing Start/End.
// Used for row batches that are already self-framed by the caller, avoiding
// a serialize-then-copy round trip on the row-streaming hot path.
func (w *Writer) WriteDirect(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	_, err := w.dst.Write(b)
	return err
}
