package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/reallyoldfogie/mcreplay/payload"
	"github.com/reallyoldfogie/mcreplay/varint"
)

// Magic and Version are the container's fixed 9-byte header (spec §4.4).
var Magic = [8]byte{'M', 'C', 'R', 'E', 'P', 'L', 'A', 'Y'}

const Version byte = 0x01

// Writer implements the writer contract of spec §4.4. It is not safe for
// concurrent use -- like the teacher's mcpr.Writer, callers serialize
// their own writes (the scheduler and recorder feed are single-threaded
// per spec §5).
type Writer struct {
	out           io.Writer
	onChunk       func([]byte)
	file          *os.File
	headerWritten bool
	lastTimestamp int64
	closed        bool
}

// NewWriter wraps out as a plain (non-streaming) container writer. This is
// the in-memory and file-backed variant from spec §4.4: write out to a
// bytes.Buffer for in-memory, or to an *os.File for file-backed.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// NewStreamWriter wraps out and additionally invokes onChunk with every
// raw byte slice written, before it reaches out. This is the third writer
// variant from spec §4.4: a streaming sink for live forwarding.
func NewStreamWriter(out io.Writer, onChunk func([]byte)) *Writer {
	return &Writer{out: out, onChunk: onChunk}
}

// CreateFile creates (or truncates) the file at path and returns a Writer
// that owns the file descriptor; Close() also closes the file.
func CreateFile(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("container: create %s: %w", path, err)
	}
	w := NewWriter(f)
	w.file = f
	return w, nil
}

// NewMemoryWriter returns a Writer backed by an in-memory buffer, along
// with the buffer so callers can inspect it without Close()ing first (all
// three writer variants must produce byte-identical output for identical
// input, so tests exercise this one directly).
func NewMemoryWriter() (*Writer, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewWriter(buf), buf
}

func (w *Writer) write(p []byte) error {
	if w.onChunk != nil {
		w.onChunk(p)
	}
	_, err := w.out.Write(p)
	return err
}

// WriteHeader emits the magic and version. Must be called exactly once,
// before any WritePacket.
func (w *Writer) WriteHeader() error {
	if w.closed {
		return errWriterClosed
	}
	if w.headerWritten {
		return fmt.Errorf("container: WriteHeader called more than once")
	}
	buf := append(append([]byte{}, Magic[:]...), Version)
	if err := w.write(buf); err != nil {
		return err
	}
	w.headerWritten = true
	return nil
}

// WritePacket writes a single framed record: varint(delta), u8(id),
// u32_le(len), encoded payload. delta is r.Timestamp minus the previous
// record's timestamp and must be >= 0.
func (w *Writer) WritePacket(r PacketRecord) error {
	if w.closed {
		return errWriterClosed
	}
	if !w.headerWritten {
		return fmt.Errorf("container: WriteHeader must be called before WritePacket")
	}

	delta := r.Timestamp - w.lastTimestamp
	if delta < 0 {
		return fmt.Errorf("%w: got %d", errNegativeDelta, delta)
	}

	id, ok := NameToID[r.Name]
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownPacketName, r.Name)
	}

	encoded, err := payload.Encode(payload.Normalize(r.Payload))
	if err != nil {
		return fmt.Errorf("container: encode payload for %q: %w", r.Name, err)
	}

	buf := varint.Encode(uint64(delta))
	buf = append(buf, id)
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], uint32(len(encoded)))
	buf = append(buf, lenBytes[:]...)
	buf = append(buf, encoded...)

	if err := w.write(buf); err != nil {
		return err
	}

	w.lastTimestamp = r.Timestamp
	return nil
}

// Close emits the metadata blob and its little-endian u32 length suffix,
// then flushes (and, for a file-backed writer, closes the file).
func (w *Writer) Close(meta ReplayMetadata) error {
	if w.closed {
		return nil
	}
	encoded, err := payload.Encode(payload.Normalize(meta.toPayload()))
	if err != nil {
		return fmt.Errorf("container: encode metadata: %w", err)
	}
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], uint32(len(encoded)))
	if err := w.write(append(append([]byte{}, encoded...), lenBytes[:]...)); err != nil {
		return err
	}
	w.closed = true
	if w.file != nil {
		return w.file.Close()
	}
	if f, ok := w.out.(*os.File); ok {
		return f.Sync()
	}
	return nil
}
