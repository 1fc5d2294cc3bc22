package container

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/reallyoldfogie/mcreplay/payload"
	"github.com/reallyoldfogie/mcreplay/varint"
)

// Reader implements the reader contract of spec §4.4. Open loads the
// entire file into memory and the bounds of the packet stream and
// metadata block are computed up front; Packets walks the in-memory
// stream. File descriptors are held open only for the duration of Open
// (spec §5).
type Reader struct {
	Meta    ReplayMetadata
	data    []byte // the packet stream only, header and trailer stripped
}

// Open reads path, validates the header, locates the trailing metadata
// block, and parses it. Fails on a missing file, bad magic, unsupported
// version, or a metadata decode failure -- all format errors, fatal to
// Open per spec §7.
func Open(path string) (*Reader, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("container: open %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse validates and splits an already-loaded container file. It is
// split out from Open so in-memory and streaming writers' output can be
// read back without a round trip through the filesystem.
func Parse(raw []byte) (*Reader, error) {
	const headerLen = len(Magic) + 1
	if len(raw) < headerLen+4 {
		return nil, fmt.Errorf("container: file too small to contain a header and metadata length")
	}
	if !bytesEqual(raw[:len(Magic)], Magic[:]) {
		return nil, errBadMagic
	}
	if raw[len(Magic)] != Version {
		return nil, fmt.Errorf("%w: got 0x%02x, want 0x%02x", errUnsupportedVersion, raw[len(Magic)], Version)
	}

	metaLen := binary.LittleEndian.Uint32(raw[len(raw)-4:])
	metaStart := len(raw) - 4 - int(metaLen)
	if metaStart < headerLen {
		return nil, fmt.Errorf("container: metadata length %d overruns file", metaLen)
	}

	metaValue, err := payload.Decode(raw[metaStart : len(raw)-4])
	if err != nil {
		return nil, fmt.Errorf("container: decode metadata: %w", err)
	}
	meta, err := metadataFromPayload(payload.Denormalize(metaValue))
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	return &Reader{
		Meta: meta,
		data: raw[headerLen:metaStart],
	}, nil
}

// Packets parses the packet stream and returns every record in order,
// with timestamps reconstructed as the running sum of deltas. Fails on an
// unknown packet id, a truncated record, or a payload decode failure.
func (r *Reader) Packets() ([]PacketRecord, error) {
	var out []PacketRecord
	offset := 0
	running := int64(0)
	for offset < len(r.data) {
		delta, n, err := varint.Decode(r.data[offset:])
		if err != nil {
			return nil, fmt.Errorf("%w: delta at offset %d: %w", errTruncatedRecord, offset, err)
		}
		offset += n

		if offset >= len(r.data) {
			return nil, fmt.Errorf("%w: missing packet id at offset %d", errTruncatedRecord, offset)
		}
		id := r.data[offset]
		offset++

		if offset+4 > len(r.data) {
			return nil, fmt.Errorf("%w: missing length at offset %d", errTruncatedRecord, offset)
		}
		length := binary.LittleEndian.Uint32(r.data[offset : offset+4])
		offset += 4

		if offset+int(length) > len(r.data) {
			return nil, fmt.Errorf("%w: data shorter than declared length at offset %d", errTruncatedRecord, offset)
		}
		encoded := r.data[offset : offset+int(length)]
		offset += int(length)

		name, ok := NameByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: 0x%02x", errUnknownPacketID, id)
		}

		decoded, err := payload.Decode(encoded)
		if err != nil {
			return nil, fmt.Errorf("container: decode payload for %q: %w", name, err)
		}

		running += int64(delta)
		out = append(out, PacketRecord{
			Timestamp: running,
			Name:      name,
			Payload:   payload.Denormalize(decoded),
		})
	}
	return out, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
