package container

import "errors"

// Format errors (spec §7): fatal to Open.
var (
	errBadMagic           = errors.New("container: bad magic, not an MCREPLAY file")
	errUnsupportedVersion = errors.New("container: unsupported format version")
	errTruncatedRecord    = errors.New("container: truncated packet record")
	errUnknownPacketID    = errors.New("container: unknown packet id")
	errNotAMap            = errors.New("container: decoded metadata is not a map")
)

// Record write errors (spec §7): fatal to WritePacket.
var (
	errNegativeDelta     = errors.New("container: timestamp delta must be >= 0")
	errUnknownPacketName = errors.New("container: unknown packet name")
	errWriterClosed      = errors.New("container: writer is closed")
)
