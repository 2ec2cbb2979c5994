package archive

import (
	"bytes"

	"pkgsign/internal/errors"
)

// legacyMarker is the first bytes of the pre-tar, MD5SUM-based archive
// format this package detects but does not read.
var legacyMarker = []byte("MD5SUM =")

// isLegacyFormat reports whether header, the first 20 bytes of an archive
// file, carries the legacy-format marker.
func isLegacyFormat(header []byte) bool {
	return bytes.Contains(header, legacyMarker)
}

// ErrLegacyFormat is returned when an archive carries the legacy marker.
// The legacy reader itself is out of scope for this package; callers
// that need to read pre-tar packages must supply their own reader.
var ErrLegacyFormat = errors.New("archive uses the legacy MD5SUM format, which this package format does not read")
