// Package digestio implements the pass-through DigestingWriter and
// DigestingReader: I/O wrappers that incrementally compute a digest over
// every byte written or read, and optionally emit a detached signature
// over the final digest on close.
package digestio

import (
	"crypto/sha256"
	"hash"
	"io"

	"github.com/valyala/bytebufferpool"
	digest "github.com/opencontainers/go-digest"

	"pkgsign/internal/errors"
)

// ChunkSize is the streaming block size used for both the outer scan and
// the inner tar payload.
const ChunkSize = 16 * 1024

// Signer is the subset of signer.Signer that DigestingWriter needs. Sign
// receives the already-computed SHA-256 digest of the member, not the
// member's raw bytes.
type Signer interface {
	Sign(digest []byte) ([]byte, error)
}

// DigestingWriter wraps an io.Writer, feeding every written byte into a
// SHA-256 digest, and optionally signing the final digest on Close.
type DigestingWriter struct {
	w      io.Writer
	h      hash.Hash
	signer Signer

	digest    digest.Digest
	signature []byte
	closed    bool
}

// NewDigestingWriter wraps w. signer may be nil, in which case Close
// leaves Signature() nil.
func NewDigestingWriter(w io.Writer, signer Signer) *DigestingWriter {
	return &DigestingWriter{w: w, h: sha256.New(), signer: signer}
}

// Write feeds p through the digest and the underlying writer.
func (d *DigestingWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	if err != nil {
		return n, errors.IOf(err, "write member body")
	}
	if _, herr := d.h.Write(p[:n]); herr != nil {
		return n, errors.Wrap(herr, "update digest")
	}
	return n, nil
}

// CopyFrom streams src into the writer in ChunkSize blocks. The chunk
// buffer is pooled via bytebufferpool to avoid a per-member allocation.
func (d *DigestingWriter) CopyFrom(src io.Reader) (int64, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if cap(buf.B) < ChunkSize {
		buf.B = make([]byte, ChunkSize)
	}
	chunk := buf.B[:ChunkSize]

	var total int64
	for {
		n, rerr := src.Read(chunk)
		if n > 0 {
			if _, werr := d.Write(chunk[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return total, errors.IOf(rerr, "read member body")
		}
	}
	return total, nil
}

// Close finalizes the digest and, if a Signer was supplied, signs it.
// Call it after all writes complete; calling it again is a no-op.
func (d *DigestingWriter) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.digest = digest.NewDigest(digest.SHA256, d.h)

	if d.signer == nil {
		return nil
	}
	rawDigest := d.h.Sum(nil)
	sig, err := d.signer.Sign(rawDigest)
	if err != nil {
		return errors.Wrap(err, "sign member digest")
	}
	d.signature = sig
	return nil
}

// Digest returns the finalized digest. Valid only after Close.
func (d *DigestingWriter) Digest() digest.Digest { return d.digest }

// Signature returns the detached signature over Digest's raw bytes, or
// nil if no Signer was configured or the signer itself had no key.
func (d *DigestingWriter) Signature() []byte { return d.signature }
