package digestio

import (
	"crypto/sha256"
	"hash"
	"io"

	"github.com/valyala/bytebufferpool"
	digest "github.com/opencontainers/go-digest"

	"pkgsign/internal/errors"
)

// DigestingReader wraps an io.Reader, feeding every byte read into a
// SHA-256 digest as it streams through, so a body can be digested in one
// streaming pass.
type DigestingReader struct {
	r io.Reader
	h hash.Hash
}

// NewDigestingReader wraps r.
func NewDigestingReader(r io.Reader) *DigestingReader {
	return &DigestingReader{r: r, h: sha256.New()}
}

// Read implements io.Reader, feeding bytes into the digest as they pass
// through.
func (d *DigestingReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if n > 0 {
		d.h.Write(p[:n])
	}
	return n, err
}

// Digest returns the digest accumulated so far. Call after draining the
// reader to EOF to get the final digest.
func (d *DigestingReader) Digest() digest.Digest {
	return digest.NewDigest(digest.SHA256, d.h)
}

// RawSum returns the raw (binary) digest bytes accumulated so far, the
// form a detached signature is computed and verified over.
func (d *DigestingReader) RawSum() []byte {
	return d.h.Sum(nil)
}

// Drain reads r to EOF through a DigestingReader in ChunkSize blocks and
// returns the resulting digest, without retaining the body bytes.
func Drain(r io.Reader) (digest.Digest, error) {
	dr := NewDigestingReader(r)

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if cap(buf.B) < ChunkSize {
		buf.B = make([]byte, ChunkSize)
	}
	chunk := buf.B[:ChunkSize]

	for {
		_, err := dr.Read(chunk)
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.IOf(err, "digest member body")
		}
	}
	return dr.Digest(), nil
}
