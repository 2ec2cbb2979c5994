package digestio

import (
	"bytes"
	"crypto/sha256"
	"io"
	"testing"

	digest "github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSigner struct {
	sig []byte
	err error
}

func (s *stubSigner) Sign(data []byte) ([]byte, error) { return s.sig, s.err }

func expectedDigest(t *testing.T, data []byte) digest.Digest {
	t.Helper()
	sum := sha256.Sum256(data)
	return digest.NewDigestFromBytes(digest.SHA256, sum[:])
}

func TestDigestingWriterNoSigner(t *testing.T) {
	var buf bytes.Buffer
	w := NewDigestingWriter(&buf, nil)

	payload := []byte("the quick brown fox jumps over the lazy dog")
	n, err := w.CopyFrom(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	require.NoError(t, w.Close())
	assert.Equal(t, expectedDigest(t, payload), w.Digest())
	assert.Nil(t, w.Signature())
	assert.Equal(t, payload, buf.Bytes())
}

func TestDigestingWriterWithSigner(t *testing.T) {
	var buf bytes.Buffer
	signer := &stubSigner{sig: []byte("detached-signature")}
	w := NewDigestingWriter(&buf, signer)

	_, err := w.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, []byte("detached-signature"), w.Signature())
}

func TestDigestingWriterCloseIdempotent(t *testing.T) {
	var buf bytes.Buffer
	signer := &stubSigner{sig: []byte("sig")}
	w := NewDigestingWriter(&buf, signer)

	_, err := w.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	firstSig := w.Signature()

	signer.sig = []byte("different-sig")
	require.NoError(t, w.Close())
	assert.Equal(t, firstSig, w.Signature(), "second Close must be a no-op")
}

func TestDigestingReader(t *testing.T) {
	payload := []byte("streamed content for digesting reader")
	dr := NewDigestingReader(bytes.NewReader(payload))

	out := bytes.NewBuffer(nil)
	buf := make([]byte, 7)
	for {
		n, rerr := dr.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
		}
		if rerr == io.EOF {
			break
		}
		require.NoError(t, rerr)
	}
	assert.Equal(t, payload, out.Bytes())
	assert.Equal(t, expectedDigest(t, payload), dr.Digest())
}

func TestDrain(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), ChunkSize*3+17)
	d, err := Drain(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, expectedDigest(t, payload), d)
}
