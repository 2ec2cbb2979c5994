package archive

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	digest "github.com/opencontainers/go-digest"
)

// multiHasher feeds every write into several hash algorithms at once, so a
// single streaming pass over a member's bytes can later satisfy a .sum
// sidecar written with any of them, without a second read of the member.
type multiHasher struct {
	hashes map[digest.Algorithm]hash.Hash
}

func newMultiHasher() *multiHasher {
	return &multiHasher{hashes: map[digest.Algorithm]hash.Hash{
		digest.SHA256: sha256.New(),
		digest.SHA384: sha512.New384(),
		digest.SHA512: sha512.New(),
	}}
}

func (m *multiHasher) Write(p []byte) (int, error) {
	for _, h := range m.hashes {
		h.Write(p)
	}
	return len(p), nil
}

// Digest returns the accumulated digest for alg, the zero value if alg is
// not one of the algorithms this hasher tracks.
func (m *multiHasher) Digest(alg digest.Algorithm) digest.Digest {
	h, ok := m.hashes[alg]
	if !ok {
		return ""
	}
	return digest.NewDigest(alg, h)
}

// Default returns the digest under the package format's default
// algorithm, SHA-256.
func (m *multiHasher) Default() digest.Digest {
	return m.Digest(digest.SHA256)
}
