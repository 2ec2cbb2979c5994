package policy

import (
	digest "github.com/opencontainers/go-digest"

	"pkgsign/pkg/certchain"
	"pkgsign/pkg/specmodel"
)

// VerifySignatures parses the certificate chain embedded in spec and
// verifies it against the given digests/signatures.
func (p *Policy) VerifySignatures(spec *specmodel.Specification, digests map[string]digest.Digest, signatures map[string][]byte) error {
	chain, err := certchain.ParseChain(spec.CertChain)
	if err != nil {
		return newErr(KindIssuerMismatch, "", "parse certificate chain from specification: %v", err)
	}
	return p.Verify(chain, nil, digests, signatures)
}
