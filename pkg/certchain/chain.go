package certchain

import (
	"pkgsign/internal/errors"
)

// Chain is an ordered sequence of certificates, root first, leaf (signer)
// last.
type Chain struct {
	Certs []*Certificate
}

// Leaf returns the last (signer) certificate, or nil if the chain is
// empty.
func (c *Chain) Leaf() *Certificate {
	if len(c.Certs) == 0 {
		return nil
	}
	return c.Certs[len(c.Certs)-1]
}

// Root returns the first certificate, or nil if the chain is empty.
func (c *Chain) Root() *Certificate {
	if len(c.Certs) == 0 {
		return nil
	}
	return c.Certs[0]
}

// IsClosed reports whether the chain's root is self-signed, i.e. the
// chain is not waiting on TrustStore closure.
func (c *Chain) IsClosed() bool {
	root := c.Root()
	return root != nil && root.IsSelfSigned()
}

// CheckAdjacency verifies that for every adjacent pair (issuer, cert),
// cert.Issuer() == issuer.Subject().
func (c *Chain) CheckAdjacency() error {
	for i := 1; i < len(c.Certs); i++ {
		issuer, cert := c.Certs[i-1], c.Certs[i]
		if cert.Issuer() != issuer.Subject() {
			return errors.Formatf("chain adjacency violated: %q issuer %q does not match %q subject",
				cert.Subject(), cert.Issuer(), issuer.Subject())
		}
	}
	return nil
}

// Prepend returns a new Chain with cert inserted at the front.
func (c *Chain) Prepend(cert *Certificate) *Chain {
	certs := make([]*Certificate, 0, len(c.Certs)+1)
	certs = append(certs, cert)
	certs = append(certs, c.Certs...)
	return &Chain{Certs: certs}
}

// EncodePEMs returns the PEM encoding of every certificate in the chain,
// root first, matching the Specification.CertChain wire representation.
func (c *Chain) EncodePEMs() []string {
	out := make([]string, 0, len(c.Certs))
	for _, cert := range c.Certs {
		out = append(out, string(cert.Encode()))
	}
	return out
}

// ParseChain parses a sequence of PEM blobs into a Chain, in the order
// given (root first).
func ParseChain(pems []string) (*Chain, error) {
	certs := make([]*Certificate, 0, len(pems))
	for i, p := range pems {
		cert, err := ParseCertificate([]byte(p))
		if err != nil {
			return nil, errors.Wrap(err, "parse chain element %d", i)
		}
		certs = append(certs, cert)
	}
	return &Chain{Certs: certs}, nil
}
