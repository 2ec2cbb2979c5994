// Package certchain models Certificate and Chain: thin wrappers over
// crypto/x509 with the chain-walking operations the signer and policy
// engine need.
package certchain

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"time"

	"pkgsign/internal/errors"
)

// Certificate wraps a parsed X.509 certificate.
type Certificate struct {
	X509 *x509.Certificate
}

// Subject returns the canonical string form of the subject DN, used for
// chain-walking equality.
func (c *Certificate) Subject() string {
	return c.X509.Subject.String()
}

// Issuer returns the canonical string form of the issuer DN.
func (c *Certificate) Issuer() string {
	return c.X509.Issuer.String()
}

// NotBefore returns the start of the certificate's validity window.
func (c *Certificate) NotBefore() time.Time { return c.X509.NotBefore }

// NotAfter returns the end of the certificate's validity window.
func (c *Certificate) NotAfter() time.Time { return c.X509.NotAfter }

// PublicKey returns the certificate's public key.
func (c *Certificate) PublicKey() *rsa.PublicKey {
	key, _ := c.X509.PublicKey.(*rsa.PublicKey)
	return key
}

// IsSelfSigned reports whether the certificate's issuer equals its own
// subject.
func (c *Certificate) IsSelfSigned() bool {
	return c.Subject() == c.Issuer()
}

// VerifyIssuedBy reports whether this certificate's signature verifies
// against issuer's public key.
func (c *Certificate) VerifyIssuedBy(issuer *Certificate) bool {
	if issuer == nil {
		return false
	}
	return c.X509.CheckSignatureFrom(issuer.X509) == nil
}

// Encode returns the PEM encoding of the certificate.
func (c *Certificate) Encode() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.X509.Raw})
}

// ParseCertificate parses a single PEM-encoded certificate.
func ParseCertificate(data []byte) (*Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.Formatf("no PEM block found in certificate data")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parse certificate")
	}
	return &Certificate{X509: cert}, nil
}
