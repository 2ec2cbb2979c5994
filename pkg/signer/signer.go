// Package signer implements the Signer: it holds an RSA private key and
// certificate chain, produces detached PKCS#1 v1.5 signatures, and
// renews an expired self-signed leaf certificate in place.
package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"os"
	"time"

	"pkgsign/internal/errors"
	"pkgsign/internal/log"
	"pkgsign/pkg/certchain"
)

// TrustStore is the subset of truststore.TrustStore the Signer needs to
// close an open chain.
type TrustStore interface {
	IssuerOf(cert *certchain.Certificate) (*certchain.Certificate, error)
}

// ErrKeyChainMismatch is returned by Sign when the chain's leaf public key
// does not match the signing key.
var ErrKeyChainMismatch = errors.New("leaf certificate public key does not match signing key")

// DefaultResignValidity is how long a freshly renewed self-signed
// certificate remains valid.
const DefaultResignValidity = 365 * 24 * time.Hour

// Signer holds signing state for the lifetime of one build.
type Signer struct {
	chain *certchain.Chain
	key   *rsa.PrivateKey

	trustStore     TrustStore
	paths          ConventionalPaths
	resignValidity time.Duration
	logger         log.Logger
}

// Option configures a Signer.
type Option func(*Signer)

// WithTrustStore supplies the trust store used to close an open chain.
func WithTrustStore(ts TrustStore) Option {
	return func(s *Signer) { s.trustStore = ts }
}

// WithConventionalPaths overrides the default conventional paths used for
// key/cert probing and re-signing.
func WithConventionalPaths(p ConventionalPaths) Option {
	return func(s *Signer) { s.paths = p }
}

// WithResignValidity overrides DefaultResignValidity.
func WithResignValidity(d time.Duration) Option {
	return func(s *Signer) { s.resignValidity = d }
}

// WithLogger overrides the default logger, log.Global().
func WithLogger(l log.Logger) Option {
	return func(s *Signer) { s.logger = l }
}

// New constructs a Signer, implementing these resolution rules:
//  1. If keySrc is nil, probe the conventional private key path.
//  2. If chainSrcs is empty, probe the conventional public cert path.
//  3. Parse every chain element via its CertSource.
//  4. Close the chain by walking the trust store, prepending issuers
//     until the root is self-signed or no further issuer is found.
func New(keySrc *KeySource, chainSrcs []CertSource, opts ...Option) (*Signer, error) {
	s := &Signer{
		paths:          ResolveConventionalPaths(homeDir()),
		resignValidity: DefaultResignValidity,
		logger:         log.Global(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if keySrc == nil {
		if _, err := os.Stat(s.paths.PrivateKey); err == nil {
			probed := PathKeySource(s.paths.PrivateKey)
			keySrc = &probed
		}
	}
	if keySrc != nil {
		key, err := keySrc.normalize()
		if err != nil {
			return nil, errors.Wrap(err, "resolve signing key")
		}
		s.key = key
	}

	if len(chainSrcs) == 0 {
		if _, err := os.Stat(s.paths.PublicCert); err == nil {
			chainSrcs = []CertSource{PathCertSource(s.paths.PublicCert)}
		}
	}

	certs := make([]*certchain.Certificate, 0, len(chainSrcs))
	for i, src := range chainSrcs {
		cert, err := src.normalize()
		if err != nil {
			return nil, errors.Wrap(err, "resolve chain element %d", i)
		}
		certs = append(certs, cert)
	}
	s.chain = &certchain.Chain{Certs: certs}

	if err := s.closeChain(); err != nil {
		return nil, err
	}

	return s, nil
}

func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return "."
}

// closeChain walks the trust store prepending issuers until the chain's
// root is self-signed or no issuer can be found, leaving the chain open in
// the latter case.
func (s *Signer) closeChain() error {
	if s.trustStore == nil {
		return nil
	}
	for len(s.chain.Certs) > 0 && !s.chain.IsClosed() {
		root := s.chain.Root()
		issuer, err := s.trustStore.IssuerOf(root)
		if err != nil {
			return errors.Wrap(err, "close certificate chain")
		}
		if issuer == nil {
			break
		}
		s.chain = s.chain.Prepend(issuer)
	}
	return nil
}

// Chain returns the signer's current certificate chain.
func (s *Signer) Chain() *certchain.Chain { return s.chain }

// HasKey reports whether a signing key is configured.
func (s *Signer) HasKey() bool { return s.key != nil }

// PublicKey returns the signing key's public half, or nil if absent.
func (s *Signer) PublicKey() *rsa.PublicKey {
	if s.key == nil {
		return nil
	}
	return &s.key.PublicKey
}

// Sign produces a detached PKCS#1 v1.5 signature over digest, which must
// already be the SHA-256 digest of the member being signed — Sign does
// not hash its input a second time. It is a no-op returning (nil, nil)
// if no key is configured, re-signs automatically if the chain has
// expired, and fails with KeyChainMismatch if the leaf's public key does
// not match the signing key.
func (s *Signer) Sign(digest []byte) ([]byte, error) {
	if s.key == nil {
		return nil, nil
	}

	if len(s.chain.Certs) == 1 && time.Now().After(s.chain.Certs[0].NotAfter()) {
		if err := s.resignKey(); err != nil {
			s.logger.Warn("certificate renewal did not proceed", map[string]interface{}{"error": err.Error()})
		}
	}

	leaf := s.chain.Leaf()
	if leaf == nil {
		return nil, errors.InvalidInputf("signer has a key but no certificate chain")
	}
	leafKey := leaf.PublicKey()
	if leafKey == nil || leafKey.N.Cmp(s.key.PublicKey.N) != 0 || leafKey.E != s.key.PublicKey.E {
		return nil, ErrKeyChainMismatch
	}

	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest)
	if err != nil {
		return nil, errors.Wrap(err, "sign data")
	}
	return sig, nil
}

// CheckExpiry proactively runs the re-sign state machine if the chain has
// a single expired self-signed certificate, without waiting for the next
// Sign call. Used by pkg/scheduler to renew long-lived service certs
// ahead of need.
func (s *Signer) CheckExpiry() error {
	if s.key == nil || len(s.chain.Certs) != 1 {
		return nil
	}
	if !time.Now().After(s.chain.Certs[0].NotAfter()) {
		return nil
	}
	return s.resignKey()
}
