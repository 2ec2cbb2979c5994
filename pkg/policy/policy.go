// Package policy implements the verification policy engine: named bundles
// of verification toggles that evaluate chain integrity, root trust,
// signer validity, and per-file data signatures.
package policy

import (
	"crypto"
	"crypto/rsa"
	"encoding/hex"
	"time"

	digest "github.com/opencontainers/go-digest"

	"pkgsign/pkg/certchain"
)

// TrustStore is the subset of truststore.TrustStore Policy needs to check
// root trust.
type TrustStore interface {
	CertPath(cert *certchain.Certificate) (string, error)
	Lookup(cert *certchain.Certificate) (*certchain.Certificate, error)
	DigestMatches(storedRoot, presentedRoot *certchain.Certificate) (bool, error)
}

// Policy is a named bundle of verification toggles.
type Policy struct {
	Name string

	OnlySigned  bool
	OnlyTrusted bool
	VerifyChain bool
	VerifyData  bool
	VerifyRoot  bool
	VerifySigner bool

	TrustStore TrustStore
}

// The five closed named presets. No other preset may be constructed;
// callers select one of these by name.
var (
	NoSecurity = Policy{
		Name: "NoSecurity",
	}
	AlmostNoSecurity = Policy{
		Name:       "AlmostNoSecurity",
		VerifyData: true,
	}
	LowSecurity = Policy{
		Name:         "LowSecurity",
		VerifyData:   true,
		VerifySigner: true,
	}
	MediumSecurity = Policy{
		Name:         "MediumSecurity",
		VerifyData:   true,
		VerifySigner: true,
		VerifyChain:  true,
	}
	HighSecurity = Policy{
		Name:         "HighSecurity",
		OnlySigned:   true,
		OnlyTrusted:  true,
		VerifyChain:  true,
		VerifyData:   true,
		VerifyRoot:   true,
		VerifySigner: true,
	}
)

// Named returns one of the five presets by name, cloned so the caller can
// attach a TrustStore without mutating the package-level value.
func Named(name string) (*Policy, bool) {
	presets := map[string]Policy{
		NoSecurity.Name:       NoSecurity,
		AlmostNoSecurity.Name: AlmostNoSecurity,
		LowSecurity.Name:      LowSecurity,
		MediumSecurity.Name:   MediumSecurity,
		HighSecurity.Name:     HighSecurity,
	}
	p, ok := presets[name]
	if !ok {
		return nil, false
	}
	return &p, true
}

// WithTrustStore returns a copy of p with its TrustStore set.
func (p Policy) WithTrustStore(ts TrustStore) *Policy {
	p.TrustStore = ts
	return &p
}

// Verify runs the toggle-gated algorithm against chain, an optional
// caller-expected key, and the digests/signatures collected by a
// PackageReader scan. now is captured once, at entry.
func (p *Policy) Verify(chain *certchain.Chain, key *rsa.PublicKey, digests map[string]digest.Digest, signatures map[string][]byte) error {
	now := time.Now()

	if p.OnlySigned && len(signatures) == 0 {
		return newErr(KindUnsignedRejected, "", "package has no signatures but policy requires signing")
	}

	signerCert := chain.Leaf()
	if signerCert == nil && (key != nil || p.VerifySigner || (p.VerifyData && len(digests) > 0)) {
		return newErr(KindIssuerMismatch, "", "certificate chain is empty")
	}

	if key != nil {
		if err := checkKey(signerCert, key); err != nil {
			return err
		}
	}

	if p.VerifySigner {
		if err := checkCert(signerCert, nil, now); err != nil {
			return err
		}
	}

	if p.VerifyChain {
		for i := 1; i < len(chain.Certs); i++ {
			if err := checkCert(chain.Certs[i], chain.Certs[i-1], now); err != nil {
				return err
			}
		}
	}

	if p.VerifyRoot {
		if err := checkRoot(chain, now); err != nil {
			return err
		}
	}

	if p.OnlyTrusted {
		if err := p.checkTrust(chain); err != nil {
			return err
		}
	}

	if p.VerifyData {
		for name, d := range digests {
			sig, ok := signatures[name]
			if !ok {
				return newErr(KindMissingSignature, name, "no signature found for member")
			}
			if err := checkSignature(signerCert, d, sig); err != nil {
				return newErr(KindBadSignature, name, "signature verification failed: %v", err)
			}
		}
	}

	return nil
}

func checkKey(signerCert *certchain.Certificate, key *rsa.PublicKey) error {
	pub := signerCert.PublicKey()
	if pub == nil || pub.N.Cmp(key.N) != 0 || pub.E != key.E {
		return newErr(KindKeyChainMismatch, signerCert.Subject(), "signer certificate public key does not match provided key")
	}
	return nil
}

// checkCert validates signer's validity window and, if issuer is
// provided, that signer verifies against issuer's public key.
func checkCert(signer *certchain.Certificate, issuer *certchain.Certificate, now time.Time) error {
	if signer.NotBefore().After(now) {
		return newErr(KindNotYetValid, signer.Subject(), "certificate not valid until %s", signer.NotBefore())
	}
	if signer.NotAfter().Before(now) {
		return newErr(KindExpired, signer.Subject(), "certificate expired at %s", signer.NotAfter())
	}
	if issuer != nil && !signer.VerifyIssuedBy(issuer) {
		return newErr(KindIssuerMismatch, signer.Subject(), "signature does not verify against issuer %s", issuer.Subject())
	}
	return nil
}

func checkRoot(chain *certchain.Chain, now time.Time) error {
	root := chain.Root()
	if root == nil {
		return newErr(KindNonSelfSignedRoot, "", "certificate chain is empty")
	}
	if !root.IsSelfSigned() {
		return newErr(KindNonSelfSignedRoot, root.Subject(), "root certificate is not self-signed")
	}
	return checkCert(root, root, now)
}

func (p *Policy) checkTrust(chain *certchain.Chain) error {
	root := chain.Root()
	if root == nil || p.TrustStore == nil {
		return newErr(KindUntrustedRoot, "", "no root certificate to check against trust store")
	}
	stored, err := p.TrustStore.Lookup(root)
	if err != nil {
		return newErr(KindUntrustedRoot, root.Subject(), "trust store lookup failed: %v", err)
	}
	if stored == nil {
		return newErr(KindUntrustedRoot, root.Subject(), "root certificate is not present in the trust store")
	}
	match, err := p.TrustStore.DigestMatches(stored, root)
	if err != nil {
		return newErr(KindTrustDigestMismatch, root.Subject(), "digest comparison failed: %v", err)
	}
	if !match {
		return newErr(KindTrustDigestMismatch, root.Subject(), "stored root's public key digest does not match presented root")
	}
	return nil
}

func checkSignature(signerCert *certchain.Certificate, d digest.Digest, sig []byte) error {
	pub := signerCert.PublicKey()
	if pub == nil {
		return errInvalidKey
	}
	raw, err := hex.DecodeString(d.Encoded())
	if err != nil {
		return errInvalidKey
	}
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, raw, sig)
}

var errInvalidKey = &Error{Kind: KindBadSignature, Detail: "signer certificate has no usable public key"}
