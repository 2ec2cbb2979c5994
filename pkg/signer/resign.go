package signer

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"os"
	"time"

	"pkgsign/internal/errors"
	"pkgsign/pkg/certchain"
)

// resignKey implements the re-sign state machine, triggered only when
// the chain has a single expired self-signed certificate. All three
// preconditions must hold before anything on disk is touched:
//
//  1. the on-disk private key at the conventional path matches the
//     in-memory key byte-for-byte;
//  2. the on-disk cert at the conventional path matches the in-memory
//     expired cert byte-for-byte;
//  3. no archival file already exists for this cert's expiry timestamp.
//
// These preconditions make renewal idempotent: a user-installed CA cert at
// the conventional path is never silently overwritten, and a second call
// within the same second cannot double-archive.
func (s *Signer) resignKey() error {
	expired := s.chain.Certs[0]

	onDiskKey, err := os.ReadFile(s.paths.PrivateKey)
	if err != nil {
		return errors.IOf(err, "read conventional private key")
	}
	if !bytes.Equal(onDiskKey, encodeKeyPEM(s.key)) {
		return errors.InvalidInputf("on-disk private key does not match signer's key; refusing to renew")
	}

	onDiskCert, err := os.ReadFile(s.paths.PublicCert)
	if err != nil {
		return errors.IOf(err, "read conventional certificate")
	}
	if !bytes.Equal(onDiskCert, expired.Encode()) {
		return errors.InvalidInputf("on-disk certificate does not match signer's expired certificate; refusing to renew")
	}

	archivePath := s.paths.ExpiredArchivePath(expired.NotAfter())
	if _, err := os.Stat(archivePath); err == nil {
		return errors.InvalidInputf("archival file %s already exists; refusing to renew twice", archivePath)
	} else if !os.IsNotExist(err) {
		return errors.IOf(err, "stat archival path")
	}

	newCert, err := selfSign(s.key, expired.X509.Subject, s.resignValidity)
	if err != nil {
		return errors.Wrap(err, "issue renewed self-signed certificate")
	}

	if err := os.Rename(s.paths.PublicCert, archivePath); err != nil {
		return errors.IOf(err, "archive expired certificate")
	}
	if err := os.WriteFile(s.paths.PublicCert, newCert.Encode(), 0o644); err != nil {
		return errors.IOf(err, "write renewed certificate")
	}

	s.chain = &certchain.Chain{Certs: []*certchain.Certificate{newCert}}
	s.logger.Info("renewed expired self-signed certificate", map[string]interface{}{
		"subject":      newCert.Subject(),
		"archived_to":  archivePath,
		"new_not_after": newCert.NotAfter(),
	})
	return nil
}

// selfSign issues a new self-signed certificate for key and subject,
// valid from now for the given duration.
func selfSign(key *rsa.PrivateKey, subject pkix.Name, validity time.Duration) (*certchain.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, errors.Wrap(err, "generate serial number")
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               subject,
		Issuer:                subject,
		NotBefore:             now,
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, errors.Wrap(err, "create certificate")
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, errors.Wrap(err, "parse renewed certificate")
	}
	return &certchain.Certificate{X509: cert}, nil
}
