// Package truststore implements a content-addressed directory of trusted
// root certificates: PEM certificates stored at a path derived from a
// digest of the certificate's public key, looked up by subject DN but
// trusted only when the digest matches.
package truststore

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	digest "github.com/opencontainers/go-digest"

	"pkgsign/internal/errors"
	"pkgsign/internal/log"
	"pkgsign/pkg/certchain"
)

// TrustStore is a directory of trusted root certificates.
type TrustStore struct {
	dir    string
	logger log.Logger

	mu    sync.RWMutex
	cache map[uint64]*certchain.Certificate // subject-DN xxhash -> cert, non-security-bearing
}

// New creates a TrustStore rooted at dir. The directory is not created
// until Add is first called.
func New(dir string, logger log.Logger) *TrustStore {
	return &TrustStore{dir: dir, logger: logger, cache: map[uint64]*certchain.Certificate{}}
}

// Dir returns the trust store's root directory.
func (t *TrustStore) Dir() string { return t.dir }

// digestPublicKey returns the content-address of a certificate's public
// key, used both as the on-disk filename and as the value trust
// comparisons are made against.
func digestPublicKey(cert *certchain.Certificate) (digest.Digest, error) {
	key := cert.PublicKey()
	if key == nil {
		return "", errors.InvalidInputf("certificate has no RSA public key")
	}
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", errors.Wrap(err, "marshal public key")
	}
	return digest.FromBytes(der), nil
}

// CertPath returns the deterministic on-disk path for cert, derived from
// a digest over its public key.
func (t *TrustStore) CertPath(cert *certchain.Certificate) (string, error) {
	d, err := digestPublicKey(cert)
	if err != nil {
		return "", err
	}
	return filepath.Join(t.dir, d.Algorithm().String(), d.Encoded()+".pem"), nil
}

func subjectCacheKey(subject string) uint64 {
	return xxhash.Sum64String(subject)
}

// IssuerOf scans the store for a trusted certificate whose subject equals
// cert's issuer, returning (nil, nil) if none is found — an open chain is
// not an error.
func (t *TrustStore) IssuerOf(cert *certchain.Certificate) (*certchain.Certificate, error) {
	key := subjectCacheKey(cert.Issuer())

	t.mu.RLock()
	if cached, ok := t.cache[key]; ok {
		t.mu.RUnlock()
		return cached, nil
	}
	t.mu.RUnlock()

	entries, err := os.ReadDir(t.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.IOf(err, "read trust store %s", t.dir)
	}

	for _, algDir := range entries {
		if !algDir.IsDir() {
			continue
		}
		sub := filepath.Join(t.dir, algDir.Name())
		files, err := os.ReadDir(sub)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			data, err := os.ReadFile(filepath.Join(sub, f.Name()))
			if err != nil {
				continue
			}
			candidate, err := certchain.ParseCertificate(data)
			if err != nil {
				continue
			}
			if candidate.Subject() == cert.Issuer() {
				t.mu.Lock()
				t.cache[key] = candidate
				t.mu.Unlock()
				return candidate, nil
			}
		}
	}
	return nil, nil
}

// DigestMatches reports whether storedRoot (located via CertPath)
// has the same public-key digest as presentedRoot — the check HighSecurity
// policy performs to reject a subject-DN collision.
func (t *TrustStore) DigestMatches(storedRoot, presentedRoot *certchain.Certificate) (bool, error) {
	d1, err := digestPublicKey(storedRoot)
	if err != nil {
		return false, err
	}
	d2, err := digestPublicKey(presentedRoot)
	if err != nil {
		return false, err
	}
	return d1 == d2, nil
}

// Lookup loads the stored certificate at cert's CertPath, or returns
// (nil, nil) if absent.
func (t *TrustStore) Lookup(cert *certchain.Certificate) (*certchain.Certificate, error) {
	path, err := t.CertPath(cert)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.IOf(err, "read trusted root %s", path)
	}
	return certchain.ParseCertificate(data)
}

// Add writes cert into the store at its content-addressed path.
func (t *TrustStore) Add(cert *certchain.Certificate) error {
	path, err := t.CertPath(cert)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.IOf(err, "create trust store directory")
	}
	if err := os.WriteFile(path, cert.Encode(), 0o644); err != nil {
		return errors.IOf(err, "write trusted root %s", path)
	}
	t.mu.Lock()
	t.cache[subjectCacheKey(cert.Subject())] = cert
	t.mu.Unlock()
	t.logger.Info("added trusted root", map[string]interface{}{"subject": cert.Subject(), "path": path})
	return nil
}

// Remove deletes cert from the store.
func (t *TrustStore) Remove(cert *certchain.Certificate) error {
	path, err := t.CertPath(cert)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.IOf(err, "remove trusted root %s", path)
	}
	t.mu.Lock()
	delete(t.cache, subjectCacheKey(cert.Subject()))
	t.mu.Unlock()
	return nil
}

// List returns every certificate currently stored.
func (t *TrustStore) List() ([]*certchain.Certificate, error) {
	var out []*certchain.Certificate
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.IOf(err, "read trust store %s", t.dir)
	}
	for _, algDir := range entries {
		if !algDir.IsDir() {
			continue
		}
		sub := filepath.Join(t.dir, algDir.Name())
		files, err := os.ReadDir(sub)
		if err != nil {
			continue
		}
		for _, f := range files {
			data, err := os.ReadFile(filepath.Join(sub, f.Name()))
			if err != nil {
				continue
			}
			cert, err := certchain.ParseCertificate(data)
			if err != nil {
				continue
			}
			out = append(out, cert)
		}
	}
	return out, nil
}
