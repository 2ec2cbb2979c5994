package signer

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"

	"pkgsign/internal/errors"
	"pkgsign/pkg/certchain"
)

// CertSourceKind tags the representation a CertSource carries: a parsed
// certificate, raw PEM bytes, or a path to load from disk.
type CertSourceKind int

const (
	CertSourceParsed CertSourceKind = iota
	CertSourcePEM
	CertSourcePath
)

// CertSource is a tagged union of the three ways a caller may hand the
// Signer a chain element: an already-parsed Certificate, raw PEM bytes, or
// a filesystem path to read.
type CertSource struct {
	Kind CertSourceKind
	Cert *certchain.Certificate
	PEM  []byte
	Path string
}

// ParsedCertSource wraps an already-parsed certificate.
func ParsedCertSource(cert *certchain.Certificate) CertSource {
	return CertSource{Kind: CertSourceParsed, Cert: cert}
}

// PEMCertSource wraps raw PEM bytes.
func PEMCertSource(pemBytes []byte) CertSource {
	return CertSource{Kind: CertSourcePEM, PEM: pemBytes}
}

// PathCertSource wraps a filesystem path to a PEM certificate file.
func PathCertSource(path string) CertSource {
	return CertSource{Kind: CertSourcePath, Path: path}
}

// normalize resolves a CertSource to a parsed Certificate: pass through
// if already parsed, else read the file if the string names an existing
// file, else treat it as raw PEM bytes.
func (s CertSource) normalize() (*certchain.Certificate, error) {
	switch s.Kind {
	case CertSourceParsed:
		if s.Cert == nil {
			return nil, errors.InvalidInputf("parsed cert source is nil")
		}
		return s.Cert, nil
	case CertSourcePEM:
		return certchain.ParseCertificate(s.PEM)
	case CertSourcePath:
		if _, err := os.Stat(s.Path); err == nil {
			data, err := os.ReadFile(s.Path)
			if err != nil {
				return nil, errors.IOf(err, "read certificate %s", s.Path)
			}
			return certchain.ParseCertificate(data)
		}
		// Not an existing file: treat the string itself as PEM bytes.
		return certchain.ParseCertificate([]byte(s.Path))
	default:
		return nil, errors.InvalidInputf("unknown cert source kind %d", s.Kind)
	}
}

// KeySourceKind tags the representation a KeySource carries.
type KeySourceKind int

const (
	KeySourceParsed KeySourceKind = iota
	KeySourcePEM
	KeySourcePath
)

// KeySource is the equivalent tagged union for the RSA private key input.
type KeySource struct {
	Kind KeySourceKind
	Key  *rsa.PrivateKey
	PEM  []byte
	Path string
}

// ParsedKeySource wraps an already-parsed private key.
func ParsedKeySource(key *rsa.PrivateKey) KeySource {
	return KeySource{Kind: KeySourceParsed, Key: key}
}

// PEMKeySource wraps raw PEM bytes.
func PEMKeySource(pemBytes []byte) KeySource {
	return KeySource{Kind: KeySourcePEM, PEM: pemBytes}
}

// PathKeySource wraps a filesystem path to a PEM private key file.
func PathKeySource(path string) KeySource {
	return KeySource{Kind: KeySourcePath, Path: path}
}

func parseRSAKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.Formatf("no PEM block found in private key data")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.InvalidInputf("private key is not RSA")
	}
	return rsaKey, nil
}

func (s KeySource) normalize() (*rsa.PrivateKey, error) {
	switch s.Kind {
	case KeySourceParsed:
		if s.Key == nil {
			return nil, errors.InvalidInputf("parsed key source is nil")
		}
		return s.Key, nil
	case KeySourcePEM:
		return parseRSAKeyPEM(s.PEM)
	case KeySourcePath:
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, errors.IOf(err, "read private key %s", s.Path)
		}
		return parseRSAKeyPEM(data)
	default:
		return nil, errors.InvalidInputf("unknown key source kind %d", s.Kind)
	}
}

func encodeKeyPEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}
