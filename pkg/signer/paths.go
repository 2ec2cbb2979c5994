package signer

import (
	"path/filepath"
	"time"
)

// ConventionalPaths are the default filesystem locations for the signing
// key and public certificate, resolved as a pure function of a home
// directory rather than read from $HOME directly.
type ConventionalPaths struct {
	PrivateKey string
	PublicCert string
}

// ResolveConventionalPaths returns the conventional key/cert paths rooted
// at home.
func ResolveConventionalPaths(home string) ConventionalPaths {
	return ConventionalPaths{
		PrivateKey: filepath.Join(home, "gem-private_key.pem"),
		PublicCert: filepath.Join(home, "gem-public_cert.pem"),
	}
}

// ExpiredArchivePath returns the archival path an expired cert is moved to
// during re-signing, timestamped with its own NotAfter.
func (p ConventionalPaths) ExpiredArchivePath(notAfter time.Time) string {
	return p.PublicCert + ".expired." + notAfter.UTC().Format("20060102150405")
}
