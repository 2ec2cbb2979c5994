package signer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConventionalFiles(t *testing.T, dir string, key []byte, cert []byte) ConventionalPaths {
	t.Helper()
	paths := ResolveConventionalPaths(dir)
	require.NoError(t, os.WriteFile(paths.PrivateKey, key, 0o600))
	require.NoError(t, os.WriteFile(paths.PublicCert, cert, 0o644))
	return paths
}

func TestCheckExpiryRenewsExpiredSelfSignedCert(t *testing.T) {
	key, cert := generateKeyAndCert(t, "svc", time.Now().Add(-48*time.Hour), time.Now().Add(-time.Hour))
	dir := t.TempDir()
	paths := writeConventionalFiles(t, dir, encodeKeyPEM(key), cert.Encode())

	keySrc := ParsedKeySource(key)
	s, err := New(&keySrc, []CertSource{ParsedCertSource(cert)}, WithConventionalPaths(paths), WithResignValidity(time.Hour))
	require.NoError(t, err)

	require.NoError(t, s.CheckExpiry())

	renewed := s.Chain().Leaf()
	assert.True(t, renewed.NotAfter().After(time.Now()))
	assert.Equal(t, cert.Subject(), renewed.Subject())

	archived := paths.ExpiredArchivePath(cert.NotAfter())
	_, err = os.Stat(archived)
	assert.NoError(t, err, "expired cert should be archived")

	onDiskCert, err := os.ReadFile(paths.PublicCert)
	require.NoError(t, err)
	assert.Equal(t, renewed.Encode(), onDiskCert)
}

func TestCheckExpiryNoOpWhenNotExpired(t *testing.T) {
	key, cert := generateKeyAndCert(t, "svc", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	dir := t.TempDir()
	paths := writeConventionalFiles(t, dir, encodeKeyPEM(key), cert.Encode())

	keySrc := ParsedKeySource(key)
	s, err := New(&keySrc, []CertSource{ParsedCertSource(cert)}, WithConventionalPaths(paths))
	require.NoError(t, err)

	require.NoError(t, s.CheckExpiry())
	assert.Equal(t, cert.Subject(), s.Chain().Leaf().Subject())
	assert.Equal(t, cert.NotAfter(), s.Chain().Leaf().NotAfter())
}

func TestCheckExpiryRefusesWhenOnDiskKeyDiffers(t *testing.T) {
	key, cert := generateKeyAndCert(t, "svc", time.Now().Add(-48*time.Hour), time.Now().Add(-time.Hour))
	otherKey, _ := generateKeyAndCert(t, "other", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	dir := t.TempDir()
	paths := writeConventionalFiles(t, dir, encodeKeyPEM(otherKey), cert.Encode())

	keySrc := ParsedKeySource(key)
	s, err := New(&keySrc, []CertSource{ParsedCertSource(cert)}, WithConventionalPaths(paths))
	require.NoError(t, err)

	err = s.CheckExpiry()
	assert.Error(t, err, "must refuse to renew when on-disk key does not match")
	assert.Equal(t, cert.NotAfter(), s.Chain().Leaf().NotAfter(), "chain must be left untouched")
}

func TestCheckExpiryRefusesDoubleArchive(t *testing.T) {
	key, cert := generateKeyAndCert(t, "svc", time.Now().Add(-48*time.Hour), time.Now().Add(-time.Hour))
	dir := t.TempDir()
	paths := writeConventionalFiles(t, dir, encodeKeyPEM(key), cert.Encode())
	require.NoError(t, os.MkdirAll(filepath.Dir(paths.ExpiredArchivePath(cert.NotAfter())), 0o755))
	require.NoError(t, os.WriteFile(paths.ExpiredArchivePath(cert.NotAfter()), []byte("already archived"), 0o644))

	keySrc := ParsedKeySource(key)
	s, err := New(&keySrc, []CertSource{ParsedCertSource(cert)}, WithConventionalPaths(paths))
	require.NoError(t, err)

	err = s.CheckExpiry()
	assert.Error(t, err)
}
