package specmodel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() *Specification {
	return &Specification{
		Name:    "widget",
		Version: "1.2.3",
		Summary: "a widget package",
		Authors: []string{"team"},
		Files:   []FileEntry{{Path: "bin/widget", Source: "/tmp/widget"}},
	}
}

func TestValidate(t *testing.T) {
	s := validSpec()
	assert.NoError(t, s.Validate())
}

func TestValidateMissingName(t *testing.T) {
	s := validSpec()
	s.Name = ""
	assert.Error(t, s.Validate())
}

func TestValidateNoFiles(t *testing.T) {
	s := validSpec()
	s.Files = nil
	assert.Error(t, s.Validate())
}

func TestValidateMissingVersion(t *testing.T) {
	s := validSpec()
	s.Version = ""
	assert.Error(t, s.Validate())
}

func TestValidateBadVersion(t *testing.T) {
	s := validSpec()
	s.Version = "not-a-version"
	assert.Error(t, s.Validate())
}

func TestClone(t *testing.T) {
	s := validSpec()
	s.CertChain = []string{"pem-one", "pem-two"}

	clone := s.Clone()
	clone.Files[0].Path = "changed"
	clone.CertChain[0] = "mutated"

	assert.Equal(t, "bin/widget", s.Files[0].Path)
	assert.Equal(t, "pem-one", s.CertChain[0])
}

func TestMarkVersion(t *testing.T) {
	s := validSpec()
	require.NoError(t, s.MarkVersion())
	assert.Equal(t, "1.2.4", s.Version)
}

func TestMarkVersionInvalid(t *testing.T) {
	s := validSpec()
	s.Version = "garbage"
	assert.Error(t, s.MarkVersion())
}

func TestToYAMLFromYAMLRoundTrip(t *testing.T) {
	s := validSpec()
	s.SigningKey = "should-not-round-trip-if-cleared"

	data, err := s.ToYAML()
	require.NoError(t, err)

	parsed, err := FromYAML(data)
	require.NoError(t, err)
	assert.Equal(t, s.Name, parsed.Name)
	assert.Equal(t, s.Version, parsed.Version)
	assert.Equal(t, s.Files, parsed.Files)
}

func TestLoad(t *testing.T) {
	s := validSpec()
	data, err := s.ToYAML()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "spec.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s.Name, loaded.Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
