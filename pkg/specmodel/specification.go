// Package specmodel holds the specification object model: a structured
// record of a package's name, version, file list, and descriptive
// metadata. The signed-package core
// (pkg/archive, pkg/signer, pkg/policy) only serializes this object and
// reads it back; it never interprets the descriptive fields itself.
package specmodel

import (
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"pkgsign/internal/errors"
)

// FileEntry describes one payload file that will be stored in data.tar.gz.
type FileEntry struct {
	// Path is the archive-relative path this file is installed to.
	Path string `yaml:"path"`
	// Source is the on-disk path read when building; empty when the
	// Specification was parsed back from an archive (the payload already
	// lives in data.tar.gz, not alongside the spec).
	Source string `yaml:"-"`
}

// Specification is the structured record bundled as metadata(.gz) in the
// outer archive.
type Specification struct {
	Name        string      `yaml:"name"`
	Version     string      `yaml:"version"`
	Summary     string      `yaml:"summary,omitempty"`
	Authors     []string    `yaml:"authors,omitempty"`
	Files       []FileEntry `yaml:"files"`
	Requirements []string   `yaml:"requirements,omitempty"`

	// SigningKey, when set, is a path or PEM blob of the RSA private key to
	// sign with. It must never survive serialization: Build clears it on
	// its local copy before calling ToYAML.
	SigningKey string `yaml:"signing_key,omitempty"`

	// CertChain is the PEM-serialized certificate chain, root first, leaf
	// last. The builder replaces this with the Signer's closed chain
	// before serializing.
	CertChain []string `yaml:"cert_chain,omitempty"`
}

// Clone returns a deep copy, so PackageBuilder can mutate SigningKey/
// CertChain without affecting the caller's Specification value.
func (s *Specification) Clone() *Specification {
	clone := *s
	clone.Files = append([]FileEntry(nil), s.Files...)
	clone.Authors = append([]string(nil), s.Authors...)
	clone.Requirements = append([]string(nil), s.Requirements...)
	clone.CertChain = append([]string(nil), s.CertChain...)
	return &clone
}

// Validate checks the Specification is well-formed enough to build: a
// name, at least one file, and a valid semantic version.
func (s *Specification) Validate() error {
	if s.Name == "" {
		return errors.InvalidInputf("specification name is required")
	}
	if len(s.Files) == 0 {
		return errors.InvalidInputf("specification %s has no files", s.Name)
	}
	if s.Version == "" {
		return errors.InvalidInputf("specification %s has no version", s.Name)
	}
	if _, err := semver.NewVersion(s.Version); err != nil {
		return errors.InvalidInputf("specification %s has invalid version %q: %v", s.Name, s.Version, err)
	}
	return nil
}

// MarkVersion bumps the patch component of Version, rejecting the
// operation if the current version does not parse.
func (s *Specification) MarkVersion() error {
	v, err := semver.NewVersion(s.Version)
	if err != nil {
		return errors.InvalidInputf("cannot mark version on %q: %v", s.Version, err)
	}
	next := v.IncPatch()
	s.Version = next.String()
	return nil
}

// ToYAML serializes the Specification.
func (s *Specification) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "marshal specification")
	}
	return data, nil
}

// FromYAML parses a Specification previously produced by ToYAML.
func FromYAML(data []byte) (*Specification, error) {
	var s Specification
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Formatf("parse specification: %v", err)
	}
	return &s, nil
}

// Load reads and parses a Specification from a YAML file on disk.
func Load(path string) (*Specification, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IOf(err, "read specification %s", path)
	}
	return FromYAML(data)
}
