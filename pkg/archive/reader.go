package archive

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	digest "github.com/opencontainers/go-digest"

	"pkgsign/internal/errors"
	"pkgsign/internal/log"
	"pkgsign/pkg/policy"
	"pkgsign/pkg/specmodel"
)

// Reader streams an outer archive file, classifying members, collecting
// digests/signatures/checksums, and delegating to a Policy.
type Reader struct {
	path   string
	policy *policy.Policy
	logger log.Logger

	files      []string
	digests    map[string]digest.Digest
	hashers    map[string]*multiHasher
	signatures map[string][]byte
	checksums  map[string]string
	spec       *specmodel.Specification

	verified bool
}

// NewReader opens path for verification/extraction. policy may be nil, in
// which case .sig members are skipped and no signature is checked.
func NewReader(path string, pol *policy.Policy, logger log.Logger) *Reader {
	if logger == nil {
		logger = log.Global()
	}
	return &Reader{
		path:       path,
		policy:     pol,
		logger:     logger,
		digests:    map[string]digest.Digest{},
		hashers:    map[string]*multiHasher{},
		signatures: map[string][]byte{},
		checksums:  map[string]string{},
	}
}

// Spec returns the parsed Specification. Valid only after Verify.
func (r *Reader) Spec() *specmodel.Specification { return r.spec }

// Files returns every member name observed in the outer archive.
func (r *Reader) Files() []string { return r.files }

// Verify runs the full scan-then-policy algorithm.
func (r *Reader) Verify() error {
	f, err := os.Open(r.path)
	if err != nil {
		return errors.IOf(err, "open archive %s", r.path)
	}
	defer f.Close()

	header := make([]byte, 20)
	n, _ := io.ReadFull(f, header)
	if isLegacyFormat(header[:n]) {
		return ErrLegacyFormat
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return errors.IOf(err, "rewind archive %s", r.path)
	}

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Formatf("read archive entry: %v", err)
		}

		r.files = append(r.files, hdr.Name)

		switch {
		case strings.HasSuffix(hdr.Name, ".sig"):
			if r.policy == nil {
				continue
			}
			body, err := io.ReadAll(tr)
			if err != nil {
				return errors.IOf(err, "read signature %s", hdr.Name)
			}
			r.signatures[strings.TrimSuffix(hdr.Name, ".sig")] = body

		case strings.HasSuffix(hdr.Name, ".sum"):
			body, err := io.ReadAll(tr)
			if err != nil {
				return errors.IOf(err, "read checksum %s", hdr.Name)
			}
			r.checksums[strings.TrimSuffix(hdr.Name, ".sum")] = string(body)

		default:
			if err := r.digestMember(hdr.Name, tr); err != nil {
				return err
			}
		}
	}

	if r.spec == nil {
		return errors.Formatf("package metadata is missing")
	}
	if _, ok := r.digests["data.tar.gz"]; !ok {
		return errors.Formatf("package content missing")
	}

	if err := r.verifyChecksums(); err != nil {
		return err
	}

	if r.policy != nil {
		if err := r.policy.VerifySignatures(r.spec, r.digests, r.signatures); err != nil {
			return err
		}
	}

	r.verified = true
	return nil
}

// digestMember computes a member's digest (and, for recognized names,
// parses/validates its content) in one streaming pass.
func (r *Reader) digestMember(name string, body io.Reader) error {
	mh := newMultiHasher()
	tee := io.TeeReader(body, mh)

	switch name {
	case "metadata", "metadata.gz":
		data, err := io.ReadAll(tee)
		if err != nil {
			return errors.IOf(err, "read metadata")
		}
		yamlBytes := data
		if name == "metadata.gz" {
			gz, err := gzip.NewReader(strings.NewReader(string(data)))
			if err != nil {
				return errors.Formatf("metadata.gz is not valid gzip: %v", err)
			}
			yamlBytes, err = io.ReadAll(gz)
			if err != nil {
				return errors.Formatf("metadata.gz failed CRC/format validation: %v", err)
			}
		}
		spec, err := specmodel.FromYAML(yamlBytes)
		if err != nil {
			return err
		}
		r.spec = spec

	case "data.tar.gz":
		gz, err := gzip.NewReader(tee)
		if err != nil {
			return errors.Formatf("data.tar.gz is not valid gzip: %v", err)
		}
		if _, err := io.Copy(io.Discard, gz); err != nil {
			return errors.Formatf("data.tar.gz failed CRC/format validation: %v", err)
		}

	default:
		if _, err := io.Copy(io.Discard, tee); err != nil {
			return errors.IOf(err, "digest member %s", name)
		}
	}

	r.hashers[name] = mh
	r.digests[name] = mh.Default()
	return nil
}

// verifyChecksums implements the algorithm-agile .sum check: each line is
// parsed as "<alg>\t<hex>" and cross-checked against the recomputed
// digest for that specific algorithm. Missing checksums are advisory
// only and ignored.
func (r *Reader) verifyChecksums() error {
	for name, line := range r.checksums {
		parts := strings.SplitN(strings.TrimSpace(line), "\t", 2)
		if len(parts) != 2 {
			return errors.Formatf("malformed checksum line for %s", name)
		}
		alg, hex := digest.Algorithm(parts[0]), parts[1]

		mh, ok := r.hashers[name]
		if !ok {
			continue // no corresponding member was scanned; nothing to check
		}
		want := mh.Digest(alg)
		if want == "" {
			continue // algorithm not supported by this reader; ignore
		}
		if want.Encoded() != hex {
			return errors.Formatf("checksum mismatch for %s", name)
		}
	}
	return nil
}

// ExtractFiles extracts data.tar.gz into destDir: Verify is invoked first
// if it has not already run, and every entry is routed through
// InstallLocation's path-safety check.
func (r *Reader) ExtractFiles(destDir string) error {
	if !r.verified {
		if err := r.Verify(); err != nil {
			return err
		}
	}

	f, err := os.Open(r.path)
	if err != nil {
		return errors.IOf(err, "open archive %s", r.path)
	}
	defer f.Close()

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return errors.Formatf("package content missing")
		}
		if err != nil {
			return errors.Formatf("read archive entry: %v", err)
		}
		if hdr.Name == "data.tar.gz" {
			break
		}
	}

	gz, err := gzip.NewReader(tr)
	if err != nil {
		return errors.Formatf("data.tar.gz is not valid gzip: %v", err)
	}

	itr := tar.NewReader(gz)
	for {
		hdr, err := itr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Formatf("read inner archive entry: %v", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if err := extractEntry(itr, hdr, destDir); err != nil {
			return err
		}
	}
}

func extractEntry(r io.Reader, hdr *tar.Header, destDir string) error {
	target, err := InstallLocation(hdr.Name, destDir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.IOf(err, "create directory for %s", target)
	}
	if err := os.RemoveAll(target); err != nil {
		return errors.IOf(err, "remove existing file %s", target)
	}

	mode := os.FileMode(hdr.Mode)
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return errors.IOf(err, "create %s", target)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return errors.IOf(err, "write %s", target)
	}
	return nil
}
