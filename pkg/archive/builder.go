// Package archive implements the outer archive container: the
// PackageBuilder that assembles it and the PackageReader that streams,
// verifies, and extracts it.
package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"

	"github.com/google/uuid"

	"pkgsign/internal/errors"
	"pkgsign/internal/log"
	"pkgsign/pkg/digestio"
	"pkgsign/pkg/signer"
	"pkgsign/pkg/specmodel"
)

// Builder assembles the outer archive: metadata, compressed payload, and
// per-member signature sidecars.
type Builder struct {
	Signer *signer.Signer
	Logger log.Logger
}

// NewBuilder constructs a Builder using s to sign members. s may be an
// unsigned Signer (no key), in which case no .sig sidecars are emitted.
func NewBuilder(s *signer.Signer, logger log.Logger) *Builder {
	if logger == nil {
		logger = log.Global()
	}
	return &Builder{Signer: s, Logger: logger}
}

// Build assembles spec into an outer archive at destPath:
//  1. validate a builder-local clone of spec;
//  2. if the clone's SigningKey is set, construct a Signer from that key
//     and the clone's CertChain, overriding the Builder's configured
//     Signer for this build;
//  3. clear the clone's SigningKey (it must never be serialized) and
//     replace its CertChain with the effective Signer's closed chain;
//  4. emit metadata.gz then data.tar.gz, each via a DigestingWriter that
//     emits a <name>.sig sidecar when the Signer has a key;
//  5. close all streams.
func (b *Builder) Build(spec *specmodel.Specification, destPath string) error {
	clone := spec.Clone()
	if err := clone.Validate(); err != nil {
		return err
	}

	s := b.Signer
	if clone.SigningKey != "" {
		built, err := signerFromSpec(clone)
		if err != nil {
			return errors.Wrap(err, "construct signer from specification signing_key")
		}
		s = built
	}

	clone.SigningKey = ""
	if chain := s.Chain(); chain != nil && len(chain.Certs) > 0 {
		clone.CertChain = chain.EncodePEMs()
	}

	buildID := uuid.NewString()
	b.Logger.Info("building package", map[string]interface{}{
		"build_id": buildID,
		"name":     clone.Name,
		"version":  clone.Version,
		"signed":   s.HasKey(),
	})

	out, err := os.Create(destPath)
	if err != nil {
		return errors.IOf(err, "create archive %s", destPath)
	}
	defer out.Close()

	tw := tar.NewWriter(out)
	defer tw.Close()

	metadataGz, err := gzipYAML(clone)
	if err != nil {
		return err
	}
	if err := b.writeSignedMember(tw, s, "metadata.gz", metadataGz); err != nil {
		return err
	}

	dataTarGzPath, size, err := b.buildInnerPayload(clone)
	if err != nil {
		return err
	}
	defer os.Remove(dataTarGzPath)

	if err := b.writeSignedStreamMember(tw, s, "data.tar.gz", dataTarGzPath, size); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return errors.IOf(err, "finalize archive")
	}
	b.Logger.Info("package built", map[string]interface{}{"build_id": buildID, "path": destPath})
	return nil
}

// signerFromSpec constructs a Signer from spec.SigningKey (a filesystem
// path or raw PEM blob) and spec.CertChain, per the builder's resolution
// rule for a caller-supplied signing key.
func signerFromSpec(spec *specmodel.Specification) (*signer.Signer, error) {
	var keySrc signer.KeySource
	if _, err := os.Stat(spec.SigningKey); err == nil {
		keySrc = signer.PathKeySource(spec.SigningKey)
	} else {
		keySrc = signer.PEMKeySource([]byte(spec.SigningKey))
	}

	certSrcs := make([]signer.CertSource, 0, len(spec.CertChain))
	for _, pemCert := range spec.CertChain {
		certSrcs = append(certSrcs, signer.PEMCertSource([]byte(pemCert)))
	}

	return signer.New(&keySrc, certSrcs)
}

func gzipYAML(spec *specmodel.Specification) ([]byte, error) {
	yamlBytes, err := spec.ToYAML()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(yamlBytes); err != nil {
		return nil, errors.Wrap(err, "gzip metadata")
	}
	if err := gz.Close(); err != nil {
		return nil, errors.Wrap(err, "finalize metadata gzip")
	}
	return buf.Bytes(), nil
}

// writeSignedMember writes a small, fully in-memory member (metadata.gz)
// and its .sig sidecar.
func (b *Builder) writeSignedMember(tw *tar.Writer, s *signer.Signer, name string, data []byte) error {
	dw := digestio.NewDigestingWriter(io.Discard, s)
	if _, err := dw.Write(data); err != nil {
		return err
	}
	if err := dw.Close(); err != nil {
		return err
	}

	if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(data))}); err != nil {
		return errors.IOf(err, "write %s header", name)
	}
	if _, err := tw.Write(data); err != nil {
		return errors.IOf(err, "write %s body", name)
	}

	return b.writeSignatureSidecar(tw, name, dw.Signature())
}

// writeSignedStreamMember streams a large member (data.tar.gz) from a
// temp file, in ChunkSize blocks, computing its digest/signature as it
// copies, without buffering member contents a second time.
func (b *Builder) writeSignedStreamMember(tw *tar.Writer, s *signer.Signer, name, srcPath string, size int64) error {
	if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: size}); err != nil {
		return errors.IOf(err, "write %s header", name)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return errors.IOf(err, "open %s payload", name)
	}
	defer src.Close()

	dw := digestio.NewDigestingWriter(tw, s)
	if _, err := dw.CopyFrom(src); err != nil {
		return err
	}
	if err := dw.Close(); err != nil {
		return err
	}

	return b.writeSignatureSidecar(tw, name, dw.Signature())
}

func (b *Builder) writeSignatureSidecar(tw *tar.Writer, baseName string, sig []byte) error {
	if sig == nil {
		return nil
	}
	sigName := baseName + ".sig"
	if err := tw.WriteHeader(&tar.Header{Name: sigName, Mode: 0o644, Size: int64(len(sig))}); err != nil {
		return errors.IOf(err, "write %s header", sigName)
	}
	if _, err := tw.Write(sig); err != nil {
		return errors.IOf(err, "write %s body", sigName)
	}
	return nil
}

// buildInnerPayload writes the inner tar.gz of spec.Files to a temp file
// and returns its path and size.
func (b *Builder) buildInnerPayload(spec *specmodel.Specification) (string, int64, error) {
	tmp, err := os.CreateTemp("", "pkgsign-data-*.tar.gz")
	if err != nil {
		return "", 0, errors.IOf(err, "create temporary payload file")
	}
	tmpPath := tmp.Name()

	if err := func() error {
		defer tmp.Close()
		gz := gzip.NewWriter(tmp)
		defer gz.Close()
		itw := tar.NewWriter(gz)
		defer itw.Close()

		for _, f := range spec.Files {
			if err := addInnerFile(itw, f); err != nil {
				return err
			}
		}

		if err := itw.Close(); err != nil {
			return errors.Wrap(err, "finalize inner tar")
		}
		return gz.Close()
	}(); err != nil {
		os.Remove(tmpPath)
		return "", 0, err
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return "", 0, errors.IOf(err, "stat temporary payload file")
	}
	return tmpPath, info.Size(), nil
}

func addInnerFile(itw *tar.Writer, f specmodel.FileEntry) error {
	source := f.Source
	if source == "" {
		source = f.Path
	}
	info, err := os.Stat(source)
	if err != nil {
		return errors.IOf(err, "stat payload file %s", source)
	}
	fh, err := os.Open(source)
	if err != nil {
		return errors.IOf(err, "open payload file %s", source)
	}
	defer fh.Close()

	if err := itw.WriteHeader(&tar.Header{
		Name: f.Path,
		Mode: int64(info.Mode().Perm()),
		Size: info.Size(),
	}); err != nil {
		return errors.IOf(err, "write header for %s", f.Path)
	}

	buf := make([]byte, digestio.ChunkSize)
	if _, err := io.CopyBuffer(itw, fh, buf); err != nil {
		return errors.IOf(err, "stream payload file %s", f.Path)
	}
	return nil
}
