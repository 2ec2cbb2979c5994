package cmd

import (
	"pkgsign/internal/errors"
	"pkgsign/internal/log"
	"pkgsign/pkg/config"
	"pkgsign/pkg/policy"
	"pkgsign/pkg/signer"
	"pkgsign/pkg/truststore"
)

// newTrustStore builds the TrustStore configured by cfg.
func newTrustStore(cfg *config.Config, logger log.Logger) *truststore.TrustStore {
	return truststore.New(config.ExpandHomeDir(cfg.TrustStore.Directory), logger)
}

// newSigner builds a Signer from cfg's conventional paths, closing its
// chain against ts.
func newSigner(cfg *config.Config, ts *truststore.TrustStore, logger log.Logger) (*signer.Signer, error) {
	paths := signer.ConventionalPaths{
		PrivateKey: config.ExpandHomeDir(cfg.Signer.PrivateKeyPath),
		PublicCert: config.ExpandHomeDir(cfg.Signer.PublicCertPath),
	}
	return signer.New(nil, nil,
		signer.WithConventionalPaths(paths),
		signer.WithTrustStore(ts),
		signer.WithResignValidity(cfg.Signer.ResignValidity),
		signer.WithLogger(logger),
	)
}

// resolvePolicy looks up the named policy preset and attaches ts.
func resolvePolicy(name string, ts *truststore.TrustStore) (*policy.Policy, error) {
	preset, ok := policy.Named(name)
	if !ok {
		return nil, errors.InvalidInputf("unknown policy %q", name)
	}
	return preset.WithTrustStore(ts), nil
}
