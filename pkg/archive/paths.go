package archive

import (
	"path/filepath"
	"strings"

	"pkgsign/internal/errors"
)

// InstallLocation computes the destination path for an inner-archive
// member named name, rejecting anything that would escape destDir.
//
// The "must stay under destination" guard is enabled unconditionally.
// Both an absolute member name and a relative one whose canonicalized
// form does not begin with the canonicalized destination directory are
// rejected.
func InstallLocation(name, destDir string) (string, error) {
	cleanDest := filepath.Clean(destDir)

	var joined string
	if filepath.IsAbs(name) {
		// An absolute path is only acceptable if it is itself already a
		// canonicalized install location under destDir — this is what
		// makes InstallLocation idempotent when fed its own prior output.
		// The same holds for an absolute member name read from an archive:
		// it passes only if it already lies under destDir.
		joined = filepath.Clean(name)
	} else {
		joined = filepath.Join(cleanDest, name)
	}

	rel, err := filepath.Rel(cleanDest, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Pathf("installing into parent path %q: escapes destination directory", name)
	}

	return joined, nil
}
