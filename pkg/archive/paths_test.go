package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallLocationJoinsRelativePath(t *testing.T) {
	loc, err := InstallLocation("bin/widget", "/tmp/extract")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/extract/bin/widget", loc)
}

func TestInstallLocationRejectsEscape(t *testing.T) {
	_, err := InstallLocation("../../etc/passwd", "/tmp/extract")
	assert.Error(t, err)
}

func TestInstallLocationRejectsDotDotPrefixedSibling(t *testing.T) {
	_, err := InstallLocation("../extract-evil/payload", "/tmp/extract")
	assert.Error(t, err)
}

func TestInstallLocationIsIdempotent(t *testing.T) {
	first, err := InstallLocation("bin/widget", "/tmp/extract")
	require.NoError(t, err)

	second, err := InstallLocation(first, "/tmp/extract")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
