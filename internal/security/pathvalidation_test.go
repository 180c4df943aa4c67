package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	safe := t.TempDir()

	require.NoError(t, ValidatePathWithinDirectory(filepath.Join(safe, "clip.mp4"), safe))
	require.NoError(t, ValidatePathWithinDirectory(filepath.Join(safe, "sub", "clip.mp4"), safe))

	err := ValidatePathWithinDirectory(filepath.Join(safe, "..", "clip.mp4"), safe)
	require.Error(t, err)

	err = ValidatePathWithinDirectory("/etc/passwd", safe)
	require.Error(t, err)
}

func TestValidatePathWithinDirectorySymlinkEscape(t *testing.T) {
	safe := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(safe, "uploads")
	require.NoError(t, os.Symlink(outside, link))

	err := ValidatePathWithinDirectory(filepath.Join(link, "clip.mp4"), safe)
	require.Error(t, err)
}
