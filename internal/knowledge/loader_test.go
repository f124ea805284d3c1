package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConcatenatesFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "staff.txt"), []byte("Dr. A, Principal\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "links.txt"), []byte("https://www.ngmc.org/exams"), 0o644))

	got := Load(dir, []string{"staff.txt", "links.txt"})
	assert.Equal(t, "Dr. A, Principal\n\nhttps://www.ngmc.org/exams", got)
}

func TestLoadMarksMissingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "staff.txt"), []byte("Dr. A, Principal"), 0o644))

	got := Load(dir, []string{"staff.txt", "links.txt"})
	assert.Contains(t, got, "Dr. A, Principal")
	assert.Contains(t, got, "[links.txt not found]")
}

func TestLoadAllMissing(t *testing.T) {
	got := Load(t.TempDir(), []string{"staff.txt", "links.txt"})
	assert.Equal(t, "[staff.txt not found]\n[links.txt not found]", got)
}
