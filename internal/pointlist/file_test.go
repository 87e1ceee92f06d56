package pointlist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile_RejectsEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xml")

	err := WriteFile(path, nil)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no document should be written")
}

func TestWriteFile_ReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.xml")
	list := PointList{
		{Name: "B3_0", X: 30510, Y: -22800, Z: 100, PFSOffset: 7050, Checked: true},
	}

	require.NoError(t, WriteFile(path, list))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, list, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be gone")
}

func TestMergeFiles_SkipsRepeatedPaths(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "left.xml")
	b := filepath.Join(dir, "right.xml")
	require.NoError(t, WriteFile(a, PointList{{Name: "p", X: 1, Checked: true}}))
	require.NoError(t, WriteFile(b, PointList{{Name: "q", X: 2, Checked: true}}))

	merged, err := MergeFiles([]string{b, a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{"right_q", "left_p"}, merged.Names())
}

func TestMergeFiles_MissingFile(t *testing.T) {
	_, err := MergeFiles([]string{filepath.Join(t.TempDir(), "nope.xml")})
	assert.Error(t, err)
}
