package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindFiles(t *testing.T) {
	// tmpDir/
	//   file1.txt
	//   file2.txt
	//   subdir/
	//     file3.txt
	//     file4.log
	//   emptydir/
	//   symlink.txt -> file1.txt
	tmpDir := t.TempDir()

	file1 := filepath.Join(tmpDir, "file1.txt")
	file2 := filepath.Join(tmpDir, "file2.txt")
	subdir := filepath.Join(tmpDir, "subdir")
	file3 := filepath.Join(subdir, "file3.txt")
	file4 := filepath.Join(subdir, "file4.log")

	require.NoError(t, os.Mkdir(subdir, 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "emptydir"), 0o755))
	for _, f := range []string{file1, file2, file3, file4} {
		require.NoError(t, os.WriteFile(f, []byte("content"), 0o644))
	}
	require.NoError(t, os.Symlink(file1, filepath.Join(tmpDir, "symlink.txt")))

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{name: "single file", patterns: []string{file1}, want: []string{file1}},
		{name: "wildcard", patterns: []string{filepath.Join(tmpDir, "*.txt")}, want: []string{file1, file2}},
		{name: "recursive", patterns: []string{filepath.Join(tmpDir, "**/*.txt")}, want: []string{file1, file2, file3}},
		{name: "extension", patterns: []string{filepath.Join(tmpDir, "**/*.log")}, want: []string{file4}},
		{name: "everything", patterns: []string{filepath.Join(tmpDir, "**/*")}, want: []string{file1, file2, file3, file4}},
		{name: "overlapping patterns", patterns: []string{filepath.Join(tmpDir, "*.txt"), file1}, want: []string{file1, file2}},
		{name: "no patterns", patterns: nil, want: nil},
		{name: "no matches", patterns: []string{filepath.Join(tmpDir, "*.csv")}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindFiles(tt.patterns...)
			require.NoError(t, err)
			if len(tt.want) == 0 {
				require.Empty(t, got)
				return
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFindFiles_InvalidPattern(t *testing.T) {
	_, err := FindFiles("[invalid")
	require.Error(t, err)
}

func TestReadText(t *testing.T) {
	tmpDir := t.TempDir()
	first := filepath.Join(tmpDir, "first.txt")
	second := filepath.Join(tmpDir, "second.txt")
	empty := filepath.Join(tmpDir, "empty.txt")

	require.NoError(t, os.WriteFile(first, []byte("hello world\nhello"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("hadoop\n"), 0o644))
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	text, err := ReadText(first, empty, second)
	require.NoError(t, err)
	require.Equal(t, "hello world\nhello\nhadoop\n", text)
}

func TestReadText_LongLines(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "long.txt")
	long := strings.Repeat("word ", DefaultBufferSize/2)
	require.NoError(t, os.WriteFile(path, []byte(long), 0o644))

	text, err := ReadText(path)
	require.NoError(t, err)
	require.Equal(t, long+"\n", text)
}

func TestReadText_MissingFile(t *testing.T) {
	_, err := ReadText(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}
