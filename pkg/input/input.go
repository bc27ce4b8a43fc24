// Package input gathers local files into the text of a word-frequency job.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const DefaultBufferSize = 1024 * 1024 // 1MB

// FindFiles expands glob patterns ("**" matches any number of directories)
// into regular files. Directories and symlinks are skipped and each file is
// returned once, in sorted order.
func FindFiles(patterns ...string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, name := range matches {
			info, err := os.Lstat(name)
			if err != nil {
				continue
			}
			if info.Mode().IsRegular() {
				files = append(files, name)
			}
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// ReadText concatenates the files in order. Every file ends up terminated by
// a newline, so the last line of one file never merges with the first line
// of the next.
func ReadText(paths ...string) (string, error) {
	var sb strings.Builder
	for _, path := range paths {
		if err := appendFile(&sb, path); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func appendFile(sb *strings.Builder, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := bufio.NewReaderSize(file, DefaultBufferSize)
	for {
		line, err := reader.ReadString('\n')
		sb.WriteString(line)
		if err == io.EOF {
			if line != "" && !strings.HasSuffix(line, "\n") {
				sb.WriteByte('\n')
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
}
