// Package util provides small file helpers shared by the commands.
package util

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// OpenFile opens a file, transparently decompressing gzip input.
// The returned cleanup function must be called when done reading.
func OpenFile(path string) (io.Reader, func() error, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	if IsGzipFile(path) {
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, nil, err
		}
		cleanup := func() error {
			gz.Close()
			return file.Close()
		}
		return gz, cleanup, nil
	}

	return file, file.Close, nil
}

// IsGzipFile returns true if the path indicates gzip compression.
func IsGzipFile(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// BaseFormat extracts the format extension after stripping compression,
// e.g. "log.xes.gz" -> ".xes".
func BaseFormat(path string) string {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".gz") {
		path = path[:len(path)-3]
	}
	return strings.ToLower(filepath.Ext(path))
}
