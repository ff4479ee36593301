// Package corpus reads Greenberg transcript sources and normalizes their
// sessions with a worker pool.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Source is one transcript file of the corpus.
type Source struct {
	Name string // e.g. scientist-12
	Path string
}

// Sources lists the files prefix<first>..prefix<last> under dir.
func Sources(dir, prefix string, first, last int) []Source {
	if last < first {
		return nil
	}
	sources := make([]Source, 0, last-first+1)
	for i := first; i <= last; i++ {
		name := prefix + strconv.Itoa(i)
		sources = append(sources, Source{Name: name, Path: filepath.Join(dir, name)})
	}
	return sources
}

// Read returns the whole content of the source.
func (s Source) Read() (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("read source %s: %w", s.Name, err)
	}
	return string(data), nil
}
