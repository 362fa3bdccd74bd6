package state

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// ExcludeSet holds site paths that must never be indexed.
type ExcludeSet map[string]struct{}

// Contains reports whether path is excluded.
func (s ExcludeSet) Contains(path string) bool {
	_, ok := s[path]
	return ok
}

// ParseExcludes reads newline-separated paths, trimming each line.
func ParseExcludes(r io.Reader) (ExcludeSet, error) {
	set := make(ExcludeSet)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		set[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read exclude list: %w", err)
	}
	return set, nil
}

// LoadExcludes reads the exclude list at path. A missing file is an empty set.
func LoadExcludes(path string) (ExcludeSet, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ExcludeSet{}, nil
		}
		return nil, fmt.Errorf("failed to open exclude list %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ParseExcludes(f)
}
