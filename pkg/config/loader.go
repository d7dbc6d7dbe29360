package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidJSON      = errors.New("invalid JSON syntax")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("configuration file is empty")
	ErrNoMatches        = errors.New("pattern matched no files")
	ErrIncludeCycle     = errors.New("include cycle")
)

// Format is a configuration document encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from the file extension: .yaml and .yml
// are YAML, everything else JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseJSON parses a JSON configuration document.
func ParseJSON(data []byte) (*File, error) {
	return Parse(data, FormatJSON)
}

// ParseYAML parses a YAML configuration document.
func ParseYAML(data []byte) (*File, error) {
	return Parse(data, FormatYAML)
}

// Parse expands environment references in data, checks the result against
// the schema and decodes it. Includes are not followed.
func Parse(data []byte, format Format) (*File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}
	expanded := []byte(ExpandEnvVars(string(data)))

	var doc any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(expanded, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
		}
	default:
		if !json.Valid(expanded) {
			return nil, ErrInvalidJSON
		}
		dec := json.NewDecoder(bytes.NewReader(expanded))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
	}

	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}

	var f File
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(expanded))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(expanded))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
	}

	if f.Server != nil {
		if err := f.Server.Validate(); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

// LoadFromFile reads a configuration file and follows its includes.
// The format is detected from the file extension.
func LoadFromFile(path string) (*File, error) {
	return loadFile(path, map[string]bool{})
}

// Load reads every file matched by the given paths or doublestar patterns,
// in order, and merges them into one File. Matches of a single pattern are
// taken in lexical order. Server settings come from the first file that
// declares them.
func Load(patterns ...string) (*File, error) {
	merged := &File{}
	visited := map[string]bool{}
	for _, pattern := range patterns {
		paths, err := expandGlob(pattern)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			f, err := loadFile(p, visited)
			if err != nil {
				return nil, err
			}
			if merged.Version == "" {
				merged.Version = f.Version
			}
			merged.Merge(f)
		}
	}
	return merged, nil
}

func loadFile(path string, visited map[string]bool) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	if visited[abs] {
		return nil, fmt.Errorf("%w: %s", ErrIncludeCycle, path)
	}
	visited[abs] = true
	defer delete(visited, abs)

	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	f, err := Parse(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	for _, inc := range f.Include {
		paths, err := expandGlob(resolvePath(baseDir, inc))
		if err != nil {
			return nil, fmt.Errorf("%s: include %q: %w", path, inc, err)
		}
		for _, p := range paths {
			child, err := loadFile(p, visited)
			if err != nil {
				return nil, err
			}
			f.Endpoints = append(f.Endpoints, child.Endpoints...)
		}
	}
	f.Include = nil
	return f, nil
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	return data, nil
}

// resolvePath joins relative paths onto baseDir.
func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// expandGlob returns the files matched by pattern in lexical order. A
// pattern without glob metacharacters is returned as is so a missing file
// surfaces as ErrFileNotFound.
func expandGlob(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{pattern}, nil
	}
	if !doublestar.ValidatePathPattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatches, pattern)
	}
	sort.Strings(matches)
	return matches, nil
}
