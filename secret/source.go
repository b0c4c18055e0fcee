package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// Source looks up secret values by reference.
//
// Implementations must be safe for concurrent use and must not log values.
type Source interface {
	Name() string
	Lookup(ctx context.Context, ref string) (string, error)
}

// EnvSource reads values from environment variables. Its name is "env".
type EnvSource struct{}

// Name returns "env".
func (EnvSource) Name() string { return "env" }

// Lookup returns the value of the variable ref.
func (EnvSource) Lookup(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: env %s", ErrNotFound, ref)
	}
	return v, nil
}

// FileSource reads values from files below Dir, trimming surrounding
// whitespace. A leading "~" in Dir is the user's home directory. Its name
// is "file".
type FileSource struct {
	Dir string
}

// Name returns "file".
func (FileSource) Name() string { return "file" }

// Lookup reads the file ref relative to Dir. References may not leave Dir.
func (s FileSource) Lookup(_ context.Context, ref string) (string, error) {
	clean := filepath.Clean(ref)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: file %q escapes %s", ErrInvalidRef, ref, s.Dir)
	}
	dir, err := homedir.Expand(s.Dir)
	if err != nil {
		return "", fmt.Errorf("secret: expand %s: %w", s.Dir, err)
	}
	data, err := os.ReadFile(filepath.Join(dir, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: file %s", ErrNotFound, clean)
		}
		return "", fmt.Errorf("secret: read %s: %w", clean, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// StaticSource serves fixed values under a chosen name.
type StaticSource struct {
	name   string
	values map[string]string
}

// NewStaticSource creates a StaticSource. values is copied.
func NewStaticSource(name string, values map[string]string) *StaticSource {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &StaticSource{name: name, values: cp}
}

// Name returns the name the source was created with.
func (s *StaticSource) Name() string { return s.name }

// Lookup returns the value stored under ref.
func (s *StaticSource) Lookup(_ context.Context, ref string) (string, error) {
	v, ok := s.values[ref]
	if !ok {
		return "", fmt.Errorf("%w: %s %s", ErrNotFound, s.name, ref)
	}
	return v, nil
}
