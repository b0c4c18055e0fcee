package secret

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// RefPrefix marks a value that names a Source and a reference within it.
const RefPrefix = "keyref:"

// Resolver turns configuration values into secrets.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: never include the resolved value.
type Resolver struct {
	mu      sync.RWMutex
	sources map[string]Source
	strict  bool
	env     func(string) (string, bool)
}

// NewResolver creates a Resolver. A strict Resolver rejects values that
// resolve to the empty string. Nil sources are skipped.
func NewResolver(strict bool, sources ...Source) *Resolver {
	r := &Resolver{
		sources: make(map[string]Source),
		strict:  strict,
		env:     os.LookupEnv,
	}
	for _, s := range sources {
		r.Register(s)
	}
	return r
}

// Register adds s, replacing any source with the same name.
func (r *Resolver) Register(s Source) {
	if s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Name()] = s
}

// ParseRef splits "keyref:<source>:<ref>".
func ParseRef(value string) (source, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, RefPrefix)
	if !found {
		return "", "", false
	}
	source, ref, found = strings.Cut(rest, ":")
	if !found || source == "" || ref == "" {
		return "", "", false
	}
	return source, ref, true
}

// Resolve expands ${VAR} references in value and, if the result is a
// keyref, looks it up in the named source.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	expanded, err := Expand(value, r.env)
	if err != nil {
		return "", err
	}

	out := expanded
	if strings.HasPrefix(expanded, RefPrefix) {
		name, ref, ok := ParseRef(expanded)
		if !ok {
			return "", fmt.Errorf("%w: expected %s<source>:<ref>", ErrInvalidRef, RefPrefix)
		}
		r.mu.RLock()
		src, found := r.sources[name]
		r.mu.RUnlock()
		if !found {
			return "", fmt.Errorf("%w: %q", ErrUnknownSource, name)
		}
		if out, err = src.Lookup(ctx, ref); err != nil {
			return "", err
		}
	}

	if r.strict && out == "" {
		return "", ErrEmpty
	}
	return out, nil
}
