package secret

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Expand replaces ${VAR} with the value lookup returns for VAR. Every
// referenced variable must be set; "$$" produces a literal "$". A bare $VAR
// is left alone so base64 keys and similar values pass through untouched.
func Expand(s string, lookup func(string) (string, bool)) (string, error) {
	parts := strings.Split(s, "$$")

	var missing []string
	for i, part := range parts {
		parts[i] = envRefPattern.ReplaceAllStringFunc(part, func(m string) string {
			name := m[2 : len(m)-1]
			v, ok := lookup(name)
			if !ok {
				missing = append(missing, name)
				return m
			}
			return v
		})
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(slices.Compact(missing), ", "))
	}
	return strings.Join(parts, "$"), nil
}
