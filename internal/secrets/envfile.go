package secrets

import (
	"strings"

	"github.com/xilma-bot/xilmadeploy/internal/security"
)

// envPair preserves source order when an existing env file is merged.
type envPair struct {
	key   string
	value string
}

// ParseEnv parses env file content into a key/value map. Blank lines and
// comments are skipped; surrounding quotes are stripped.
func ParseEnv(content string) map[string]string {
	vars := make(map[string]string)
	for _, p := range parseEnvOrdered(content) {
		vars[p.key] = p.value
	}
	return vars
}

func parseEnvOrdered(content string) []envPair {
	var pairs []envPair
	seen := make(map[string]int)

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if security.ValidateEnvKey(key) != nil {
			continue
		}
		value := unquote(strings.TrimSpace(parts[1]))
		if i, ok := seen[key]; ok {
			pairs[i].value = value
			continue
		}
		seen[key] = len(pairs)
		pairs = append(pairs, envPair{key: key, value: value})
	}
	return pairs
}

// unquote strips one level of matching quotes and undoes the escaping
// Render applies inside double quotes.
func unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		inner := v[1 : len(v)-1]
		inner = strings.ReplaceAll(inner, `\"`, `"`)
		inner = strings.ReplaceAll(inner, `\\`, `\`)
		return inner
	}
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
		return v[1 : len(v)-1]
	}
	return v
}

// MergeEnv merges the bundle over existing env file content and renders
// the result. Existing keys keep their position; operator-supplied bundle
// values overwrite, derived values never overwrite an existing key; keys
// unknown to the bundle are preserved verbatim.
func MergeEnv(existing string, b *Bundle) string {
	pairs := parseEnvOrdered(existing)
	index := make(map[string]int, len(pairs))
	for i, p := range pairs {
		index[p.key] = i
	}

	for _, e := range b.Entries() {
		if i, ok := index[e.Key]; ok {
			if e.Derived {
				continue
			}
			pairs[i].value = e.Value
			continue
		}
		index[e.Key] = len(pairs)
		pairs = append(pairs, envPair{key: e.Key, value: e.Value})
	}

	var sb strings.Builder
	for _, p := range pairs {
		sb.WriteString(p.key)
		sb.WriteString(`="`)
		sb.WriteString(escapeValue(p.value))
		sb.WriteString("\"\n")
	}
	return sb.String()
}
