package security

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// numericIDRegex validates numeric identifiers such as the Telegram
	// admin user id.
	numericIDRegex = regexp.MustCompile(`^[0-9]+$`)

	// envKeyRegex validates environment variable keys
	// Standard environment variable naming
	envKeyRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	// unixUserRegex validates Unix usernames
	// Standard POSIX username rules
	// Length: 1-32 characters
	unixUserRegex = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}$`)

	// refRegex validates git refs (branches, tags, short hashes)
	// Allows: letters, numbers, dots, slashes, underscores, hyphens
	refRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9./_-]{0,254}$`)

	// remoteDirRegex validates absolute remote directory paths
	remoteDirRegex = regexp.MustCompile(`^/[a-zA-Z0-9._-]+(/[a-zA-Z0-9._-]+)*$`)

	// sensitiveLogPatterns used by SanitizeCommandForLog to mask secrets
	sensitiveLogPatterns = []string{
		"TELEGRAM_BOT_TOKEN=",
		"AVALAI_API_KEY=",
		"POSTGRES_PASSWORD=",
		"DATABASE_URL=",
	}
)

// MaskWidth is the number of mask characters emitted for the hidden part
// of a secret.
const MaskWidth = 4

// Mask hides a secret for display. Values of four characters or fewer
// collapse to a fixed four-character mask so their length is not
// revealed; longer values show only the trailing four characters.
func Mask(secret string) string {
	mask := strings.Repeat("*", MaskWidth)
	runes := []rune(secret)
	if len(runes) <= MaskWidth {
		return mask
	}
	return mask + string(runes[len(runes)-MaskWidth:])
}

// IsNumericID reports whether a value looks like a numeric identifier.
// Callers treat a mismatch as a warning, not a failure.
func IsNumericID(value string) bool {
	return numericIDRegex.MatchString(value)
}

// ValidateEnvKey validates an environment variable key
func ValidateEnvKey(key string) error {
	if key == "" {
		return fmt.Errorf("environment variable key cannot be empty")
	}
	if len(key) > 256 {
		return fmt.Errorf("environment variable key too long (max 256 characters)")
	}
	if !envKeyRegex.MatchString(key) {
		return fmt.Errorf("environment variable key must start with a letter or underscore, followed by letters, numbers, or underscores")
	}
	return nil
}

// ValidateUnixUser validates the remote login user name
func ValidateUnixUser(user string) error {
	if user == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if len(user) > 32 {
		return fmt.Errorf("username too long (max 32 characters)")
	}
	if !unixUserRegex.MatchString(user) {
		return fmt.Errorf("username must start with a lowercase letter or underscore, followed by lowercase letters, numbers, underscores, or hyphens")
	}
	return nil
}

// ValidateRef validates a git ref name (branch, tag, or commit).
// An empty ref is allowed; it means "keep the current ref".
func ValidateRef(ref string) error {
	if ref == "" {
		return nil
	}
	if strings.Contains(ref, "..") {
		return fmt.Errorf("ref cannot contain '..'")
	}
	if !refRegex.MatchString(ref) {
		return fmt.Errorf("ref contains invalid characters: %s", ref)
	}
	return nil
}

// ValidateRemoteDir validates the remote application directory path.
// It must be absolute and free of parent traversal.
func ValidateRemoteDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("target directory cannot be empty")
	}
	if !strings.HasPrefix(dir, "/") {
		return fmt.Errorf("target directory must be an absolute path, got: %s", dir)
	}
	if strings.Contains(dir, "..") {
		return fmt.Errorf("target directory cannot contain path traversal (..): %s", dir)
	}
	if !remoteDirRegex.MatchString(dir) {
		return fmt.Errorf("target directory contains invalid characters: %s", dir)
	}
	return nil
}

// ShellEscape escapes a string for safe use in shell commands by wrapping it
// in single quotes and escaping any internal single quotes using the POSIX
// pattern: ' → '\''
func ShellEscape(s string) string {
	escaped := strings.ReplaceAll(s, "'", "'\\''")
	return "'" + escaped + "'"
}

// SanitizeCommandForLog masks sensitive values in commands before logging.
// This prevents secrets from leaking into verbose output or log files.
func SanitizeCommandForLog(cmd string) string {
	result := cmd

	for _, pattern := range sensitiveLogPatterns {
		searchFrom := 0
		for {
			idx := strings.Index(result[searchFrom:], pattern)
			if idx == -1 {
				break
			}
			absIdx := searchFrom + idx
			valueStart := absIdx + len(pattern)
			valueEnd := findValueEnd(result, valueStart)
			masked := "****"
			result = result[:valueStart] + masked + result[valueEnd:]
			searchFrom = valueStart + len(masked)
		}
	}

	return result
}

// findValueEnd finds where a shell value ends (handles quoted and unquoted values)
func findValueEnd(s string, start int) int {
	if start >= len(s) {
		return start
	}

	if s[start] == '\'' {
		end := strings.Index(s[start+1:], "'")
		if end == -1 {
			return len(s)
		}
		return start + end + 2
	}

	if s[start] == '"' {
		end := strings.Index(s[start+1:], "\"")
		if end == -1 {
			return len(s)
		}
		return start + end + 2
	}

	for i := start; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' || s[i] == '\n' {
			return i
		}
	}
	return len(s)
}
