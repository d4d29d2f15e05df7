package ssh

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/crypto/ssh"
)

// KeyInfo contains information about a local SSH private key.
type KeyInfo struct {
	Path        string // full path to the key file
	Name        string // key filename (e.g., "id_ed25519")
	Type        string // key type (e.g., "ed25519", "rsa", "ecdsa")
	IsEncrypted bool   // true if key is passphrase-protected
}

// DiscoverKeys scans ~/.ssh/ for private keys, sorted by preference:
// ed25519 first, then rsa, then others. Used when the session configures
// key auth without an explicit key path.
func DiscoverKeys() ([]KeyInfo, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	sshDir := filepath.Join(homeDir, ".ssh")
	entries, err := os.ReadDir(sshDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read .ssh directory: %w", err)
	}

	var keys []KeyInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Skip public keys and known_hosts
		if strings.HasSuffix(name, ".pub") ||
			name == "known_hosts" ||
			name == "authorized_keys" ||
			name == "config" {
			continue
		}

		// Look for id_* patterns or *.pem files
		if !strings.HasPrefix(name, "id_") && !strings.HasSuffix(name, ".pem") {
			continue
		}

		keyPath := filepath.Join(sshDir, name)
		keyInfo, err := inspectKey(keyPath)
		if err != nil {
			// Skip invalid key files
			continue
		}

		keys = append(keys, *keyInfo)
	}

	sort.Slice(keys, func(i, j int) bool {
		return keyTypePriority(keys[i].Type) < keyTypePriority(keys[j].Type)
	})

	return keys, nil
}

// keyTypePriority returns sort priority for key types (lower is better)
func keyTypePriority(keyType string) int {
	switch keyType {
	case "ed25519":
		return 1
	case "rsa":
		return 2
	case "ecdsa":
		return 3
	default:
		return 4
	}
}

// inspectKey validates a key file and returns its info
func inspectKey(path string) (*KeyInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	keyInfo := &KeyInfo{
		Path: path,
		Name: filepath.Base(path),
	}

	_, err = ssh.ParsePrivateKey(data)
	if err != nil {
		if isPassphraseError(err) {
			keyInfo.IsEncrypted = true
			keyInfo.Type = detectKeyType(data)
			return keyInfo, nil
		}
		return nil, fmt.Errorf("invalid SSH key: %w", err)
	}

	keyInfo.Type = detectKeyType(data)
	return keyInfo, nil
}

// isPassphraseError checks if the error indicates a passphrase-protected key
func isPassphraseError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "passphrase") ||
		strings.Contains(errStr, "encrypted") ||
		strings.Contains(errStr, "ENCRYPTED")
}

// detectKeyType attempts to detect the key type from the key data
func detectKeyType(data []byte) string {
	content := string(data)

	if strings.Contains(content, "OPENSSH PRIVATE KEY") {
		// Modern OpenSSH format without a type hint; ed25519 is the
		// contemporary default.
		return "ed25519"
	}
	if strings.Contains(content, "RSA PRIVATE KEY") {
		return "rsa"
	}
	if strings.Contains(content, "EC PRIVATE KEY") {
		return "ecdsa"
	}
	if strings.Contains(content, "DSA PRIVATE KEY") {
		return "dsa"
	}

	return "unknown"
}
