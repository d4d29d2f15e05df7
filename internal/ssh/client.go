package ssh

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultTimeout bounds the TCP dial and SSH handshake.
const DefaultTimeout = 30 * time.Second

// Client is the SSH connection to the deployment target. It carries both
// sub-channels of the transport: remote command execution (exec.go) and
// bulk file copy (transfer.go).
type Client struct {
	Host string
	User string
	Port int

	keyPath     string
	password    string
	usePassword bool

	client *ssh.Client
}

// NewKeyClient creates a client using public key authentication. An empty
// keyPath falls back to key discovery and the ambient agent.
func NewKeyClient(host, user string, port int, keyPath string) *Client {
	if port == 0 {
		port = 22
	}
	return &Client{Host: host, User: user, Port: port, keyPath: keyPath}
}

// NewPasswordClient creates a client using password authentication.
func NewPasswordClient(host, user string, port int, password string) *Client {
	if port == 0 {
		port = 22
	}
	return &Client{Host: host, User: user, Port: port, password: password, usePassword: true}
}

// Connect establishes the SSH connection. All authentication material is
// resolved before the dial so configuration errors surface without any
// network action.
func (c *Client) Connect() error {
	methods, err := c.authMethods()
	if err != nil {
		return err
	}

	hostKeyCallback, err := c.hostKeyCallback()
	if err != nil {
		return fmt.Errorf("host key verification failed: %w", err)
	}

	cfg := &ssh.ClientConfig{
		User:            c.User,
		Auth:            methods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         DefaultTimeout,
	}

	addr := net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c.client = client
	return nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// NewSession creates a new SSH session.
func (c *Client) NewSession() (*ssh.Session, error) {
	if c.client == nil {
		return nil, fmt.Errorf("not connected")
	}
	return c.client.NewSession()
}

func (c *Client) authMethods() ([]ssh.AuthMethod, error) {
	if c.usePassword {
		if c.password == "" {
			return nil, fmt.Errorf("password authentication selected but no credential supplied")
		}
		return []ssh.AuthMethod{ssh.Password(c.password)}, nil
	}

	var methods []ssh.AuthMethod

	// CI/CD: key content can be provided via environment variable.
	if envKey := os.Getenv("XILMA_DEPLOY_SSH_KEY"); envKey != "" {
		signer, err := ssh.ParsePrivateKey([]byte(envKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse XILMA_DEPLOY_SSH_KEY: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}

	if c.keyPath != "" {
		signer, err := loadSigner(expandHome(c.keyPath))
		if err != nil {
			return nil, err
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}

	// No explicit key: try discovered ~/.ssh keys, then the agent.
	if keys, err := DiscoverKeys(); err == nil {
		var signers []ssh.Signer
		for _, key := range keys {
			if key.IsEncrypted {
				continue
			}
			signer, err := loadSigner(key.Path)
			if err != nil {
				continue
			}
			signers = append(signers, signer)
		}
		if len(signers) > 0 {
			methods = append(methods, ssh.PublicKeys(signers...))
		}
	}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		conn, err := net.Dial("unix", sock)
		if err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH key found and no agent available (set XILMA_DEPLOY_KEY_PATH or XILMA_DEPLOY_SSH_KEY)")
	}
	return methods, nil
}

func loadSigner(path string) (ssh.Signer, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
	}
	return signer, nil
}

func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

// hostKeyCallback returns the host key callback function
// SECURITY: This function requires a valid known_hosts file by default
// In CI/CD, set XILMA_DEPLOY_KNOWN_HOSTS with the content of known_hosts
// or XILMA_DEPLOY_SKIP_HOST_KEY_CHECK=true to skip verification (not recommended)
func (c *Client) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if knownHostsContent := os.Getenv("XILMA_DEPLOY_KNOWN_HOSTS"); knownHostsContent != "" {
		tmpFile, err := os.CreateTemp("", "known_hosts")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp known_hosts: %w", err)
		}
		defer os.Remove(tmpFile.Name())

		if _, err := tmpFile.WriteString(knownHostsContent); err != nil {
			return nil, fmt.Errorf("failed to write temp known_hosts: %w", err)
		}
		tmpFile.Close()

		callback, err := knownhosts.New(tmpFile.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to parse XILMA_DEPLOY_KNOWN_HOSTS: %w", err)
		}
		return callback, nil
	}

	if os.Getenv("XILMA_DEPLOY_SKIP_HOST_KEY_CHECK") == "true" {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	knownHostsPath := filepath.Join(homeDir, ".ssh", "known_hosts")

	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("SSH known_hosts file not found at %s. "+
			"Please connect to the server manually first with: ssh %s@%s -p %d\n"+
			"For CI/CD, set XILMA_DEPLOY_KNOWN_HOSTS or XILMA_DEPLOY_SKIP_HOST_KEY_CHECK=true",
			knownHostsPath, c.User, c.Host, c.Port)
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read known_hosts: %w", err)
	}

	return callback, nil
}
