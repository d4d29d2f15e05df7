package ssh

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xilma-bot/xilmadeploy/internal/security"
)

// RemoteTempPath returns a per-run upload path for the secret bundle.
// Two independent random components avoid collisions between concurrent
// or successive runs against the same host.
func RemoteTempPath() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("failed to generate random path components: %w", err)
	}
	r1 := binary.BigEndian.Uint32(buf[0:4])
	r2 := binary.BigEndian.Uint32(buf[4:8])
	return fmt.Sprintf("/tmp/xilma-env.%d.%d", r1, r2), nil
}

// Upload copies a local file to the remote host via the SCP sink
// protocol. The mode travels in the protocol header, so a secret bundle
// is never world-readable on the remote side, not even transiently.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string, mode os.FileMode) error {
	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer localFile.Close()

	fileInfo, err := localFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat local file: %w", err)
	}

	session, err := c.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	filename := filepath.Base(remotePath)
	go func() {
		defer stdin.Close()
		// SCP protocol: C<mode> <size> <filename>\n<data>\0
		fmt.Fprintf(stdin, "C%04o %d %s\n", mode.Perm(), fileInfo.Size(), filename)
		_, _ = io.Copy(stdin, localFile)
		fmt.Fprint(stdin, "\x00")
	}()

	errC := make(chan error, 1)
	go func() {
		errC <- session.Run(fmt.Sprintf("scp -t %s", security.ShellEscape(remotePath)))
	}()

	select {
	case <-ctx.Done():
		session.Close()
		<-errC
		return ctx.Err()
	case err := <-errC:
		if err != nil {
			return fmt.Errorf("scp failed: %w", err)
		}
	}

	return nil
}

// RemoveFile removes a file from the remote host. Used for the transient
// secret bundle; missing files are not an error.
func RemoveFile(ctx context.Context, x Executor, remotePath string) error {
	return Run(ctx, x, fmt.Sprintf("rm -f %s", security.ShellEscape(remotePath)))
}

// ReadFile returns the content of a remote file, or an empty string when
// the file does not exist. A file that exists but cannot be read is an
// error, never an empty result.
func ReadFile(ctx context.Context, x Executor, remotePath string) (string, error) {
	escaped := security.ShellEscape(remotePath)

	exists, err := Succeeds(ctx, x, fmt.Sprintf("test -e %s", escaped))
	if err != nil {
		return "", err
	}
	if !exists {
		return "", nil
	}

	result, err := x.Exec(ctx, fmt.Sprintf("cat %s", escaped))
	if err != nil {
		return "", err
	}
	if err := result.Err(); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", remotePath, err)
	}
	return result.Stdout, nil
}
