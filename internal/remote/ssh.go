package remote

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// handshakeTimeout bounds the preflight connection attempt so an unreachable
// host fails the run quickly instead of hanging it.
const handshakeTimeout = 10 * time.Second

// SSHBackend ships artifacts to a remote host over ssh. The preflight
// handshake uses the ssh protocol directly; uploads shell out to scp so the
// operator's ssh configuration applies unchanged.
type SSHBackend struct {
	cfg Config

	// run executes an external command and returns its combined output.
	// Swapped out in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewSSHBackend creates an ssh backend for the given configuration.
func NewSSHBackend(cfg Config) *SSHBackend {
	return &SSHBackend{
		cfg: cfg,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// Name returns the backend identifier.
func (b *SSHBackend) Name() string { return "ssh" }

// Probe opens and closes a plain TCP connection to the ssh port. Cheaper
// than a handshake and enough to tell DNS and routing problems apart from
// authentication ones.
func (b *SSHBackend) Probe(ctx context.Context) error {
	addr := net.JoinHostPort(b.cfg.Host, strconv.Itoa(b.port()))
	dialer := net.Dialer{Timeout: handshakeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("tcp probe of %s failed: %w", addr, err)
	}
	return conn.Close()
}

// Check dials the remote host and completes an ssh handshake. Any failure
// (DNS, TCP, key exchange, authentication) counts as unreachable.
func (b *SSHBackend) Check(ctx context.Context) error {
	addr := net.JoinHostPort(b.cfg.Host, strconv.Itoa(b.port()))

	clientCfg := &ssh.ClientConfig{
		User:            b.user(),
		Auth:            agentAuthMethods(),
		HostKeyCallback: hostKeyCallback(),
		Timeout:         handshakeTimeout,
	}

	dialer := net.Dialer{Timeout: handshakeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("cannot reach %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}

	client := ssh.NewClient(sshConn, chans, reqs)
	return client.Close()
}

// EnsureArchiveDir creates <DestDir>/archive on the remote host.
func (b *SSHBackend) EnsureArchiveDir(ctx context.Context) error {
	out, err := b.run(ctx, "ssh",
		"-p", strconv.Itoa(b.port()),
		b.target(),
		"mkdir", "-p", b.archiveDir())
	if err != nil {
		return fmt.Errorf("failed to create remote archive dir %s: %w (%s)",
			b.archiveDir(), err, string(out))
	}
	return nil
}

// Upload copies the artifact into the remote archive directory via scp.
func (b *SSHBackend) Upload(ctx context.Context, artifactPath string) error {
	dest := fmt.Sprintf("%s:%s", b.target(),
		path.Join(b.archiveDir(), filepath.Base(artifactPath)))

	out, err := b.run(ctx, "scp",
		"-P", strconv.Itoa(b.port()),
		artifactPath, dest)
	if err != nil {
		return fmt.Errorf("scp of %s to %s failed: %w (%s)",
			filepath.Base(artifactPath), dest, err, string(out))
	}
	return nil
}

func (b *SSHBackend) port() int {
	if b.cfg.Port == 0 {
		return 22
	}
	return b.cfg.Port
}

func (b *SSHBackend) user() string {
	if b.cfg.User != "" {
		return b.cfg.User
	}
	return os.Getenv("USER")
}

// target returns the [user@]host form used by ssh and scp.
func (b *SSHBackend) target() string {
	if b.cfg.User != "" {
		return b.cfg.User + "@" + b.cfg.Host
	}
	return b.cfg.Host
}

func (b *SSHBackend) archiveDir() string {
	return path.Join(b.cfg.DestDir, "archive")
}

// agentAuthMethods returns the authentication methods available from the
// running ssh agent, if any.
func agentAuthMethods() []ssh.AuthMethod {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil
	}
	ag := agent.NewClient(conn)
	return []ssh.AuthMethod{ssh.PublicKeysCallback(ag.Signers)}
}

// hostKeyCallback verifies against the user's known_hosts file when present.
func hostKeyCallback() ssh.HostKeyCallback {
	home, err := os.UserHomeDir()
	if err == nil {
		cb, err := knownhosts.New(filepath.Join(home, ".ssh", "known_hosts"))
		if err == nil {
			return cb
		}
	}
	return ssh.InsecureIgnoreHostKey()
}
