package commandmanager

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/ssh"
)

type SSHDialer interface {
	Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error)
}

// RealSSHDialer dials with the standard ssh package.
type RealSSHDialer struct{}

func (RealSSHDialer) Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	config.Timeout = timeout
	return ssh.Dial(network, addr, config)
}

// UnixCommandManager runs commands on a Unix host, locally when the
// hostname refers to this machine and over SSH otherwise.
type UnixCommandManager struct {
	Hostname  string
	SSHClient SSHDialer
	Credentials
}

func (u *UnixCommandManager) RunLocal(ctx context.Context, config CommandConfig) (CommandResult, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, config.Command, config.Args...)
	if config.Sudo {
		cmdArgs := append([]string{"sudo", "-S", config.Command}, config.Args...)
		cmd = exec.CommandContext(ctx, cmdArgs[0], cmdArgs[1:]...)
		cmd.Stdin = strings.NewReader(u.SudoPassword + "\n")
	}
	if len(config.Env) > 0 {
		cmd.Env = append(os.Environ(), config.Env...)
	}
	cmd.Dir = config.Dir

	var stdout, stderr strings.Builder
	if config.Interactive {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if !config.Sudo {
			cmd.Stdin = os.Stdin
		}
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()

	result := CommandResult{
		Command:   config.Command,
		STDOUT:    stdout.String(),
		STDERR:    stderr.String(),
		ExitCode:  getExitCode(err),
		Duration:  time.Since(start),
		Timestamp: start,
	}

	// An operator interrupt kills the child through the context; report
	// it as a clean cancellation rather than a command failure.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ErrCancelled
	}

	if strings.Contains(result.STDERR, "incorrect password") {
		return result, errors.New("sudo: incorrect password provided")
	}
	if strings.Contains(result.STDERR, "is not in the sudoers file") {
		return result, errors.New("sudo: user is not in the sudoers file")
	}

	return result, err
}

func (u *UnixCommandManager) getSSHConfig() (*ssh.ClientConfig, error) {
	var authMethod ssh.AuthMethod

	if u.Password != "" {
		slog.Debug("Using password authentication", "hostname", u.Hostname)
		authMethod = ssh.Password(u.Password)
	} else {
		slog.Debug("Using public key authentication", "hostname", u.Hostname)
		var keyManager SSHKeyManager
		if u.KeyPassphrase != "" {
			keyManager = FileSSHKeyManager{}
		} else {
			keyManager = AgentSSHKeyManager{}
		}

		keys, err := keyManager.ReadPrivateKeys(u.KeyPassphrase)
		if err != nil {
			return nil, err
		}

		authMethod = ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
			return keys, nil
		})
	}

	return &ssh.ClientConfig{
		User:            u.User,
		Auth:            []ssh.AuthMethod{authMethod},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}, nil
}

func (u *UnixCommandManager) RunRemote(ctx context.Context, config CommandConfig) (CommandResult, error) {
	slog.Debug("Executing remote command", "hostname", u.Hostname, "command", config.Command)

	if u.SSHClient == nil {
		return CommandResult{}, errors.New("SSHClient is not initialized")
	}

	sshConfig, err := u.getSSHConfig()
	if err != nil {
		return CommandResult{}, err
	}

	var dialTimeout time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		dialTimeout = time.Until(deadline)
	} else {
		dialTimeout = 15 * time.Minute
	}

	client, err := u.SSHClient.Dial("tcp", u.Hostname+":22", sshConfig, dialTimeout)
	if err != nil {
		return CommandResult{}, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return CommandResult{}, err
	}
	defer session.Close()

	cmdStr := config.Command
	if len(config.Args) > 0 {
		cmdStr += " " + strings.Join(config.Args, " ")
	}
	if config.Dir != "" {
		cmdStr = "cd " + config.Dir + " && " + cmdStr
	}
	for _, kv := range config.Env {
		cmdStr = kv + " " + cmdStr
	}
	if config.Sudo {
		cmdStr = "sudo -S " + cmdStr
		session.Stdin = strings.NewReader(u.SudoPassword + "\n")
	}

	start := time.Now()

	var stdout, stderr strings.Builder
	if config.Interactive {
		session.Stdout = os.Stdout
		session.Stderr = os.Stderr
	} else {
		session.Stdout = &stdout
		session.Stderr = &stderr
	}

	outputCh := make(chan CommandResult, 1)
	go func() {
		var result CommandResult
		if err := session.Run(cmdStr); err != nil {
			slog.Debug("Remote command failed", "command", cmdStr, "error", err)
			result.ExitCode = getRemoteExitCode(err)
		}
		result.STDOUT = stdout.String()
		result.STDERR = stderr.String()
		outputCh <- result
	}()

	select {
	case result := <-outputCh:
		result.Duration = time.Since(start)
		result.Timestamp = start
		result.Command = cmdStr

		if strings.Contains(result.STDERR, "incorrect password") {
			return result, errors.New("sudo: incorrect password provided")
		}
		if strings.Contains(result.STDERR, "is not in the sudoers file") {
			return result, errors.New("sudo: user is not in the sudoers file")
		}
		if result.ExitCode != 0 {
			return result, errors.New("remote command exited with non-zero status")
		}
		return result, nil

	case <-ctx.Done():
		return CommandResult{Command: cmdStr}, ErrCancelled
	}
}

func (u *UnixCommandManager) Run(ctx context.Context, config CommandConfig) (CommandResult, error) {
	if u.isLocal() {
		slog.Debug("Running local command", "command", config.Command)
		return u.RunLocal(ctx, config)
	}

	slog.Debug("Running remote command", "hostname", u.Hostname, "command", config.Command)
	return u.RunRemote(ctx, config)
}

// HasCommand reports whether an executable is on PATH for the target host.
func (u *UnixCommandManager) HasCommand(ctx context.Context, name string) bool {
	if u.isLocal() {
		_, err := exec.LookPath(name)
		return err == nil
	}

	result, err := u.RunRemote(ctx, CommandConfig{
		Command: "command",
		Args:    []string{"-v", name},
	})
	return err == nil && result.ExitCode == 0
}

func (u *UnixCommandManager) isLocal() bool {
	return u.Hostname == "" || u.Hostname == "localhost" || u.Hostname == "127.0.0.1"
}

func getExitCode(err error) int {
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			status := exitError.Sys().(syscall.WaitStatus)
			return status.ExitStatus()
		}
	}
	return 0
}

func getRemoteExitCode(err error) int {
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus()
	}
	if err != nil {
		return 1
	}
	return 0
}
