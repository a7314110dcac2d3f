package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/ini.v1"

	"github.com/unipkg/unipkg/unipkg/commandmanager"
	"github.com/unipkg/unipkg/unipkg/provider"
)

var (
	// Global flags shared across commands
	debug              bool
	hostName           string
	hostsFile          string
	providerName       string
	username           string
	sudoPasswordPrompt bool

	// Version is set by the build process
	Version string

	log          = logrus.New()
	sudoPassword string
	programLevel = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:   "unipkg",
	Short: "Cross-distribution package management",
	Long: `unipkg is a uniform interface over the native package managers of
Debian, Fedora, Arch, openSUSE, Gentoo and Void, with optional secondary
sources (PPA, COPR, OBS, overlays, Flatpak, source builds) on top.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command with the given context; the context
// carries the operator's interrupt signal.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug log level")
	rootCmd.PersistentFlags().StringVar(&hostName, "host", "", "Operate on a remote host over SSH instead of locally")
	rootCmd.PersistentFlags().StringVar(&hostsFile, "hosts-file", "", "Path to INI file with host inventory")
	rootCmd.PersistentFlags().StringVar(&providerName, "provider", "", "Force a provider (apt, dnf, pacman, zypper, emerge, xbps) instead of detecting")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "Username for SSH connections")
	rootCmd.PersistentFlags().BoolVar(&sudoPasswordPrompt, "sudo-password", false, "Prompt for the sudo password")
}

func setup(cmd *cobra.Command, args []string) error {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: programLevel})
	slog.SetDefault(slog.New(h))

	if debug {
		log.SetLevel(logrus.DebugLevel)
		programLevel.Set(slog.LevelDebug)
	} else {
		log.SetLevel(logrus.InfoLevel)
		programLevel.Set(slog.LevelInfo)
	}

	if sudoPasswordPrompt {
		fmt.Print("Enter the sudo password: ")
		passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading sudo password: %w", err)
		}
		sudoPassword = string(passwordBytes)
	}

	return nil
}

// GetVersion returns the current version string.
func GetVersion() string {
	if Version == "" {
		return "dev"
	}
	return Version
}

// readHostsFromFile loads the INI inventory: one section per group, one
// key per host.
func readHostsFromFile(filePath string) (map[string][]string, error) {
	cfg, err := ini.Load(filePath)
	if err != nil {
		return nil, err
	}

	hosts := make(map[string][]string)
	for _, section := range cfg.Sections() {
		name := section.Name()
		for _, key := range section.Keys() {
			hosts[name] = append(hosts[name], key.String())
		}
	}
	return hosts, nil
}

// targets resolves the hosts this invocation operates on. With no host
// flags it is the local machine.
func targets() ([]string, error) {
	if hostsFile != "" {
		hostsMap, err := readHostsFromFile(hostsFile)
		if err != nil {
			return nil, fmt.Errorf("reading hosts file: %w", err)
		}
		var hosts []string
		for group, groupHosts := range hostsMap {
			log.Debugf("Adding hosts from group %s", group)
			hosts = append(hosts, groupHosts...)
		}
		if len(hosts) == 0 {
			return nil, fmt.Errorf("hosts file %s contains no hosts", hostsFile)
		}
		return hosts, nil
	}
	if hostName != "" {
		return []string{hostName}, nil
	}
	return []string{"localhost"}, nil
}

func newCommandManager(host string) *commandmanager.UnixCommandManager {
	return &commandmanager.UnixCommandManager{
		Hostname:  host,
		SSHClient: commandmanager.RealSSHDialer{},
		Credentials: commandmanager.Credentials{
			User:         username,
			SudoPassword: sudoPassword,
		},
	}
}

// forEachTarget builds a provider per target host and applies fn,
// continuing past per-host failures.
func forEachTarget(ctx context.Context, fn func(ctx context.Context, host string, runner commandmanager.CommandManager, p provider.Provider) error) error {
	hosts, err := targets()
	if err != nil {
		return err
	}

	var errs *multierror.Error
	for _, host := range hosts {
		runner := newCommandManager(host)

		var p provider.Provider
		if providerName != "" {
			p, err = provider.New(provider.Family(providerName), runner, newStyledReporter())
		} else {
			p, err = provider.Detect(ctx, runner, newStyledReporter())
		}
		if err != nil {
			log.Errorf("Host %s: %v", host, err)
			errs = multierror.Append(errs, fmt.Errorf("host %s: %w", host, err))
			continue
		}

		log.Debugf("Host %s uses the %s provider", host, p.Name())
		if err := fn(ctx, host, runner, p); err != nil {
			log.Errorf("Host %s: %v", host, err)
			errs = multierror.Append(errs, fmt.Errorf("host %s: %w", host, err))
		}
	}
	return errs.ErrorOrNil()
}
