package commands

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/colonq/clonk/internal/client/auth"
	"github.com/colonq/clonk/internal/client/config"
	"github.com/colonq/clonk/internal/client/errors"
	"github.com/colonq/clonk/internal/client/logging"
	"github.com/colonq/clonk/internal/client/portal"
)

// version is overridden at build time with -ldflags "-X ...commands.version=..."
var version = "0.1.0"

// Options controls where commands send requests and keep credentials.
// Zero values select the production endpoints and ~/.clonk paths.
type Options struct {
	Endpoints       config.Endpoints
	CredentialsPath string
	ConfigPath      string
}

// app holds state shared by subcommands for one invocation
type app struct {
	opts   Options
	cfg    *config.Config
	logger *logrus.Logger
}

// Execute executes the root command with production settings
func Execute() error {
	return NewRootCmd(Options{}).Execute()
}

// NewRootCmd builds the command tree
func NewRootCmd(opts Options) *cobra.Command {
	if opts.Endpoints == (config.Endpoints{}) {
		opts.Endpoints = config.DefaultEndpoints()
	}
	a := &app{opts: opts}

	rootCmd := &cobra.Command{
		Use:   "clonk",
		Short: "colonq portal CLI client",
		Long: `clonk logs in to the colonq portal and redeems codes with the stored session.

Run 'clonk auth login' once, then 'clonk redeem <name>'.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	// Global flags available to all commands
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format (or use CLONK_JSON env var)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging (or use CLONK_VERBOSE env var)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "HTTP request timeout, 0 for none (or use CLONK_TIMEOUT env var)")

	rootCmd.SetVersionTemplate("clonk version {{.Version}}\n")

	rootCmd.AddCommand(newAuthCmd(a))
	rootCmd.AddCommand(newRedeemCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// setup resolves configuration and the logger before any subcommand runs
func (a *app) setup(cmd *cobra.Command, args []string) error {
	configPath := a.opts.ConfigPath
	if configPath == "" {
		var err error
		if configPath, err = config.DefaultConfigPath(); err != nil {
			return errors.WithCode(errors.ExitGeneralError, err, "")
		}
	}

	v, err := config.NewViper(configPath)
	if err != nil {
		return errors.WithCode(errors.ExitInvalidArguments, err, "failed to load configuration")
	}

	root := cmd.Root().PersistentFlags()
	for _, name := range []string{"json", "verbose", "timeout"} {
		if err := v.BindPFlag(name, root.Lookup(name)); err != nil {
			return errors.WithCode(errors.ExitGeneralError, err, "failed to bind flag")
		}
	}

	cfg, err := config.LoadWithViper(v)
	if err != nil {
		return errors.WithCode(errors.ExitInvalidArguments, err, "")
	}
	if err := cfg.Validate(); err != nil {
		return errors.WithCode(errors.ExitInvalidArguments, err, "invalid configuration")
	}

	a.cfg = cfg
	a.logger = logging.New(cmd.ErrOrStderr(), cfg.EffectiveLogLevel(), cfg.LogFormat)
	a.logger.WithFields(logrus.Fields{
		"config_file": configPath,
		"timeout":     cfg.Timeout.String(),
	}).Debug("configuration loaded")

	return nil
}

// store opens the credential store
func (a *app) store() (*auth.Store, error) {
	if a.opts.CredentialsPath != "" {
		return auth.NewStoreAt(a.opts.CredentialsPath), nil
	}
	store, err := auth.NewStore()
	if err != nil {
		return nil, errors.WithCode(errors.ExitGeneralError, err, "")
	}
	return store, nil
}

// portalClient returns a portal client configured from the resolved settings
func (a *app) portalClient() *portal.Portal {
	return portal.New(a.opts.Endpoints, a.timeout(), a.logger)
}

func (a *app) timeout() time.Duration {
	if a.cfg == nil {
		return 0
	}
	return a.cfg.Timeout
}

func (a *app) jsonOutput() bool {
	return a.cfg != nil && a.cfg.JSON
}
