package main

import (
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/opsauth"
	"github.com/MrEthical07/opsauth/gateway"
	"github.com/MrEthical07/opsauth/internal/logging"
)

type globalOptions struct {
	envFiles    []string
	apiURL      string
	storage     string
	sessionFile string
	redisAddr   string
	logLevel    string
	logJSON     bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "opsctl",
		Short:         "Operations console session client",
		Long:          "Log in to the operations console API, inspect the saved session, and check route access.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to read OPSAUTH_* settings from (default .env)")
	f.StringVar(&opts.apiURL, "api-url", "", "authentication API base URL")
	f.StringVar(&opts.storage, "storage", "", "session storage backend: memory, file, or redis")
	f.StringVar(&opts.sessionFile, "session-file", "", "session file used by the file backend")
	f.StringVar(&opts.redisAddr, "redis-addr", "", "redis address used by the redis backend")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, or error")
	f.BoolVar(&opts.logJSON, "log-json", false, "write logs as JSON")

	root.AddCommand(
		loginCmd(opts),
		logoutCmd(opts),
		registerCmd(opts),
		whoamiCmd(opts),
		canCmd(opts),
		statusCmd(opts),
		stubServerCmd(opts),
	)
	return root
}

// config loads settings from dotenv files and the environment, then applies
// flags given on the command line.
func (o *globalOptions) config(cmd *cobra.Command) (opsauth.Config, error) {
	cfg, err := opsauth.LoadConfig(o.envFiles...)
	if err != nil {
		return opsauth.Config{}, err
	}

	if o.apiURL != "" {
		cfg.Gateway.BaseURL = o.apiURL
	}
	if o.storage != "" {
		cfg.Storage.Backend = opsauth.StorageBackend(strings.ToLower(o.storage))
	}
	if o.sessionFile != "" {
		cfg.Storage.FilePath = o.sessionFile
	}
	if o.redisAddr != "" {
		cfg.Storage.RedisAddr = o.redisAddr
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = o.logJSON
	}

	if err := cfg.Validate(); err != nil {
		return opsauth.Config{}, err
	}
	return cfg, nil
}

func (o *globalOptions) logger(cmd *cobra.Command, cfg opsauth.Config) (*log.Logger, error) {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		Output: cmd.ErrOrStderr(),
	})
}

// open builds a Manager and restores the saved session. An unreachable
// server is logged and leaves the Manager logged out with the saved session
// intact.
func (o *globalOptions) open(cmd *cobra.Command) (*opsauth.Manager, error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := o.logger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	m, err := opsauth.New().WithConfig(cfg).WithLogger(logger).Build()
	if err != nil {
		return nil, err
	}
	if err := m.Initialize(cmd.Context()); err != nil {
		if !errors.Is(err, gateway.ErrNetwork) {
			m.Teardown()
			return nil, err
		}
		logger.Warn("saved session could not be confirmed", "err", err)
	}
	return m, nil
}
