package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig"
)

type rootOptions struct {
	configPath string
	host       string
	debug      bool
	insecure   bool

	client *s3sig.Client
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "s3sig [command] [flags]",
		Short:        "Signature V2 S3 command-line client",
		Long:         `s3sig sends single signed requests to an S3 compatible endpoint.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&opts.host, "host", "", "endpoint host[:port], overrides the config")
	flags.BoolVar(&opts.debug, "debug", false, "log requests to stderr")
	flags.BoolVar(&opts.insecure, "insecure", false, "use plain HTTP instead of TLS")

	cmd.AddCommand(
		newHeadCmd(opts),
		newGetCmd(opts),
		newPutCmd(opts),
		newRmCmd(opts),
		newACLCmd(opts),
		newMbCmd(opts),
		newRbCmd(opts),
	)
	return cmd
}

// setup loads the configuration and builds the client shared by subcommands.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	if o.host != "" {
		cfg.Host = o.host
	}
	if o.insecure {
		cfg.DisableSSL = true
	}

	timeout, err := cfg.timeout()
	if err != nil {
		return err
	}

	cred, err := cfg.Credential(cmd.Context())
	if err != nil {
		return err
	}

	logger := slog.New(slog.DiscardHandler)
	if o.debug {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	o.client, err = s3sig.New(cred,
		s3sig.WithLogger(logger),
		s3sig.WithTimeout(timeout),
		s3sig.WithDisableSSL(cfg.DisableSSL),
	)
	return err
}
