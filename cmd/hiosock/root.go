// File: cmd/hiosock/root.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"github.com/containerd/log"
	"github.com/momentics/hiosock/control"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	logLevel   string
	store      *control.ConfigStore
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "hiosock",
		Short:         "TCP socket probe, echo server and resolver",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path to a TOML configuration file")
	flags.StringVarP(&opts.logLevel, "log-level", "l", "", `Log level ("debug"|"info"|"warn"|"error"), overrides the config file`)

	cmd.AddCommand(
		newProbeCommand(opts),
		newServeCommand(opts),
		newResolveCommand(opts),
	)
	return cmd
}

// load reads the config file, applies the log level and installs the
// reload listener that keeps the level in sync.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := control.LoadConfig(o.configFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		return errors.Wrapf(err, "log level %q", cfg.LogLevel)
	}
	o.store = control.NewConfigStore(cfg)
	o.store.OnReload(func(c control.Config) {
		if cmd.Flags().Changed("log-level") {
			c.LogLevel = o.logLevel
		}
		if err := log.SetLevel(c.LogLevel); err != nil {
			log.L.WithError(err).Warn("ignoring log level from reloaded config")
		}
	})
	return nil
}

// reload re-reads the config file. Without one there is nothing to do.
func (o *rootOptions) reload() error {
	if o.configFile == "" {
		return nil
	}
	return o.store.Reload(o.configFile)
}
