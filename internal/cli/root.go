// Package cli holds the storefront command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/Mariodrm17/Practica1/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigDir string
}

func (o *RootOptions) loadConfig() (*config.Config, error) {
	return config.LoadFrom(o.ConfigDir)
}

// NewRootCommand creates the root command for the storefront binary.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Football merchandise storefront with live chat",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "./config", "directory holding config.yaml")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}
