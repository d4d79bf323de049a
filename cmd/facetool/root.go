package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/config"
)

// Version is the application version.
const Version = "0.1.0"

type rootOptions struct {
	env    string
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "facetool",
		Short:         "Training-data tooling for the face recognition models",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = config.NewLogger(opts.env)
		},
	}
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	cmd.PersistentFlags().StringVar(&opts.env, "env", "production", "Log format: production (JSON) or development (text)")

	cmd.AddCommand(
		newPackCmd(opts),
		newInspectCmd(),
		newTrainConfigCmd(),
	)
	return cmd
}
