package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/training"
)

func newTrainConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train-config",
		Short: "Show or validate training configuration files",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show [file]",
			Short: "Print the effective configuration (defaults when no file is given)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := training.Default()
				if len(args) == 1 {
					var err error
					if cfg, err = training.Load(args[0]); err != nil {
						return err
					}
				}
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("encode config: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "validate <file>",
			Short: "Check a configuration file for out-of-range values",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := training.Load(args[0])
				if err != nil {
					return err
				}
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
				return nil
			},
		},
	)
	return cmd
}
