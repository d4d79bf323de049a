package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/dataset"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/training"
)

type packOptions struct {
	root         string
	save         string
	labelColumn  string
	updateConfig string
	quiet        bool
}

func newPackCmd(root *rootOptions) *cobra.Command {
	opts := &packOptions{}

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Convert train.lst into train.rec and train.idx",
		Long: `Reads <save>/train.lst (index, label, relative path per line), loads every
image from <root> and writes an indexed record container next to the list.
Slot 0 holds a header whose label encodes max(index)+1 twice.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			column, err := dataset.ParseLabelColumn(opts.labelColumn)
			if err != nil {
				return err
			}

			packOpts := dataset.Options{
				ImageRoot:   opts.root,
				SaveDir:     opts.save,
				LabelColumn: column,
				Logger:      root.logger,
			}
			if !opts.quiet {
				packOpts.Progress = cmd.ErrOrStderr()
			}

			res, err := dataset.Pack(cmd.Context(), packOpts)
			if err != nil {
				return fmt.Errorf("pack: %w", err)
			}

			if opts.updateConfig != "" {
				cfg, err := training.Load(opts.updateConfig)
				if err != nil {
					return err
				}
				dir, err := filepath.Abs(opts.save)
				if err != nil {
					return fmt.Errorf("resolve save dir: %w", err)
				}
				cfg.ApplyPack(dir, res.Records, res.NumClasses())
				if err := cfg.Save(opts.updateConfig); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "packed %d records into %s\n", res.Records, res.RecPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", "", "Image root directory the list paths are relative to")
	cmd.Flags().StringVar(&opts.save, "save", "", "Directory holding train.lst; receives train.rec and train.idx")
	cmd.Flags().StringVar(&opts.labelColumn, "label-column", string(dataset.LabelPrimary), "List column written as record label: primary or secondary")
	cmd.Flags().StringVar(&opts.updateConfig, "update-config", "", "Training config YAML to point at the packed dataset")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Hide the progress bar")
	_ = cmd.MarkFlagRequired("root")
	_ = cmd.MarkFlagRequired("save")

	return cmd
}
