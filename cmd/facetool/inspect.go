package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/dataset"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/recordio"
)

func newInspectCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect <dir>",
		Short: "Print the header and records of a packed dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			r, err := recordio.Open(filepath.Join(dir, dataset.IndexFile), filepath.Join(dir, dataset.RecFile))
			if err != nil {
				return err
			}
			defer func() {
				_ = r.Close()
			}()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "records: %d\n", r.Len())

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLOT\tID\tLABEL\tBYTES")
			for i, key := range r.Keys() {
				if limit > 0 && i >= limit {
					break
				}
				h, payload, err := r.Read(key)
				if err != nil {
					return err
				}
				label := fmt.Sprintf("%g", h.Label)
				if len(h.Labels) > 0 {
					label = fmt.Sprintf("%g", h.Labels)
				}
				fmt.Fprintf(tw, "%d\t%d\t%s\t%d\n", key, h.ID, label, len(payload))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Records to print (0 = all)")
	return cmd
}
