package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"speclens/internal/parse"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file.py>",
	Short: "List the verifiable units of a file and their contracts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mod, err := parse.File(args[0])
		if err != nil {
			return err
		}
		defer mod.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Unit\tLines\tRequires\tEnsures\tInvariants\tDropped\n")
		fmt.Fprintf(w, "----\t-----\t--------\t-------\t----------\t-------\n")
		for _, u := range mod.Units {
			fmt.Fprintf(w, "%s\t%d-%d\t%d\t%d\t%d\t%d\n",
				u.Signature(),
				u.StartLine, u.EndLine,
				len(u.Requires), len(u.Ensures), len(u.Invariants),
				len(u.DroppedContracts),
			)
		}
		w.Flush()

		for _, u := range mod.Units {
			for _, d := range u.DroppedContracts {
				fmt.Fprintf(cmd.OutOrStdout(), "dropped contract in %s: %s\n", u.ID(), d)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d units\n", len(mod.Units))
		return nil
	},
}
