package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"speclens/internal/parse"
	"speclens/internal/verify"
)

var (
	verifyFlags   runFlags
	verifyShowAll bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file.py>",
	Short: "Run dynamic verification on every unit of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRunConfig(cmd, &verifyFlags)
		if err != nil {
			return err
		}

		mod, err := parse.File(args[0])
		if err != nil {
			return err
		}
		defer mod.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Unit\tLabel\tAttempted\tExcluded\tViolations\n")
		fmt.Fprintf(w, "----\t-----\t---------\t--------\t----------\n")

		risky := 0
		for _, u := range mod.Units {
			rep, err := verify.Unit(u, mod.Source, verify.Options{
				Trials:     cfg.Trials,
				Seed:       cfg.Seed,
				StepBudget: cfg.StepBudget,
			})
			if err != nil {
				return err
			}
			if rep.Label == verify.Risky {
				risky++
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n",
				u.ID(), rep.Label, rep.Attempted, rep.Excluded, rep.Violations)

			if verifyShowAll {
				for i, trial := range rep.Trials {
					if trial.Outcome == verify.Pass {
						continue
					}
					fmt.Fprintf(w, "  trial %d\t%s\t\t\t%s\n", i, trial.Outcome, trial.Detail)
				}
			}
		}
		w.Flush()

		fmt.Fprintf(cmd.OutOrStdout(), "\n%d units, %d risky\n", len(mod.Units), risky)
		return nil
	},
}

func init() {
	verifyFlags.register(verifyCmd)
	verifyCmd.Flags().BoolVar(&verifyShowAll, "show-trials", false, "print excluded and violating trials")
}
