package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"speclens/internal/dataset"
	"speclens/internal/logging"
	"speclens/internal/store"
)

var (
	datasetFlags runFlags
	datasetStore string
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Build and inspect labeled training datasets",
}

var datasetBuildCmd = &cobra.Command{
	Use:   "build <pool-dir> <out.csv>",
	Short: "Label every unit in a pool and write the dataset CSV",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRunConfig(cmd, &datasetFlags)
		if err != nil {
			return err
		}
		if datasetStore != "" {
			cfg.Store = datasetStore
		}
		logger := logging.New("cli")

		recs, err := dataset.Build(cmd.Context(), args[0], dataset.Options{
			Trials:     cfg.Trials,
			Seed:       cfg.Seed,
			StepBudget: cfg.StepBudget,
			Parallel:   cfg.Parallel,
		})
		if err != nil {
			return err
		}

		out, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("create %s: %w", args[1], err)
		}
		defer out.Close()
		if err := dataset.WriteCSV(out, recs); err != nil {
			return err
		}

		if cfg.Store != "" {
			st, err := store.Open(cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()
			runID, err := st.SaveRun(store.RunMeta{
				PoolPath:   args[0],
				Trials:     cfg.Trials,
				Seed:       cfg.Seed,
				StepBudget: cfg.StepBudget,
				Stats:      dataset.Summarize(recs),
			}, recs)
			if err != nil {
				return err
			}
			logger.Info("run saved", "store", cfg.Store, "run_id", runID)
		}

		s := dataset.Summarize(recs)
		fmt.Fprintf(cmd.OutOrStdout(), "%d records (%d SAFE, %d RISKY) -> %s\n",
			s.Records, s.Safe, s.Risky, args[1])
		return nil
	},
}

var datasetStatsCmd = &cobra.Command{
	Use:   "stats <dataset.csv>",
	Short: "Summarize a previously built dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()

		recs, err := dataset.ReadCSV(f)
		if err != nil {
			return err
		}
		s := dataset.Summarize(recs)

		files := map[string]int{}
		for _, r := range recs {
			files[r.SourceFile]++
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Records\t%d\n", s.Records)
		fmt.Fprintf(w, "Safe\t%d\n", s.Safe)
		fmt.Fprintf(w, "Risky\t%d\n", s.Risky)
		fmt.Fprintf(w, "Files\t%d\n", len(files))
		w.Flush()
		return nil
	},
}

var datasetRunsCmd = &cobra.Command{
	Use:   "runs <store.db>",
	Short: "List labeling runs recorded in a store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(args[0])
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.Runs()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tPool\tTrials\tSeed\tRecords\tSafe\tRisky\tCreated\n")
		fmt.Fprintf(w, "--\t----\t------\t----\t-------\t----\t-----\t-------\n")
		for _, m := range runs {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
				m.ID, m.PoolPath, m.Trials, m.Seed,
				m.Stats.Records, m.Stats.Safe, m.Stats.Risky, m.CreatedAt)
		}
		w.Flush()
		return nil
	},
}

func init() {
	datasetFlags.register(datasetBuildCmd)
	datasetBuildCmd.Flags().StringVar(&datasetStore, "store", "", "SQLite path for run history")
	datasetCmd.AddCommand(datasetBuildCmd)
	datasetCmd.AddCommand(datasetStatsCmd)
	datasetCmd.AddCommand(datasetRunsCmd)
}
