package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"speclens/internal/config"
	"speclens/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:   "speclens",
	Short: "Contract-driven SAFE/RISKY labeling for annotated source pools",
	Long: "Speclens parses contract-annotated functions, exercises them with\n" +
		"randomized trials, and labels each one SAFE or RISKY from the observed\n" +
		"contract violations.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(flagLogLevel)
		if err != nil {
			return err
		}
		logging.Init(level, flagLogFormat)
		return nil
	},
}

// loadRunConfig merges the config file with any run flags set on cmd.
// A flag given on the command line always wins over the file.
func loadRunConfig(cmd *cobra.Command, flags *runFlags) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	fs := cmd.Flags()
	if fs.Changed("trials") {
		cfg.Trials = flags.trials
	}
	if fs.Changed("seed") {
		cfg.Seed = flags.seed
	}
	if fs.Changed("step-budget") {
		cfg.StepBudget = flags.stepBudget
	}
	if fs.Changed("parallel") {
		cfg.Parallel = flags.parallel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// runFlags are the per-command overrides for the run configuration.
type runFlags struct {
	trials     int
	seed       int64
	stepBudget int
	parallel   int
}

// register attaches the run override flags to cmd.
func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.trials, "trials", 0, "trials per unit (overrides config)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "base seed for deterministic trials")
	cmd.Flags().IntVar(&f.stepBudget, "step-budget", 0, "interpreter steps per trial")
	cmd.Flags().IntVar(&f.parallel, "parallel", 0, "concurrent file workers")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log format (text, json)")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(datasetCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
