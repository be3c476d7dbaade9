package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/testdino/insights/internal/runs"
)

var (
	genRuns   int
	genTests  int
	genSeed   int64
	genFormat string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print a deterministic set of sample test runs",
	Long: `Generate prints test runs produced by the seeded generator. The same
--runs, --tests and --seed always produce the same output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if genRuns < 0 || genTests < 0 {
			return fmt.Errorf("--runs and --tests must not be negative")
		}
		return writeOutput(os.Stdout, genFormat, runs.Generate(genRuns, genTests, genSeed))
	},
}

func init() {
	generateCmd.Flags().IntVar(&genRuns, "runs", 20, "number of runs")
	generateCmd.Flags().IntVar(&genTests, "tests", 10, "number of distinct tests (at most 25)")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 1337, "generator seed")
	generateCmd.Flags().StringVar(&genFormat, "format", formatJSON, "output format (json, yaml)")

	rootCmd.AddCommand(generateCmd)
}
