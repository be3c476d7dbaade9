package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/testdino/insights/internal/insights"
	"github.com/testdino/insights/internal/runs"
)

var (
	aggBranch   string
	aggCategory string
	aggView     string
	aggFormat   string
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate [file|-]",
	Short: "Summarise failures from a runs file",
	Long: `Aggregate reads runs as JSON (or YAML for .yaml/.yml files) from a file or
stdin and prints the selected view. The default view lists persistent,
emerging and recovered failures over the trailing window.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAggregate,
}

func init() {
	aggregateCmd.Flags().StringVar(&aggBranch, "branch", insights.AllBranches, "only runs of this branch")
	aggregateCmd.Flags().StringVar(&aggCategory, "category", "", "only test cases of this category")
	aggregateCmd.Flags().StringVar(&aggView, "view", "failures",
		"view to print (failures, clusters, heatmap, timeline, summary, migrations)")
	aggregateCmd.Flags().StringVar(&aggFormat, "format", formatJSON, "output format (json, yaml)")

	rootCmd.AddCommand(aggregateCmd)
}

func runAggregate(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}

	in, err := readRuns(path)
	if err != nil {
		return err
	}

	in = insights.FilterBranch(in, aggBranch)
	if aggCategory != "" {
		cat, err := runs.ParseCategory(aggCategory)
		if err != nil {
			return err
		}
		in = insights.FilterCategory(in, cat)
	}

	view, err := buildView(aggView, in)
	if err != nil {
		return err
	}

	return writeOutput(os.Stdout, aggFormat, view)
}

func buildView(name string, in []runs.Run) (any, error) {
	switch name {
	case "failures":
		return insights.Aggregate(in), nil
	case "clusters":
		return insights.ErrorClusters(in), nil
	case "heatmap":
		return insights.BranchHeatmap(in), nil
	case "timeline":
		return insights.DailyTimeline(in), nil
	case "summary":
		return insights.SummaryCards(in, 3), nil
	case "migrations":
		return insights.CategoryMigrations(in), nil
	}
	return nil, fmt.Errorf("unknown view %q", name)
}

func readRuns(path string) ([]runs.Run, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading runs: %w", err)
	}

	var out []runs.Run
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &out)
	default:
		err = json.Unmarshal(data, &out)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding runs from %s: %w", path, err)
	}

	return out, nil
}
