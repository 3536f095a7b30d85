// Command evals inspects the MCP tool selection suites.
//
// Usage:
//
//	go run ./cmd/evals --suite all
//	go run ./cmd/evals --dir ./evals --suite confusion_pairs --verbose
//
// It loads the suites, checks them against the registered tools and reports
// coverage. Scoring an LLM needs an evals.ToolSelector implementation.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/olgasafonova/mast-mcp-server/evals"
	"github.com/olgasafonova/mast-mcp-server/tools"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dir     string
		suite   string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:          "evals",
		Short:        "Inspect the MAST MCP tool selection evaluation suites",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			suites, err := evals.LoadAllEvals(dir)
			if err != nil {
				return err
			}

			fmt.Println("MAST MCP Server - Evaluation Framework")
			fmt.Println("======================================")
			fmt.Println()

			switch suite {
			case "tool_selection":
				printToolSelection(suites.ToolSelection, verbose)
			case "confusion_pairs":
				printConfusionPairs(suites.ConfusionPairs, verbose)
			case "arguments":
				printArguments(suites.Arguments, verbose)
			case "all":
				return printAll(suites, verbose)
			default:
				return fmt.Errorf("unknown suite: %s", suite)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory containing eval JSON files (default: built-in suites)")
	cmd.Flags().StringVar(&suite, "suite", "all", "Suite to load: tool_selection, confusion_pairs, arguments, or all")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show detailed test information")

	return cmd
}

func printToolSelection(suite *evals.ToolSelectionSuite, verbose bool) {
	fmt.Printf("Tool Selection Suite: %s (v%s)\n", suite.Name, suite.Version)
	fmt.Printf("%s\n", suite.Description)
	fmt.Printf("Total Tests: %d\n\n", len(suite.Tests))

	categories := make(map[string]int)
	byTool := make(map[string]int)
	for _, test := range suite.Tests {
		categories[test.Category]++
		byTool[test.ExpectedTool]++
	}
	printCounts("Tests by Category", categories)
	printCounts("Tests by Tool", byTool)

	if verbose {
		fmt.Println("Test Cases:")
		for _, test := range suite.Tests {
			fmt.Printf("  [%s] %s\n", test.ID, test.Input)
			fmt.Printf("    -> %s %v\n", test.ExpectedTool, test.ExpectedArgs)
			if len(test.NotTools) > 0 {
				fmt.Printf("    not: %v\n", test.NotTools)
			}
		}
		fmt.Println()
	}
}

func printConfusionPairs(suite *evals.ConfusionPairSuite, verbose bool) {
	total := 0
	for _, pair := range suite.Pairs {
		total += len(pair.Tests)
	}

	fmt.Printf("Confusion Pairs Suite: %s (v%s)\n", suite.Name, suite.Version)
	fmt.Printf("%s\n", suite.Description)
	fmt.Printf("Total Pairs: %d, Tests: %d\n\n", len(suite.Pairs), total)

	for _, pair := range suite.Pairs {
		fmt.Printf("  %s: %v\n", pair.ID, pair.Tools)
		fmt.Printf("    Rule: %s\n", pair.Disambiguation)
		if verbose {
			for _, test := range pair.Tests {
				fmt.Printf("      %q -> %s (%s)\n", test.Input, test.Expected, test.Reason)
			}
		}
	}
	fmt.Println()
}

func printArguments(suite *evals.ArgumentSuite, verbose bool) {
	fmt.Printf("Argument Suite: %s (v%s)\n", suite.Name, suite.Version)
	fmt.Printf("%s\n", suite.Description)
	fmt.Printf("Total Tests: %d\n\n", len(suite.Tests))

	byTool := make(map[string]int)
	for _, test := range suite.Tests {
		byTool[test.Tool]++
	}
	printCounts("Tests by Tool", byTool)

	fmt.Println("Argument Rules:")
	fmt.Printf("  Radius:   %s\n", suite.Rules.RadiusFormat)
	fmt.Printf("  Obs IDs:  %s\n", suite.Rules.ObsIDsFormat)
	fmt.Printf("  Target:   %s\n", suite.Rules.TargetFormat)
	fmt.Printf("  Booleans: %s\n\n", suite.Rules.BooleanHandling)

	if verbose {
		fmt.Println("Test Cases:")
		for _, test := range suite.Tests {
			fmt.Printf("  [%s] %s\n", test.ID, test.Input)
			fmt.Printf("    Tool: %s\n", test.Tool)
			fmt.Printf("    Required: %v\n", test.RequiredArgs)
			fmt.Printf("    Expected: %v\n", test.ExpectedArgs)
			if len(test.ForbiddenArgs) > 0 {
				fmt.Printf("    Forbidden: %v\n", test.ForbiddenArgs)
			}
			if test.ArgNotes != "" {
				fmt.Printf("    Notes: %s\n", test.ArgNotes)
			}
		}
	}
}

func printAll(suites *evals.Suites, verbose bool) error {
	printToolSelection(suites.ToolSelection, verbose)
	printConfusionPairs(suites.ConfusionPairs, verbose)
	printArguments(suites.Arguments, verbose)

	registered := make([]string, 0, len(tools.AllTools))
	for _, spec := range tools.AllTools {
		registered = append(registered, spec.Name)
	}
	unknown, uncovered := suites.CheckTools(registered)

	fmt.Printf("Total Evaluation Tests: %d\n", suites.TotalTests())
	fmt.Printf("Tool Coverage: %d of %d registered tools\n", len(registered)-len(uncovered), len(registered))
	for _, name := range uncovered {
		fmt.Printf("  no cases: %s\n", name)
	}

	if len(unknown) > 0 {
		return fmt.Errorf("suites reference unregistered tools: %v", unknown)
	}
	return nil
}

func printCounts(title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("%s:\n", title)
	for _, k := range keys {
		fmt.Printf("  %-35s: %d\n", k, counts[k])
	}
	fmt.Println()
}
