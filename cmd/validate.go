package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mvtfilter/internal/filterdoc"
)

var validateCmd = &cobra.Command{
	Use:   "validate <filter.json>",
	Short: "Compile a filter document and report whether it is valid",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError("reading %q: %w", path, err)
	}

	doc, err := filterdoc.Load(data)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: invalid\n%v\n", path, err)
		return newUsageError("filter document %q is invalid: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: valid, %d rule(s)\n", path, len(doc.Rules))
	for _, r := range doc.Rules {
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s: %d layer(s)\n", r.ID, len(r.Layers))
	}
	return nil
}
