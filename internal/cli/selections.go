package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sift/internal/schema"
	"github.com/roach88/sift/internal/selection"
)

// SelectionsOptions holds flags for the selections command.
type SelectionsOptions struct {
	SchemaDir string
	Entity    string
	MaxDepth  int
}

// NewSelectionsCommand creates the selections subcommand.
func NewSelectionsCommand(root *RootOptions) *cobra.Command {
	opts := &SelectionsOptions{}

	cmd := &cobra.Command{
		Use:   "selections [paths...]",
		Short: "Expand dotted selection paths into a selection tree",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelections(cmd, root, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.SchemaDir, "schema", "", "directory of CUE entity definitions (required)")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "origin entity (required)")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", selection.DefaultMaxDepth, "relation expansion depth ceiling")
	cmd.MarkFlagRequired("schema")
	cmd.MarkFlagRequired("entity")

	return cmd
}

func runSelections(cmd *cobra.Command, root *RootOptions, opts *SelectionsOptions, paths []string) error {
	reg, err := schema.LoadDir(opts.SchemaDir)
	if err != nil {
		return err
	}

	tree, err := selection.ResolveDepth(reg, opts.Entity, paths, opts.MaxDepth)
	if err != nil {
		return err
	}

	if root.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(tree)
	}

	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
