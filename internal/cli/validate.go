package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sift/internal/filter"
	"github.com/roach88/sift/internal/qstring"
	"github.com/roach88/sift/internal/schema"
	"github.com/roach88/sift/internal/selection"
	"github.com/roach88/sift/internal/sqlexpr"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	SchemaDir string
	SuiteFile string
}

// NewValidateCommand creates the validate subcommand.
func NewValidateCommand(root *RootOptions) *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate schema definitions and filter suites",
		Long: `Load a directory of CUE entity definitions and report what it declares.
With --suite, additionally verify that every filter in the suite builds and
compiles against the schema and that every selection path resolves.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.SchemaDir, "schema", "", "directory of CUE entity definitions (required)")
	cmd.Flags().StringVar(&opts.SuiteFile, "suite", "", "YAML filter suite to validate against the schema")
	cmd.MarkFlagRequired("schema")

	return cmd
}

func runValidate(cmd *cobra.Command, root *RootOptions, opts *ValidateOptions) error {
	reg, err := schema.LoadDir(opts.SchemaDir)
	if err != nil {
		return err
	}

	type entityReport struct {
		Name       string `json:"name"`
		Attributes int    `json:"attributes"`
		Relations  int    `json:"relations"`
	}
	var reports []entityReport
	for _, name := range reg.Names() {
		ent, _ := reg.Get(name)
		rel := 0
		for _, attr := range ent.Attributes {
			if attr.Relation != nil {
				rel++
			}
		}
		reports = append(reports, entityReport{Name: name, Attributes: len(ent.Attributes), Relations: rel})
	}

	if root.Format == "json" {
		if err := json.NewEncoder(cmd.OutOrStdout()).Encode(reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			fmt.Fprintf(cmd.OutOrStdout(), "entity %s: %d attributes (%d relations)\n", r.Name, r.Attributes, r.Relations)
		}
	}

	if opts.SuiteFile == "" {
		return nil
	}

	suite, err := LoadSuite(opts.SuiteFile)
	if err != nil {
		return err
	}
	ent, ok := reg.Get(suite.Entity)
	if !ok {
		return fmt.Errorf("suite entity %q not found in schema directory", suite.Entity)
	}

	compiler := sqlexpr.New(ent).Compiler()
	for _, sf := range suite.Filters {
		raw := sf.Filter
		if raw == nil {
			raw, err = qstring.Parse(sf.Query)
			if err != nil {
				return fmt.Errorf("filter %q: %w", sf.Name, err)
			}
		}
		group, err := filter.Build(raw)
		if err != nil {
			return fmt.Errorf("filter %q: %w", sf.Name, err)
		}
		if _, err := compiler.Compile(group); err != nil {
			return fmt.Errorf("filter %q: %w", sf.Name, err)
		}
		if len(sf.Selections) > 0 {
			if _, err := selection.Resolve(reg, suite.Entity, sf.Selections); err != nil {
				return fmt.Errorf("filter %q selections: %w", sf.Name, err)
			}
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "suite ok: %d filters\n", len(suite.Filters))
	return nil
}
