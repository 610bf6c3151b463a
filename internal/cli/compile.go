package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sift/internal/filter"
	"github.com/roach88/sift/internal/qstring"
	"github.com/roach88/sift/internal/savedstore"
	"github.com/roach88/sift/internal/schema"
	"github.com/roach88/sift/internal/selection"
	"github.com/roach88/sift/internal/sqlexpr"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	SchemaDir  string
	Entity     string
	FilterFile string
	Query      string
	SuiteFile  string
	StorePath  string
	Label      string
}

// NewCompileCommand creates the compile subcommand.
func NewCompileCommand(root *RootOptions) *cobra.Command {
	opts := &CompileOptions{}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a filter into a boolean expression",
		Long: `Compile a filter description (a JSON filter file, a URL query string, or a
YAML suite of named filters) into a boolean expression against an entity
schema loaded from CUE definition files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.SchemaDir, "schema", "", "directory of CUE entity definitions (required)")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "entity to compile against")
	cmd.Flags().StringVar(&opts.FilterFile, "filter", "", "JSON filter file")
	cmd.Flags().StringVar(&opts.Query, "query", "", "URL query string, e.g. 'age[gte]=18&or[0].name.eq=Ann'")
	cmd.Flags().StringVar(&opts.SuiteFile, "suite", "", "YAML suite of named filters")
	cmd.Flags().StringVar(&opts.StorePath, "store", "", "also persist the compiled filter to this saved-filter database")
	cmd.Flags().StringVar(&opts.Label, "label", "", "label for the persisted filter")
	cmd.MarkFlagRequired("schema")

	return cmd
}

func runCompile(cmd *cobra.Command, root *RootOptions, opts *CompileOptions) error {
	reg, err := schema.LoadDir(opts.SchemaDir)
	if err != nil {
		return err
	}

	if opts.SuiteFile != "" {
		return compileSuite(cmd, root, reg, opts)
	}

	if opts.Entity == "" {
		return fmt.Errorf("--entity is required unless --suite is used")
	}
	raw, err := rawFilter(opts)
	if err != nil {
		return err
	}

	return compileOne(cmd, root, reg, opts, opts.Entity, "", raw, nil)
}

// rawFilter builds the raw filter tree from whichever input flag was used.
func rawFilter(opts *CompileOptions) (map[string]any, error) {
	switch {
	case opts.FilterFile != "" && opts.Query != "":
		return nil, fmt.Errorf("--filter and --query are mutually exclusive")

	case opts.FilterFile != "":
		data, err := os.ReadFile(opts.FilterFile)
		if err != nil {
			return nil, fmt.Errorf("read filter file: %w", err)
		}
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse filter file %s: %w", opts.FilterFile, err)
		}
		return raw, nil

	case opts.Query != "":
		values, err := url.ParseQuery(opts.Query)
		if err != nil {
			return nil, fmt.Errorf("parse query string: %w", err)
		}
		return qstring.ParseValues(values)

	default:
		return nil, fmt.Errorf("one of --filter, --query, or --suite is required")
	}
}

func compileSuite(cmd *cobra.Command, root *RootOptions, reg *schema.Registry, opts *CompileOptions) error {
	suite, err := LoadSuite(opts.SuiteFile)
	if err != nil {
		return err
	}
	for _, sf := range suite.Filters {
		raw := sf.Filter
		if raw == nil {
			raw, err = qstring.Parse(sf.Query)
			if err != nil {
				return fmt.Errorf("filter %q: %w", sf.Name, err)
			}
		}
		if err := compileOne(cmd, root, reg, opts, suite.Entity, sf.Name, raw, sf.Selections); err != nil {
			return fmt.Errorf("filter %q: %w", sf.Name, err)
		}
	}
	return nil
}

func compileOne(cmd *cobra.Command, root *RootOptions, reg *schema.Registry, opts *CompileOptions, entity, name string, raw map[string]any, selections []string) error {
	ent, ok := reg.Get(entity)
	if !ok {
		return fmt.Errorf("entity %q not found in schema directory", entity)
	}

	group, err := filter.Build(raw)
	if err != nil {
		return err
	}

	expr, err := sqlexpr.New(ent).Compiler().Compile(group)
	if err != nil {
		return err
	}

	fingerprint, err := filter.Fingerprint(group)
	if err != nil {
		return err
	}

	var tree selection.Tree
	if len(selections) > 0 {
		tree, err = selection.Resolve(reg, entity, selections)
		if err != nil {
			return err
		}
	}

	if opts.StorePath != "" {
		store, err := savedstore.Open(opts.StorePath)
		if err != nil {
			return err
		}
		defer store.Close()
		label := opts.Label
		if label == "" {
			label = name
		}
		saved, err := store.Save(context.Background(), label, group)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved: %s\n", saved.ID)
	}

	if root.Format == "json" {
		out := map[string]any{
			"expression":  expr,
			"fingerprint": fingerprint,
		}
		if name != "" {
			out["name"] = name
		}
		if tree != nil {
			out["selections"] = tree
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
	}

	if name != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, expr)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), expr)
	}
	if tree != nil {
		data, err := json.MarshalIndent(tree, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	}
	return nil
}
