package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/sqlveil/internal/cli/output"
	"github.com/leapstack-labs/sqlveil/pkg/mask"
	"github.com/spf13/cobra"
)

// UnmaskOptions holds options for the unmask command.
type UnmaskOptions struct {
	MappingPath string // Mapping file with the synthetic names
	SessionID   string // Stored session to take the mapping from
}

// NewUnmaskCommand creates the unmask command.
func NewUnmaskCommand() *cobra.Command {
	opts := &UnmaskOptions{}
	cmd := &cobra.Command{
		Use:   "unmask [file]",
		Short: "Restore original names in masked SQL",
		Long: `Replace synthetic names with the originals they were masked from.

The input may have drifted from the masked query: rewritten clauses,
changed casing, or a surrounding markdown fence are all fine. Synthetic
names are matched wherever they appear; anything unrecognized is left
untouched and reported as a warning.

The mapping comes from --mapping (a file saved with mask --save-mapping)
or --session (a session recorded in the state database).`,
		Example: `  # Unmask a model's answer using a saved mapping
  pbpaste | sqlveil unmask --mapping mapping.yaml

  # Unmask using a recorded session
  sqlveil unmask --session 6b4a... answer.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnmask(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.MappingPath, "mapping", "", "Mapping file (YAML or JSON)")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "Session ID from a previous mask run")

	return cmd
}

func runUnmask(cmd *cobra.Command, opts *UnmaskOptions, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)
	r := GetRenderer(ctx)

	if opts.MappingPath == "" && opts.SessionID == "" {
		return fmt.Errorf("either --mapping or --session is required")
	}
	if opts.MappingPath != "" && opts.SessionID != "" {
		return fmt.Errorf("--mapping and --session are mutually exclusive")
	}

	var store *mask.Store
	var err error
	if opts.MappingPath != "" {
		store, err = loadMappingFile(opts.MappingPath)
		if err != nil {
			return err
		}
	} else {
		st, err := openState(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		store, err = st.LoadMappings(opts.SessionID)
		if err != nil {
			return err
		}
		if store.Len() == 0 {
			return fmt.Errorf("session has no mappings: %s", opts.SessionID)
		}
	}

	var data []byte
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	sql, warnings, err := mask.Unmask(string(data), store, cfg.ClassifyOptions())
	if err != nil {
		return err
	}

	if r.Mode() == output.ModeJSON {
		return r.JSON(map[string]interface{}{
			"sql":      sql,
			"warnings": warnings,
		})
	}

	r.Printf("%s", sql)
	if !strings.HasSuffix(sql, "\n") {
		r.Println()
	}
	styles := r.Styles()
	for _, w := range warnings {
		r.Errorf("%s %s\n", styles.StatusWarning.String(),
			fmt.Sprintf("line %d, column %d: %s", w.Pos.Line, w.Pos.Column, w.Message))
	}
	return nil
}
