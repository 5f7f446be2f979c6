package commands

import (
	"fmt"

	"github.com/leapstack-labs/sqlveil/internal/cli/output"
	"github.com/leapstack-labs/sqlveil/pkg/mask"
	"github.com/spf13/cobra"
)

// MappingsOptions holds options shared by the mappings subcommands.
type MappingsOptions struct {
	MappingPath string
	SessionID   string
}

// NewMappingsCommand creates the mappings command group.
func NewMappingsCommand() *cobra.Command {
	opts := &MappingsOptions{}
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Inspect and edit a mapping table",
		Long: `Show the original-to-synthetic mapping of a saved mapping file or a
recorded session, and toggle individual entries.

A disabled entry keeps its synthetic name reserved but is no longer
substituted when masking, so the original appears verbatim in the masked
output. Unmasking still recognizes the synthetic name either way.`,
	}

	cmd.PersistentFlags().StringVar(&opts.MappingPath, "mapping", "", "Mapping file (YAML or JSON)")
	cmd.PersistentFlags().StringVar(&opts.SessionID, "session", "", "Session ID from a previous mask run")

	cmd.AddCommand(newMappingsShowCommand(opts))
	cmd.AddCommand(newMappingsToggleCommand(opts, true))
	cmd.AddCommand(newMappingsToggleCommand(opts, false))

	return cmd
}

func newMappingsShowCommand(opts *MappingsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List mapping entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := GetRenderer(cmd.Context())

			store, _, err := openMappings(cmd, opts)
			if err != nil {
				return err
			}

			if r.Mode() == output.ModeJSON {
				return r.JSON(store.Records())
			}

			rows := make([][]string, 0, store.Len())
			for _, rec := range store.Records() {
				enabled := "yes"
				if !rec.Enabled {
					enabled = "no"
				}
				rows = append(rows, []string{
					rec.Role.String(), rec.Original, rec.Synthetic, enabled,
				})
			}
			r.Table([]string{"Role", "Original", "Synthetic", "Enabled"}, rows)
			return nil
		},
	}
}

func newMappingsToggleCommand(opts *MappingsOptions, enable bool) *cobra.Command {
	use, short := "disable <synthetic>", "Disable a mapping entry"
	if enable {
		use, short = "enable <synthetic>", "Re-enable a mapping entry"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := GetRenderer(cmd.Context())
			synthetic := args[0]

			store, save, err := openMappings(cmd, opts)
			if err != nil {
				return err
			}

			rec, ok := store.LookupSyntheticAny(synthetic)
			if !ok {
				return fmt.Errorf("no mapping entry for %q", synthetic)
			}
			store.SetEnabled(rec.Role, rec.Original, enable)
			if err := save(store, rec); err != nil {
				return err
			}

			verb := "disabled"
			if enable {
				verb = "enabled"
			}
			r.Printf("%s %s (%s %q)\n", r.Styles().StatusSuccess.String(), verb, rec.Role, rec.Original)
			return nil
		},
	}
}

// saveFunc persists a modified mapping back to where it came from.
type saveFunc func(store *mask.Store, changed mask.MappingRecord) error

// openMappings resolves --mapping / --session to a store plus a save
// function appropriate for the source.
func openMappings(cmd *cobra.Command, opts *MappingsOptions) (*mask.Store, saveFunc, error) {
	cfg := GetConfig(cmd.Context())

	switch {
	case opts.MappingPath != "" && opts.SessionID != "":
		return nil, nil, fmt.Errorf("--mapping and --session are mutually exclusive")

	case opts.MappingPath != "":
		store, err := loadMappingFile(opts.MappingPath)
		if err != nil {
			return nil, nil, err
		}
		save := func(s *mask.Store, _ mask.MappingRecord) error {
			return saveMappingFile(opts.MappingPath, s)
		}
		return store, save, nil

	case opts.SessionID != "":
		st, err := openState(cfg)
		if err != nil {
			return nil, nil, err
		}
		// Closed by the save path or at process exit; subcommands are
		// one-shot so leaking until exit is fine.
		store, err := st.LoadMappings(opts.SessionID)
		if err != nil {
			st.Close()
			return nil, nil, err
		}
		save := func(s *mask.Store, changed mask.MappingRecord) error {
			defer st.Close()
			rec, _ := s.LookupSyntheticAny(changed.Synthetic)
			return st.SetMappingEnabled(opts.SessionID, changed.Synthetic, rec.Enabled)
		}
		return store, save, nil

	default:
		return nil, nil, fmt.Errorf("either --mapping or --session is required")
	}
}
