package commands

import (
	"strconv"
	"time"

	"github.com/leapstack-labs/sqlveil/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewSessionsCommand creates the sessions command group.
func NewSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage recorded masking sessions",
		Long: `Every mask run records a session in the local state database: the
source SQL, the masked output, and the mapping table. Sessions let you
unmask a model's answer days later without keeping a mapping file around.`,
	}

	cmd.AddCommand(newSessionsListCommand())
	cmd.AddCommand(newSessionsShowCommand())
	cmd.AddCommand(newSessionsDeleteCommand())

	return cmd
}

func newSessionsListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())
			r := GetRenderer(cmd.Context())

			st, err := openState(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			sessions, err := st.ListSessions(limit)
			if err != nil {
				return err
			}

			if r.Mode() == output.ModeJSON {
				return r.JSON(sessions)
			}

			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				mappings, err := st.LoadMappings(s.ID)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					s.ID,
					s.Mode,
					s.Domain,
					strconv.Itoa(mappings.Len()),
					s.CreatedAt.Local().Format(time.DateTime),
				})
			}
			r.Table([]string{"ID", "Mode", "Domain", "Mappings", "Created"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum sessions to list (0 for all)")
	return cmd
}

func newSessionsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one session with its mapping table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			r := GetRenderer(cmd.Context())

			st, err := openState(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			rec, err := st.GetSession(args[0])
			if err != nil {
				return err
			}
			mappings, err := st.LoadMappings(rec.ID)
			if err != nil {
				return err
			}

			if r.Mode() == output.ModeJSON {
				return r.JSON(map[string]interface{}{
					"session": rec,
					"mapping": mappings.Records(),
				})
			}

			styles := r.Styles()
			r.Println(styles.Header1.Render("Session " + rec.ID))
			r.Printf("  %s: %s\n", styles.Bold.Render("Mode"), rec.Mode)
			if rec.Domain != "" {
				r.Printf("  %s: %s\n", styles.Bold.Render("Domain"), rec.Domain)
			}
			r.Printf("  %s: %s\n", styles.Bold.Render("Created"), rec.CreatedAt.Local().Format(time.DateTime))
			r.Println()

			rows := make([][]string, 0, mappings.Len())
			for _, m := range mappings.Records() {
				enabled := "yes"
				if !m.Enabled {
					enabled = "no"
				}
				rows = append(rows, []string{m.Role.String(), m.Original, m.Synthetic, enabled})
			}
			r.Table([]string{"Role", "Original", "Synthetic", "Enabled"}, rows)
			return nil
		},
	}
}

func newSessionsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recorded session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			r := GetRenderer(cmd.Context())

			st, err := openState(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteSession(args[0]); err != nil {
				return err
			}
			r.Printf("%s deleted %s\n", r.Styles().StatusSuccess.String(), args[0])
			return nil
		},
	}
}
