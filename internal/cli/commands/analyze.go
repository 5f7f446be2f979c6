package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/leapstack-labs/sqlveil/internal/cli/output"
	"github.com/leapstack-labs/sqlveil/pkg/mask"
	"github.com/spf13/cobra"
)

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Show the entities masking would touch",
		Long: `Tokenize and classify SQL without masking it, listing every entity
that would receive a synthetic name: its role, lexeme, and occurrence
count, plus the detected business domain.`,
		Example: `  sqlveil analyze query.sql
  cat query.sql | sqlveil analyze -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAnalyze,
	}
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)
	r := GetRenderer(ctx)

	var data []byte
	var err error
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

	session, err := mask.NewSession(mask.SessionOptions{
		Classify: cfg.ClassifyOptions(),
		Logger:   GetLogger(ctx),
	})
	if err != nil {
		return err
	}
	set, err := session.Analyze(string(data))
	if err != nil {
		return err
	}
	domain := mask.DetectDomain(set)

	if r.Mode() == output.ModeJSON {
		type entityInfo struct {
			Role        string `json:"role"`
			Lexeme      string `json:"lexeme"`
			Occurrences int    `json:"occurrences"`
		}
		entities := make([]entityInfo, 0, set.Len())
		for _, e := range set.Entities() {
			entities = append(entities, entityInfo{
				Role:        e.Role.String(),
				Lexeme:      e.Raw,
				Occurrences: len(e.Occurrences),
			})
		}
		return r.JSON(map[string]interface{}{
			"domain":   string(domain),
			"entities": entities,
		})
	}

	rows := make([][]string, 0, set.Len())
	for _, e := range set.Entities() {
		rows = append(rows, []string{
			e.Role.String(),
			e.Raw,
			strconv.Itoa(len(e.Occurrences)),
		})
	}
	r.Table([]string{"Role", "Lexeme", "Occurrences"}, rows)

	styles := r.Styles()
	r.Println(styles.Muted.Render(
		fmt.Sprintf("Total: %d entities, domain: %s", set.Len(), domain)))
	return nil
}
