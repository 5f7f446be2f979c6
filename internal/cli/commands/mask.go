package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/sqlveil/internal/cli/output"
	"github.com/leapstack-labs/sqlveil/internal/config"
	"github.com/leapstack-labs/sqlveil/internal/state"
	"github.com/leapstack-labs/sqlveil/pkg/mask"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// MaskOptions holds options for the mask command.
type MaskOptions struct {
	Mode        string // Override the configured naming mode
	MappingPath string // Existing mapping to reuse
	SavePath    string // Where to save the resulting mapping
	Watch       bool   // Re-mask files on change
	NoState     bool   // Skip session persistence
}

// maskedPath derives the output file for a masked input file.
func maskedPath(in string) string {
	ext := filepath.Ext(in)
	return strings.TrimSuffix(in, ext) + ".masked" + ext
}

// NewMaskCommand creates the mask command.
func NewMaskCommand() *cobra.Command {
	opts := &MaskOptions{}
	cmd := &cobra.Command{
		Use:   "mask [files...]",
		Short: "Mask sensitive names in SQL",
		Long: `Replace table, column, schema, alias, and function names plus string
literals with synthetic placeholders.

With no arguments, SQL is read from stdin and the masked query is written
to stdout. With file arguments, each FILE is masked into FILE.masked with
the original extension preserved (orders.sql -> orders.masked.sql).

Each run records a session in the local state database so the masked
output can be unmasked later with --session.`,
		Example: `  # Mask stdin to stdout
  cat query.sql | sqlveil mask

  # Mask files in place, reusing a saved mapping
  sqlveil mask --mapping mapping.yaml queries/*.sql

  # Keep re-masking on change
  sqlveil mask --watch queries/report.sql

  # Semantic naming via a configured endpoint
  sqlveil mask --mode semantic query.sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMask(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", "", "Naming mode (deterministic|semantic)")
	cmd.Flags().StringVar(&opts.MappingPath, "mapping", "", "Mapping file to reuse (YAML or JSON)")
	cmd.Flags().StringVar(&opts.SavePath, "save-mapping", "", "Write the resulting mapping to this file")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Watch files and re-mask on change")
	cmd.Flags().BoolVar(&opts.NoState, "no-state", false, "Do not record the session in the state database")

	return cmd
}

func runMask(cmd *cobra.Command, opts *MaskOptions, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)
	logger := GetLogger(ctx)
	r := GetRenderer(ctx)

	if opts.Watch && len(args) == 0 {
		return fmt.Errorf("--watch requires file arguments")
	}

	genOpts, err := generateOptions(cfg, logger, opts.Mode)
	if err != nil {
		return err
	}

	var seed *mask.Store
	if opts.MappingPath != "" {
		seed, err = loadMappingFile(opts.MappingPath)
		if err != nil {
			return err
		}
	}

	var store state.SessionStore
	if !opts.NoState {
		st, err := openState(cfg)
		if err != nil {
			logger.Warn("state database unavailable, sessions will not be recorded", "error", err)
		} else {
			store = st
			defer st.Close()
		}
	}

	m := &masker{
		cfg:     cfg,
		logger:  logger,
		genOpts: genOpts,
		seed:    seed,
		state:   store,
	}

	if len(args) == 0 {
		return m.maskStdin(ctx, cmd.InOrStdin(), r, opts)
	}

	if err := m.maskFiles(ctx, args, r, opts); err != nil {
		return err
	}
	if opts.Watch {
		return m.watch(ctx, args, r, opts)
	}
	return nil
}

// masker masks one or more documents with shared configuration. When a
// seed mapping is present all documents share it, so the same original
// gets the same synthetic name across files.
type masker struct {
	cfg     *config.Config
	logger  *slog.Logger
	genOpts mask.GenerateOptions
	seed    *mask.Store
	state   state.SessionStore
}

func (m *masker) session() (*mask.Session, error) {
	return mask.NewSession(mask.SessionOptions{
		Classify: m.cfg.ClassifyOptions(),
		Generate: m.genOpts,
		Mapping:  m.seed,
		Logger:   m.logger,
	})
}

// maskOne runs the full pipeline over sql and returns the session.
func (m *masker) maskOne(ctx context.Context, sql string) (*mask.Session, string, error) {
	session, err := m.session()
	if err != nil {
		return nil, "", err
	}
	if _, err := session.Analyze(sql); err != nil {
		return nil, "", err
	}
	masked, records, err := session.Mask(ctx)
	if err != nil {
		return nil, "", err
	}

	if m.state != nil {
		domain := mask.DetectDomain(session.Entities())
		rec := &state.SessionRecord{
			ID:     session.ID,
			Mode:   string(m.genOpts.Mode),
			Domain: string(domain),
			Source: session.Source(),
			Masked: masked,
		}
		if err := m.state.SaveSession(rec, records); err != nil {
			m.logger.Warn("failed to record session", "session_id", session.ID, "error", err)
		} else {
			m.logger.Debug("session recorded", "session_id", session.ID)
		}
	}
	return session, masked, nil
}

func (m *masker) maskStdin(ctx context.Context, in io.Reader, r *output.Renderer, opts *MaskOptions) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	session, masked, err := m.maskOne(ctx, string(data))
	if err != nil {
		return err
	}

	if r.Mode() == output.ModeJSON {
		if err := r.JSON(map[string]interface{}{
			"session_id": session.ID,
			"masked":     masked,
			"mapping":    session.Store().Records(),
		}); err != nil {
			return err
		}
	} else {
		r.Printf("%s", masked)
		if !strings.HasSuffix(masked, "\n") {
			r.Println()
		}
		r.Errorf("Session: %s\n", session.ID)
	}

	return m.save(session, opts)
}

// maskFiles masks every file concurrently. All files share the seed
// mapping; each gets its own session and output file.
func (m *masker) maskFiles(ctx context.Context, files []string, r *output.Renderer, opts *MaskOptions) error {
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)

	sessions := make([]*mask.Session, len(files))
	for i, file := range files {
		eg.Go(func() error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			session, masked, err := m.maskOne(egctx, string(data))
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			out := maskedPath(file)
			if err := os.WriteFile(out, []byte(masked), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			sessions[i] = session
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	styles := r.Styles()
	for i, file := range files {
		r.Printf("%s %s -> %s (%d entities, session %s)\n",
			styles.StatusSuccess.String(), file, maskedPath(file),
			sessions[i].Entities().Len(), sessions[i].ID)
	}

	// Saved mapping covers every file: merge all session stores.
	if opts.SavePath != "" {
		merged := mask.NewStore()
		for _, s := range sessions {
			if err := merged.Merge(s.Store()); err != nil {
				return fmt.Errorf("mapping conflict across files: %w", err)
			}
		}
		if err := saveMappingFile(opts.SavePath, merged); err != nil {
			return err
		}
		r.Printf("Mapping saved to %s\n", opts.SavePath)
		// Later runs (watch mode) reuse the merged mapping so names
		// stay stable.
		m.seed = merged
	}
	return nil
}

func (m *masker) save(session *mask.Session, opts *MaskOptions) error {
	if opts.SavePath == "" {
		return nil
	}
	return saveMappingFile(opts.SavePath, session.Store())
}

// watch re-masks files when they change, until the context is cancelled.
func (m *masker) watch(ctx context.Context, files []string, r *output.Renderer, opts *MaskOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	watched := make(map[string]bool, len(files))
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		watched[abs] = true
		// Watch the directory: editors often replace files on save,
		// which drops per-file watches.
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", file, err)
		}
	}

	r.Errorf("Watching %d file(s) for changes...\n", len(files))

	// Debounced changes funnel back into this loop so re-masking runs
	// serially: maskFiles reads and updates the shared seed mapping.
	changed := make(chan string, len(files))
	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil

		case name := <-changed:
			m.logger.Debug("file changed, re-masking", "file", name)
			if err := m.maskFiles(ctx, []string{name}, r, opts); err != nil {
				m.logger.Error("re-mask failed", "file", name, "error", err)
			}

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				changed <- event.Name
			})

		case err := <-watcher.Errors:
			m.logger.Error("watcher error", "error", err)
		}
	}
}
