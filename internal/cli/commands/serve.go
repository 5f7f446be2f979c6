package commands

import (
	"github.com/leapstack-labs/sqlveil/internal/naming"
	"github.com/leapstack-labs/sqlveil/internal/server"
	"github.com/leapstack-labs/sqlveil/pkg/mask"
	"github.com/spf13/cobra"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Addr    string
	NoState bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Serve the masking engine over HTTP for editor plugins and other
tools. The API mirrors the CLI: POST /api/v1/mask and /api/v1/unmask,
with sessions recorded in the state database.`,
		Example: `  sqlveil serve
  sqlveil serve --addr 0.0.0.0:8710`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&opts.NoState, "no-state", false, "Do not record sessions in the state database")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)
	logger := GetLogger(ctx)

	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}

	srvOpts := server.Options{
		Config: cfg,
		Logger: logger,
	}

	if !opts.NoState {
		st, err := openState(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		srvOpts.Store = st
	}

	// Semantic mode is available per-request whenever an endpoint is
	// configured, regardless of the default mode.
	if cfg.Semantic.Endpoint != "" {
		client, err := naming.NewClient(naming.Options{
			Endpoint: cfg.Semantic.Endpoint,
			Model:    cfg.Semantic.Model,
			APIKey:   cfg.Semantic.APIKey,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		srvOpts.Namer = mask.NamerFunc(client.Name)
	}

	return server.New(srvOpts).Serve(ctx)
}
