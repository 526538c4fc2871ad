package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gm6nx/blockedit/internal/config"
	"github.com/gm6nx/blockedit/internal/remote"
	"github.com/gm6nx/blockedit/internal/store"
	"github.com/gm6nx/blockedit/pkg/api"
)

// version is set during build with -ldflags
var version = "dev"

// app carries the state shared by every command
type app struct {
	configPath string
	verbose    bool
	cfg        *config.Config
	out        io.Writer
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "blockedit",
		Short: "Normalize, view and manage block-structured pages",
		Long: `blockedit works on the page markup produced by the block editor: it
normalizes raw HTML into text lines, images, grid groups and HTML widgets,
renders pages read-only, imports Markdown and manages stored pages and
uploads.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if a.configPath != "" {
				var err error
				if cfg, err = config.Load(a.configPath); err != nil {
					return err
				}
			}
			if a.verbose {
				cfg.Logging.Level = "debug"
			}
			a.cfg = cfg
			a.out = cmd.OutOrStdout()
			return setupLogger(cfg.Logging)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv("BLOCKEDIT_CONFIG"), "YAML or TOML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		NewNormalizeCommand(a),
		NewViewCommand(a),
		NewImportCommand(a),
		NewPageCommand(a),
		NewUploadCommand(a),
	)
	return root
}

func setupLogger(cfg config.LoggingConfig) error {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = newColorHandler(os.Stderr, level)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// editorOptions maps the editor section of the config onto editor options
func (a *app) editorOptions() []api.Option {
	e := a.cfg.Editor
	opts := []api.Option{
		api.WithViewportWidth(e.ViewportWidth),
		api.WithPadding(e.Padding),
		api.WithFont(e.FontSize, e.LineHeight),
		api.WithGrid(e.CellMinHeight, e.GridGap),
	}
	if a.cfg.Remote.BaseURL != "" {
		opts = append(opts, api.WithBaseURL(a.cfg.Remote.BaseURL))
	} else if a.cfg.Store.UploadsDir != "" {
		opts = append(opts, api.WithMount(a.cfg.Store.UploadsURL, a.cfg.Store.UploadsDir))
	}
	return opts
}

// openStore returns the remote site when one is configured, the local
// SQLite store otherwise. local is nil for a remote site.
func (a *app) openStore() (ps api.PageStore, local *store.SQLiteStore, closeFn func(), err error) {
	if r := a.cfg.Remote; r.BaseURL != "" {
		c := remote.NewClient(r.BaseURL, remote.WithCredentials(r.Username, r.Password))
		return c, nil, func() {}, nil
	}
	s, err := store.NewSQLiteStore(store.Options{
		Path:       a.cfg.Store.Path,
		UploadsDir: a.cfg.Store.UploadsDir,
		UploadsURL: a.cfg.Store.UploadsURL,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening store: %w", err)
	}
	return s, s, func() {
		if err := s.Close(); err != nil {
			slog.Default().Warn("closing store", "err", err)
		}
	}, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), err)
		os.Exit(1)
	}
}
