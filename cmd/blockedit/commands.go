package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gm6nx/blockedit/pkg/api"
)

// pageCreator is implemented by both the local store and the remote site
type pageCreator interface {
	CreatePage(ctx context.Context, slug, title, content string) error
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return string(data), nil
}

// NewNormalizeCommand creates the normalize command
func NewNormalizeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [file]",
		Short: "Print the normalized markup of an HTML fragment",
		Long: `Reads an HTML fragment from a file or stdin and prints the markup the
editor would store for it: every top-level element becomes a text line,
image block, grid group or HTML widget carrying a stable block id.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			markup, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			e := api.New(nil, a.editorOptions()...)
			if err := e.LoadHTML(markup); err != nil {
				return err
			}
			fmt.Fprintln(a.out, e.HTML())
			return nil
		},
	}
}

// NewViewCommand creates the view command
func NewViewCommand(a *app) *cobra.Command {
	var (
		width float64
		page  string
	)
	cmd := &cobra.Command{
		Use:   "view [file]",
		Short: "Print the read-only rendering of page markup",
		Long: `Renders page markup the way visitors see it: editing attributes are
removed, HTML widgets show only their preview and tight images are
absolutely positioned for the given viewport width.

Examples:
  # View a file
  blockedit view page.html --width 1024

  # View a stored page
  blockedit view --page home`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var markup string
			if page != "" {
				ps, _, closeFn, err := a.openStore()
				if err != nil {
					return err
				}
				defer closeFn()
				if markup, err = ps.LoadPageContent(cmd.Context(), page); err != nil {
					return err
				}
			} else {
				var err error
				if markup, err = readInput(cmd, args); err != nil {
					return err
				}
			}

			opts := a.editorOptions()
			if width > 0 {
				opts = append(opts, api.WithViewportWidth(width))
			}
			out, err := api.View(markup, opts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, out)
			return nil
		},
	}
	cmd.Flags().Float64VarP(&width, "width", "w", 0, "Viewport width in pixels (default from config)")
	cmd.Flags().StringVarP(&page, "page", "p", "", "Render a stored page instead of a file")
	return cmd
}

// NewImportCommand creates the import command
func NewImportCommand(a *app) *cobra.Command {
	var page, title string
	cmd := &cobra.Command{
		Use:   "import <file.md>",
		Short: "Convert Markdown into page markup",
		Long: `Converts a Markdown file into normalized page markup. With --page the
result is stored as a new page instead of printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			e := api.New(nil, a.editorOptions()...)
			if err := e.ImportMarkdown(source); err != nil {
				return err
			}
			if page == "" {
				fmt.Fprintln(a.out, e.HTML())
				return nil
			}
			if title == "" {
				title = page
			}
			return a.createPage(cmd.Context(), page, title, e.HTML())
		},
	}
	cmd.Flags().StringVar(&page, "page", "", "Store the result as a new page with this slug")
	cmd.Flags().StringVar(&title, "title", "", "Title of the new page (defaults to the slug)")
	return cmd
}

func (a *app) createPage(ctx context.Context, slug, title, content string) error {
	ps, _, closeFn, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeFn()
	creator, ok := ps.(pageCreator)
	if !ok {
		return errors.New("the configured store cannot create pages")
	}
	if err := creator.CreatePage(ctx, slug, title, content); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s created page %s\n", color.GreenString("✓"), slug)
	return nil
}

// NewPageCommand creates the page command and its subcommands
func NewPageCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Read and write stored pages",
		Long: `Reads and writes pages in the local SQLite store, or on the remote site
when remote.base_url is configured.`,
	}
	cmd.AddCommand(
		newPageGetCommand(a),
		newPagePutCommand(a),
		newPageCreateCommand(a),
		newPageListCommand(a),
	)
	return cmd
}

func newPageGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <slug>",
		Short: "Print the stored markup of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, _, closeFn, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeFn()
			content, err := ps.LoadPageContent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, content)
			return nil
		},
	}
}

func newPagePutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "put <slug> [file]",
		Short: "Normalize markup and save it as the content of a page",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			markup, err := readInput(cmd, args[1:])
			if err != nil {
				return err
			}
			ps, _, closeFn, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			e := api.New(ps, a.editorOptions()...)
			if err := e.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := e.LoadHTML(markup); err != nil {
				return err
			}
			if err := e.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s saved %s (%d blocks)\n", color.GreenString("✓"), args[0], len(e.Document().Blocks))
			return nil
		},
	}
}

func newPageCreateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <slug> <title> [file]",
		Short: "Create a page, optionally with initial markup",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := ""
			if len(args) == 3 {
				markup, err := readInput(cmd, args[2:])
				if err != nil {
					return err
				}
				e := api.New(nil, a.editorOptions()...)
				if err := e.LoadHTML(markup); err != nil {
					return err
				}
				content = e.HTML()
			}
			return a.createPage(cmd.Context(), args[0], args[1], content)
		},
	}
}

func newPageListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the pages of the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, local, closeFn, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeFn()
			if local == nil {
				return errors.New("listing pages needs the local store")
			}
			pages, err := local.ListPages(cmd.Context())
			if err != nil {
				return err
			}
			cyan := color.New(color.FgCyan)
			gray := color.New(color.FgHiBlack)
			for _, p := range pages {
				cyan.Fprintf(a.out, "%-20s", p.Slug)
				fmt.Fprintf(a.out, " %s ", p.Title)
				gray.Fprintf(a.out, "(updated %s)\n", p.UpdatedAt.Format(time.DateTime))
			}
			return nil
		},
	}
}

// NewUploadCommand creates the upload command
func NewUploadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <image>",
		Short: "Upload an image and print its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			ps, _, closeFn, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeFn()
			url, err := ps.UploadImage(cmd.Context(), filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, url)
			return nil
		},
	}
}
