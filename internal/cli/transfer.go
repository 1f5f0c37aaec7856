package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/minicrm/internal/crm"
	"github.com/mesh-intelligence/minicrm/internal/sqlite"
)

func printImportResult(a *app, cmd *cobra.Command, res crm.ImportResult) error {
	return a.output(cmd, res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Imported %d, skipped %d\n", res.Added, res.Skipped)
		return err
	})
}

func newImportCmd(a *app) *cobra.Command {
	var (
		keepDups bool
		jsonl    bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import companies from CSV or a JSONL snapshot",
		Long: `Import companies from a CSV file, or "-" for standard input.

With a header row, columns are matched by name (name, url, email, linkedin,
type, status, owner, notes, sources). Without one, columns are taken in
that order up to notes. Rows that duplicate an existing or earlier row are
skipped unless --keep-duplicates is set.

With --jsonl the file is a snapshot written by "minicrm export".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			skip := !keepDups
			path := args[0]
			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				var (
					res crm.ImportResult
					err error
				)
				switch {
				case jsonl:
					companies, rerr := sqlite.ReadJSONL(path)
					if rerr != nil {
						return openError(path, rerr)
					}
					res, err = svc.ImportCompanies(ctx, companies, skip)
				case path == "-":
					res, err = svc.Import(ctx, cmd.InOrStdin(), skip)
				default:
					f, oerr := os.Open(path)
					if oerr != nil {
						return openError(path, oerr)
					}
					defer f.Close()
					res, err = svc.Import(ctx, f, skip)
				}
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Stopped after %d imported, %d skipped\n", res.Added, res.Skipped)
					return err
				}
				return printImportResult(a, cmd, res)
			})
		},
	}
	cmd.Flags().BoolVar(&keepDups, "keep-duplicates", false, "import rows even when they match an existing company")
	cmd.Flags().BoolVar(&jsonl, "jsonl", false, "read a JSONL snapshot instead of CSV")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write every company to a JSONL snapshot",
		Long:  "Write every company with its notes and sources to a JSONL file. The file is replaced atomically.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(_ context.Context, _ *crm.Service, b *sqlite.Backend) error {
				n, err := b.ExportJSONL(args[0])
				if err != nil {
					return err
				}
				return a.output(cmd, map[string]int{"exported": n}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Exported %d companies to %s\n", n, args[0])
					return err
				})
			})
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-json <dir>",
		Short: "Import a legacy companies.json and prefs.json",
		Long: `Import the companies.json and, if present, prefs.json written by the
JSON-file version of the tracker. Old statuses and types are mapped onto
the current ones; duplicates are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				res, err := svc.MigrateLegacy(ctx, args[0])
				if errors.Is(err, fs.ErrNotExist) {
					return usageError("no %s in %s", crm.LegacyCompaniesFile, args[0])
				}
				if err != nil {
					return err
				}
				return printImportResult(a, cmd, res)
			})
		},
	}
}

func openError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return usageError("file %s does not exist", path)
	}
	return systemError(fmt.Errorf("opening %s: %w", path, err))
}
