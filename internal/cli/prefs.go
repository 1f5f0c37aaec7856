package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/minicrm/internal/crm"
	"github.com/mesh-intelligence/minicrm/internal/sqlite"
	"github.com/mesh-intelligence/minicrm/pkg/types"
)

func newPrefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change the add-form defaults",
	}
	cmd.AddCommand(newPrefsGetCmd(a))
	cmd.AddCommand(newPrefsSetCmd(a))
	cmd.AddCommand(newPrefsSourcesCmd(a))
	return cmd
}

func renderPrefs(w io.Writer, p types.Preferences) error {
	_, err := fmt.Fprintf(w, "Type:    %s\nOwner:   %s\nSources: %s\n",
		p.LastType, p.LastOwner, strings.Join(p.LastSources, ", "))
	return err
}

func newPrefsGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the remembered type, owner, and sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				p, err := svc.Preferences(ctx)
				if err != nil {
					return err
				}
				return a.output(cmd, p, func(w io.Writer) error { return renderPrefs(w, p) })
			})
		},
	}
}

func newPrefsSetCmd(a *app) *cobra.Command {
	var typ, owner, sources string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the remembered type, owner, or sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				p, err := svc.Preferences(ctx)
				if err != nil {
					return err
				}
				if f.Changed("type") {
					p.LastType = typ
				}
				if f.Changed("owner") {
					p.LastOwner = owner
				}
				if f.Changed("sources") {
					p.LastSources = types.ParseSources(sources)
				}

				typeList, owners := svc.Catalogs()
				err = svc.SavePreferences(ctx, p)
				switch {
				case errors.Is(err, types.ErrInvalidType):
					return usageError("unknown type %q (valid: %s)", p.LastType, strings.Join(typeList, ", "))
				case errors.Is(err, types.ErrInvalidOwner):
					return usageError("unknown owner %q (valid: %s)", p.LastOwner, strings.Join(owners, ", "))
				case err != nil:
					return err
				}
				return a.output(cmd, p, func(w io.Writer) error { return renderPrefs(w, p) })
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "default company type")
	cmd.Flags().StringVar(&owner, "owner", "", "default owner")
	cmd.Flags().StringVar(&sources, "sources", "", "default source tags")
	return cmd
}

func newPrefsSourcesCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List recently used source tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				tags, err := svc.RecentSources(ctx, limit)
				if err != nil {
					return err
				}
				return a.output(cmd, tags, func(w io.Writer) error {
					for _, t := range tags {
						if _, err := fmt.Fprintln(w, t); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of tags (default 10)")
	return cmd
}
