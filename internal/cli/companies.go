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

func newAddCmd(a *app) *cobra.Command {
	var (
		in        crm.CreateInput
		sources   string
		contacted string
	)
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a company",
		Long: `Add a company. A name or --url is required. Type and owner default to the
last ones used; the status defaults to New.

The add is refused when an existing company has the same name or URL,
ignoring case, scheme, and a trailing slash.

Example:
  minicrm add "Acme Inc" --url https://acme.com --sources Expo,Referral
  minicrm add --url globex.com --note "met at expo" --note-category Contacts`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				in.Name = args[0]
			}
			if strings.TrimSpace(in.Name) == "" && strings.TrimSpace(in.URL) == "" {
				return usageError("a name or --url is required")
			}
			if cmd.Flags().Changed("sources") {
				in.Sources = types.ParseSources(sources)
			}
			cv, err := parseContactedVia(contacted)
			if err != nil {
				return err
			}
			in.ContactedVia = cv

			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				id, err := svc.Create(ctx, in)
				var dup *crm.DuplicateError
				if errors.As(err, &dup) {
					return usageError("possible duplicate of %s (matched by %s)", dup.ExistingID, dup.Field)
				}
				if err != nil {
					return err
				}
				c, err := svc.Get(ctx, id)
				if err != nil {
					return err
				}
				return a.output(cmd, c, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Added %s: %s\n", displayName(c), id)
					return err
				})
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.URL, "url", "", "website")
	f.StringVar(&in.Type, "type", "", "company type (default: last used)")
	f.StringVar(&in.Owner, "owner", "", "owner (default: last used)")
	f.StringVar(&in.LinkedIn, "linkedin", "", "LinkedIn profile")
	f.StringVar(&in.Email, "email", "", "contact email")
	f.StringVar(&in.Status, "status", "", "status (default: New)")
	f.StringVar(&sources, "sources", "", "source tags, comma-separated or a JSON array")
	f.StringVar(&contacted, "contacted-via", "", "channels already used: email, url, linkedin")
	f.StringVar(&in.Note, "note", "", "first note")
	f.StringVar(&in.NoteCategory, "note-category", "", "category of the first note")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a company with its notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				c, err := svc.Get(ctx, args[0])
				if errors.Is(err, types.ErrNotFound) {
					return usageError("company %q not found", args[0])
				}
				if err != nil {
					return err
				}
				return a.output(cmd, c, func(w io.Writer) error { return renderCompany(w, c) })
			})
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var q crm.ListQuery
	cmd := &cobra.Command{
		Use:   "list [query]",
		Short: "List companies",
		Long: `List companies whose name, URL, email, owner, type, or status contains the
query, ignoring case.

Sort fields: name, type, owner, status, email, url, created, updated.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				q.Query = args[0]
			}
			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				res, err := svc.List(ctx, q)
				if err != nil {
					return err
				}
				return a.output(cmd, res, func(w io.Writer) error { return renderCompanies(w, res.Companies) })
			})
		},
	}
	cmd.Flags().StringVar(&q.Sort, "sort", crm.SortUpdated, "sort field")
	cmd.Flags().StringVar(&q.Direction, "dir", crm.DirDesc, "sort direction (asc, desc)")
	return cmd
}

func newBoardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "board <leads|partners>",
		Short:     "Show a kanban board",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(types.BoardLeads), string(types.BoardPartners)},
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := types.ParseBoard(args[0])
			if err != nil {
				return usageError("unknown board %q (valid: leads, partners)", args[0])
			}
			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				view, err := svc.Board(ctx, board)
				if err != nil {
					return err
				}
				return a.output(cmd, view, func(w io.Writer) error { return renderBoard(w, view) })
			})
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	var (
		typ, owner, name, url, linkedin, email, status string
		sources, contacted                             string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update company fields",
		Long: `Update the fields given as flags. Fields not given keep their values.
--sources replaces the whole tag set; pass "" to clear it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var u types.CompanyUpdate
			set := func(flag string, dst **string, v *string) {
				if f.Changed(flag) {
					*dst = v
				}
			}
			set("type", &u.Type, &typ)
			set("owner", &u.Owner, &owner)
			set("name", &u.Name, &name)
			set("url", &u.URL, &url)
			set("linkedin", &u.LinkedIn, &linkedin)
			set("email", &u.Email, &email)
			set("status", &u.Status, &status)
			if f.Changed("sources") {
				s := types.ParseSources(sources)
				u.Sources = &s
			}
			if f.Changed("contacted-via") {
				cv, err := parseContactedVia(contacted)
				if err != nil {
					return err
				}
				u.ContactedVia = &cv
			}

			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				if err := svc.Update(ctx, args[0], u); err != nil {
					if errors.Is(err, types.ErrNotFound) {
						return usageError("company %q not found", args[0])
					}
					return err
				}
				c, err := svc.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return a.output(cmd, c, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Updated %s\n", c.ID)
					return err
				})
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&typ, "type", "", "company type")
	f.StringVar(&owner, "owner", "", "owner")
	f.StringVar(&name, "name", "", "name")
	f.StringVar(&url, "url", "", "website")
	f.StringVar(&linkedin, "linkedin", "", "LinkedIn profile")
	f.StringVar(&email, "email", "", "contact email")
	f.StringVar(&status, "status", "", "status")
	f.StringVar(&sources, "sources", "", "source tags, comma-separated or a JSON array")
	f.StringVar(&contacted, "contacted-via", "", "channels already used: email, url, linkedin")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a company to another status",
		Long: `Set a company's status. The status decides which board the company is
shown on; Past Client belongs to neither.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, status := args[0], args[1]
			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				err := svc.UpdateStatus(ctx, id, status)
				switch {
				case errors.Is(err, types.ErrInvalidStatus):
					return usageError("invalid status %q", status)
				case errors.Is(err, types.ErrNotFound):
					return usageError("company %q not found", id)
				case err != nil:
					return err
				}
				return a.output(cmd, map[string]string{"id": id, "status": status}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%s is now %s\n", id, status)
					return err
				})
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete companies with their notes",
		Long: `Delete one or more companies. With one ID a missing company is an error;
with several, missing IDs are ignored and the number deleted is reported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				var (
					n   int
					err error
				)
				if len(args) == 1 {
					n, err = svc.Delete(ctx, args[0])
					if errors.Is(err, types.ErrNotFound) {
						return usageError("company %q not found", args[0])
					}
				} else {
					n, err = svc.DeleteMany(ctx, args)
				}
				if err != nil {
					return err
				}
				return a.output(cmd, map[string]int{"deleted": n}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Deleted %d\n", n)
					return err
				})
			})
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	var name, url string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a name or URL is already recorded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				m, err := svc.CheckDuplicate(ctx, name, url)
				if err != nil {
					return err
				}
				return a.output(cmd, m, func(w io.Writer) error {
					if !m.Duplicate {
						_, err := fmt.Fprintln(w, "No duplicate")
						return err
					}
					_, err := fmt.Fprintf(w, "Duplicate of %s (matched by %s)\n", m.ID, m.Field)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "company name")
	cmd.Flags().StringVar(&url, "url", "", "website")
	return cmd
}
