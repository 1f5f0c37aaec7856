package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/minicrm/internal/crm"
	"github.com/mesh-intelligence/minicrm/internal/sqlite"
	"github.com/mesh-intelligence/minicrm/pkg/types"
)

func newNoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage notes on a company",
	}
	cmd.AddCommand(newNoteAddCmd(a))
	cmd.AddCommand(newNoteStarCmd(a))
	cmd.AddCommand(newNoteEditCmd(a))
	cmd.AddCommand(newNoteDeleteCmd(a))
	return cmd
}

func newNoteAddCmd(a *app) *cobra.Command {
	var (
		category string
		starred  bool
	)
	cmd := &cobra.Command{
		Use:   "add <company-id> <text>",
		Short: "Add a note",
		Long:  "Add a note to a company. Blank text adds nothing.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				n, err := svc.AddNote(ctx, args[0], args[1], category, starred)
				if errors.Is(err, types.ErrEmptyNote) {
					fmt.Fprintln(cmd.ErrOrStderr(), "Empty note; nothing added")
					return nil
				}
				if err != nil {
					return noteError(err, args[0], "")
				}
				return a.output(cmd, n, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Added note %s\n", n.ID)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", types.CategoryGeneral, "General, Contacts, or Agreements")
	cmd.Flags().BoolVar(&starred, "star", false, "star the note")
	return cmd
}

func newNoteStarCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "star <company-id> <note-id>",
		Short: "Toggle a note's star",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				starred, err := svc.ToggleStar(ctx, args[0], args[1])
				if err != nil {
					return noteError(err, args[0], args[1])
				}
				return a.output(cmd, map[string]bool{"starred": starred}, func(w io.Writer) error {
					state := "unstarred"
					if starred {
						state = "starred"
					}
					_, err := fmt.Fprintf(w, "Note %s %s\n", args[1], state)
					return err
				})
			})
		},
	}
}

func newNoteEditCmd(a *app) *cobra.Command {
	var (
		text, category string
		starred        bool
	)
	cmd := &cobra.Command{
		Use:   "edit <company-id> <note-id>",
		Short: "Edit a note",
		Long:  "Edit a note's text, category, or star. Unset flags keep the current values.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			companyID, noteID := args[0], args[1]
			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				c, err := svc.Get(ctx, companyID)
				if err != nil {
					return noteError(err, companyID, noteID)
				}
				var current *types.Note
				for i := range c.Notes {
					if c.Notes[i].ID == noteID {
						current = &c.Notes[i]
					}
				}
				if current == nil {
					return usageError("note %q not found on company %q", noteID, companyID)
				}

				edit := types.NoteEdit{Text: current.Text, Category: current.Category, Starred: current.Starred}
				f := cmd.Flags()
				if f.Changed("text") {
					edit.Text = text
				}
				if f.Changed("category") {
					edit.Category = category
				}
				if f.Changed("star") {
					edit.Starred = starred
				}
				if err := svc.EditNote(ctx, companyID, noteID, edit); err != nil {
					return noteError(err, companyID, noteID)
				}
				return a.output(cmd, edit, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Updated note %s\n", noteID)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "new text")
	cmd.Flags().StringVar(&category, "category", "", "General, Contacts, or Agreements")
	cmd.Flags().BoolVar(&starred, "star", false, "star or unstar")
	return cmd
}

func newNoteDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <company-id> <note-id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *crm.Service, _ *sqlite.Backend) error {
				if err := svc.DeleteNote(ctx, args[0], args[1]); err != nil {
					return noteError(err, args[0], args[1])
				}
				return a.output(cmd, map[string]string{"deleted": args[1]}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Deleted note %s\n", args[1])
					return err
				})
			})
		},
	}
}

func noteError(err error, companyID, noteID string) error {
	if !errors.Is(err, types.ErrNotFound) {
		return err
	}
	if noteID == "" {
		return usageError("company %q not found", companyID)
	}
	return usageError("note %q not found on company %q", noteID, companyID)
}
