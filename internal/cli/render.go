package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mesh-intelligence/minicrm/internal/crm"
	"github.com/mesh-intelligence/minicrm/pkg/types"
)

const timeLayout = "2006-01-02 15:04"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	starStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func renderCompanies(w io.Writer, companies []*types.Company) error {
	if len(companies) == 0 {
		_, err := fmt.Fprintln(w, "No companies")
		return err
	}
	t := newTable("Name", "Type", "Owner", "Status", "URL", "Email", "Updated", "ID")
	for _, c := range companies {
		t.Row(c.Name, c.Type, c.Owner, c.Status, c.URL, c.Email, c.UpdatedAt.Format(timeLayout), c.ID)
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func renderCompany(w io.Writer, c *types.Company) error {
	var b strings.Builder
	fmt.Fprintln(&b, titleStyle.Render(displayName(c)))
	fmt.Fprintf(&b, "ID:            %s\n", c.ID)
	fmt.Fprintf(&b, "Type:          %s\n", c.Type)
	fmt.Fprintf(&b, "Owner:         %s\n", c.Owner)
	fmt.Fprintf(&b, "Status:        %s\n", c.Status)
	fmt.Fprintf(&b, "URL:           %s\n", c.URL)
	fmt.Fprintf(&b, "LinkedIn:      %s\n", c.LinkedIn)
	fmt.Fprintf(&b, "Email:         %s\n", c.Email)
	fmt.Fprintf(&b, "Contacted via: %s\n", contactedVia(c.ContactedVia))
	fmt.Fprintf(&b, "Sources:       %s\n", strings.Join(c.Sources, ", "))
	fmt.Fprintf(&b, "Created:       %s\n", c.CreatedAt.Format(timeLayout))
	fmt.Fprintf(&b, "Updated:       %s\n", c.UpdatedAt.Format(timeLayout))

	if len(c.Notes) > 0 {
		fmt.Fprintln(&b, "\nNotes:")
		for _, n := range c.Notes {
			star := " "
			if n.Starred {
				star = starStyle.Render("*")
			}
			fmt.Fprintf(&b, " %s [%s] %s (%s) %s\n", star, n.Time.Format(timeLayout), n.Category, n.ID, n.Text)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderBoard(w io.Writer, view crm.BoardView) error {
	for _, col := range view.Columns {
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s (%d)", col.Status, len(col.Companies))))
		for _, c := range col.Companies {
			fmt.Fprintf(w, "  %s  %s  %s  %s\n", displayName(c), c.Owner, c.UpdatedAt.Format(timeLayout), c.ID)
		}
	}
	return nil
}

// displayName falls back to the URL for companies saved without a name.
func displayName(c *types.Company) string {
	if c.Name != "" {
		return c.Name
	}
	return c.URL
}

func contactedVia(cv types.ContactedVia) string {
	var ch []string
	if cv.Email {
		ch = append(ch, "email")
	}
	if cv.URL {
		ch = append(ch, "url")
	}
	if cv.LinkedIn {
		ch = append(ch, "linkedin")
	}
	if len(ch) == 0 {
		return "-"
	}
	return strings.Join(ch, ", ")
}

// parseContactedVia reads a comma-separated channel list such as
// "email,linkedin".
func parseContactedVia(s string) (types.ContactedVia, error) {
	var cv types.ContactedVia
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "":
		case "email":
			cv.Email = true
		case "url", "web":
			cv.URL = true
		case "linkedin":
			cv.LinkedIn = true
		default:
			return types.ContactedVia{}, usageError("unknown contact channel %q (valid: email, url, linkedin)", part)
		}
	}
	return cv, nil
}
