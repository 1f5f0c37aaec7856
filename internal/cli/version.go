package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the minicrm release version.
const Version = "0.3.0"

const modulePath = "github.com/mesh-intelligence/minicrm"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the minicrm version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "minicrm v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
