package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/minicrm/internal/config"
	"github.com/mesh-intelligence/minicrm/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize minicrm storage",
		Long: "Create the configuration and data directories, write a default config.yaml\n" +
			"if none exists, then initialize the database and seed users.",
		Args: cobra.NoArgs,
		RunE: a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(a.configDir, 0o755); err != nil {
		return systemError(fmt.Errorf("creating config directory: %w", err))
	}

	// Record the flag value so later runs find the same data directory.
	wrote, err := config.WriteDefault(paths.ConfigFile(a.configDir), a.flags.dataDir)
	if err != nil {
		return systemError(err)
	}

	b, _, err := a.attach()
	if err != nil {
		return err
	}
	if err := b.Detach(); err != nil {
		return systemError(fmt.Errorf("finalizing storage: %w", err))
	}

	w := cmd.OutOrStdout()
	if wrote {
		fmt.Fprintf(w, "Wrote %s\n", paths.ConfigFile(a.configDir))
	}
	fmt.Fprintln(w, "minicrm initialized successfully")
	return nil
}
