package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/minicrm/internal/auth"
	"github.com/mesh-intelligence/minicrm/internal/crm"
	"github.com/mesh-intelligence/minicrm/internal/httpapi"
	"github.com/mesh-intelligence/minicrm/internal/metrics"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long:  "Serve the JSON API until interrupted. Requests need a token from POST /api/login.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			return a.runServe(cmd, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from config)")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, addr string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, storeCfg, err := a.attach()
	if err != nil {
		return err
	}
	defer b.Detach()

	m := metrics.New()
	ttl := time.Duration(a.cfg.Auth.ExpirationHours) * time.Hour
	am, err := auth.NewManager(b.Users(), a.cfg.Auth.SigningKey, ttl, m)
	if err != nil {
		return systemError(err)
	}
	if am.GeneratedKey() {
		a.log.Warn("auth.signing_key is not set; using a random key, tokens will not survive a restart")
	}

	svc := crm.NewService(b, storeCfg, a.log, m)
	srv := httpapi.New(svc, am, a.log, m)

	a.log.Info("starting minicrm", zap.String("version", Version), zap.String("data_dir", storeCfg.DataDir))
	if err := srv.Run(ctx, addr); err != nil {
		return systemError(fmt.Errorf("serving: %w", err))
	}
	return nil
}
