package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/hourly/internal/api"
	"github.com/balkashynov/hourly/internal/auth"
	"github.com/balkashynov/hourly/internal/metrics"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API server",
	Long: `Run the JSON API on server.address (default :8001).

Authenticate with POST /api/auth/token and send the token as "Authorization: Bearer <token>".
Prometheus metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: withApp(true, func(cmd *cobra.Command, args []string, a *app) error {
		if address, _ := cmd.Flags().GetString("address"); address != "" {
			a.cfg.Server.Address = address
		}
		if a.cfg.Auth.Secret == "change-me" {
			a.log.Warn("auth.secret is the default value, set HOURLY_AUTH_SECRET before exposing the server")
		}
		running, err := a.store.CountRunning(cmd.Context())
		if err != nil {
			return err
		}
		metrics.SetActiveTimesheets(int(running))

		handler := api.New(api.Deps{
			Store:      a.store,
			Config:     a.cfg,
			Log:        a.log.Named("api"),
			Tokens:     auth.NewTokens(a.cfg.Auth),
			Voter:      a.voter,
			Exporter:   a.exporter,
			Invoices:   a.invoices,
			Statistics: a.statistics,
			Version:    version,
		})
		server := api.NewHTTPServer(a.cfg.Server, handler)

		shutdownCh := make(chan os.Signal, 1)
		signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(shutdownCh)

		serveErr := make(chan error, 1)
		go func() {
			a.log.Infow("hourly listening", "address", a.cfg.Server.Address, "database", a.cfg.Database.Driver)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			return err
		case sig := <-shutdownCh:
			a.log.Infow("shutting down", "signal", sig.String())
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			a.log.Errorw("graceful shutdown failed", "error", err)
			return err
		}
		return nil
	}),
}

func init() {
	serveCmd.Flags().String("address", "", "Listen address, overrides server.address")
}
