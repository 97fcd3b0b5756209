package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/api"
	"github.com/jakechorley/volunteer-booking/pkg/reminders"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the booking API, metrics and scheduled reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if app.Cfg.Notifications.ReminderSchedule != "" && app.GmailClient != nil {
				scheduler := reminders.NewScheduler(app.Database, app.GmailClient, app.Cfg.Location(), app.Logger)
				if err := scheduler.Schedule(ctx, app.Cfg.Notifications.ReminderSchedule); err != nil {
					return err
				}
				scheduler.Start()
				defer scheduler.Stop()
			}

			router := api.NewRouter(api.Config{
				Engine:      app.Engine,
				Slots:       app.Catalog,
				Store:       app.Database,
				Timezone:    app.Cfg.Location(),
				MetricsPath: app.Cfg.Server.MetricsPath,
				Logger:      app.Logger,
			})

			srv := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				app.Logger.Info("HTTP server listening",
					zap.String("addr", addr),
					zap.String("metrics_path", app.Cfg.Server.MetricsPath))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			app.Logger.Info("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down http server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("addr", "", "Listen address; overrides server.addr")

	return cmd
}
