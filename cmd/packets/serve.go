package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"packets/internal/dispatch"
	"packets/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the workspace over a local JSON API",
	Long: `Serve loads the saved workspace and exposes it on listen_addr. Finished
exchanges are announced on /events. The workspace is written back on shutdown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		events := ui.NewBroker()
		ws, disp, err := a.workspace(dispatch.WithNotify(events.Publish))
		if err != nil {
			return err
		}
		defer disp.Close()

		srv := &http.Server{
			Addr: a.cfg.ListenAddr,
			Handler: ui.NewServer(ui.Options{
				Workspace:    ws,
				Store:        a.store,
				Events:       events,
				Logger:       a.logger,
				Version:      version,
				HistoryLimit: a.cfg.HistoryLimit,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		srv.RegisterOnShutdown(events.Close)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.logger.Info("packets listening", "addr", "http://"+a.cfg.ListenAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		serveErr := g.Wait()

		// No handler is running anymore, the workspace is ours again.
		if err := a.store.SaveState(ws.Snapshot()); err != nil {
			return errors.Join(serveErr, err)
		}
		a.logger.Info("workspace saved", "path", a.cfg.DBPath)
		return serveErr
	},
}
