package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"packets/internal/config"
	"packets/internal/dispatch"
	"packets/internal/logging"
	"packets/internal/storage"
	"packets/internal/workspace"
)

var version = "dev"

var (
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "packets",
	Short: "Packets keeps collections of HTTP requests and sends them",
	Long: `Packets keeps collections of HTTP requests with their auth, parameters and
bodies, sends them in the background and records every exchange. Run "packets
serve" to drive it over a local JSON API, or use the commands below directly.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./packets.yaml or <data_dir>/packets.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd, sendCmd, listCmd, importCmd, exportCmd, harCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is what every command needs: configuration, a logger and the database.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *storage.Store
}

func openApp() (*app, error) {
	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}
	store, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	logger.Debug("opened database", "path", cfg.DBPath)
	return &app{cfg: cfg, logger: logger, store: store}, nil
}

func (a *app) Close() error { return a.store.Close() }

func (a *app) fetcher() (*dispatch.HTTPFetcher, error) {
	return dispatch.NewHTTPFetcher(dispatch.Options{
		Timeout:            a.cfg.RequestTimeout,
		ProxyURL:           a.cfg.ProxyURL,
		InsecureSkipVerify: a.cfg.InsecureSkipVerify,
	})
}

// workspace builds a dispatcher recording into history and restores the
// saved state into a fresh workspace.
func (a *app) workspace(opts ...dispatch.Option) (*workspace.Workspace, *dispatch.Dispatcher, error) {
	f, err := a.fetcher()
	if err != nil {
		return nil, nil, err
	}
	opts = append([]dispatch.Option{dispatch.WithRecorder(a.store), dispatch.WithLogger(a.logger)}, opts...)
	disp := dispatch.New(f, opts...)

	st, err := a.store.LoadState()
	if err != nil {
		disp.Close()
		return nil, nil, err
	}
	ws := workspace.New(disp, a.logger)
	ws.Restore(st)
	return ws, disp, nil
}
