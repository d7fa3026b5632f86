// Package main is the entry point for the knx2openhab dashboard server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/knx2openhab/dashboard/internal/client"
	"github.com/knx2openhab/dashboard/internal/config"
	"github.com/knx2openhab/dashboard/internal/dashboard"
	"github.com/knx2openhab/dashboard/internal/database"
	"github.com/knx2openhab/dashboard/internal/diff"
	"github.com/knx2openhab/dashboard/internal/handlers"
	"github.com/knx2openhab/dashboard/internal/router"
	"github.com/knx2openhab/dashboard/internal/service"
	"github.com/knx2openhab/dashboard/internal/services"
	"github.com/knx2openhab/dashboard/internal/tui"
	"github.com/knx2openhab/dashboard/internal/version"
	"github.com/knx2openhab/dashboard/internal/view"
)

func main() {
	// Check for subcommands first
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && isCommand(args[0]) {
		cmd, args = args[0], args[1:]
	}

	if cmd == "version" {
		fmt.Printf("knx2openhab dashboard %s\n", version.String())
		os.Exit(0)
	}

	if cmd == "install" || cmd == "uninstall" {
		if err := manageService(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "%s failed: %v\n", cmd, err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	job := fs.String("job", "", "job to open on start (watch only)")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Warning: Could not load config from %s: %v", *configPath, err)
		log.Println("Using default configuration...")
		cfg = config.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	journal := services.NewJournalService(db)
	deps := dashboard.Deps{
		Backend:  newBackend(cfg),
		Journal:  journal,
		Mirror:   services.NewLogMirrorService(db),
		Sessions: services.NewSessionService(db),
	}
	opts := sessionOptions(cfg)

	if cmd == "watch" {
		// The terminal owns the screen; keep the log out of it.
		log.SetOutput(discardUnlessDebug(cfg.Log.Debug))
		if err := tui.Run(ctx, deps, opts, *job); err != nil {
			fmt.Fprintf(os.Stderr, "watch failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, cfg, deps, opts, journal); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func isCommand(s string) bool {
	switch s {
	case "serve", "watch", "version", "install", "uninstall":
		return true
	}
	return false
}

func manageService(cmd string, args []string) error {
	unit := service.DefaultUnit()
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.StringVar(&unit.ConfigPath, "config", unit.ConfigPath, "config file used by the service")
	fs.StringVar(&unit.User, "user", unit.User, "user the service runs as")
	fs.StringVar(&unit.WorkingDir, "workdir", unit.WorkingDir, "working directory of the service")
	_ = fs.Parse(args)

	inst, err := service.NewInstaller()
	if err != nil {
		return err
	}
	if cmd == "uninstall" {
		return inst.Uninstall()
	}
	if err := inst.Install(unit); err != nil {
		return err
	}
	fmt.Printf("Installed %s, config %s\n", service.Name, unit.ConfigPath)
	return nil
}

func newBackend(cfg *config.Config) *client.Client {
	var opts []client.Option
	if cfg.Backend.Username != "" {
		opts = append(opts, client.WithBasicAuth(cfg.Backend.Username, cfg.Backend.Password))
	}
	return client.New(cfg.Backend.BaseURL, cfg.Backend.GetTimeout(), opts...)
}

func sessionOptions(cfg *config.Config) dashboard.Options {
	return dashboard.Options{
		StatsRetry:   cfg.Dashboard.GetStatsRetry(),
		DiffStrategy: diff.ParseStrategy(cfg.Dashboard.DiffStrategy),
		Services:     cfg.Dashboard.Services,
		UpdatePoll:   cfg.Dashboard.GetUpdatePollInterval(),
		Debug:        cfg.Log.Debug,
	}
}

func serve(ctx context.Context, cfg *config.Config, deps dashboard.Deps, opts dashboard.Options, journal *services.JournalService) error {
	renderer, err := view.New()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	hub := handlers.NewHub()

	manager := dashboard.NewManager(ctx, deps, func(id string) dashboard.View {
		return view.NewPresenter(renderer, hub.Sink(id))
	}, dashboard.ManagerOptions{
		Session:         opts,
		RefreshInterval: cfg.Dashboard.GetJobRefreshInterval(),
		MaxAge:          cfg.Dashboard.GetSessionMaxAge(),
	})
	defer manager.Shutdown()
	go manager.Run(ctx, time.Minute)

	r := router.New(ctx, cfg, router.Deps{
		Sessions: manager,
		Hub:      hub,
		Renderer: renderer,
		Journal:  journal,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	log.Printf("knx2openhab dashboard %s starting on %s", version.Version, addr)
	log.Printf("Backend: %s", cfg.Backend.BaseURL)
	log.Printf("Access at: http://%s%s", addr, cfg.Server.PathPrefix)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func discardUnlessDebug(debug bool) io.Writer {
	if debug {
		return os.Stderr
	}
	return io.Discard
}
