package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/landcover.report/internal/api"
	"github.com/banshee-data/landcover.report/internal/blob"
	"github.com/banshee-data/landcover.report/internal/config"
	"github.com/banshee-data/landcover.report/internal/db"
	"github.com/banshee-data/landcover.report/internal/landcover"
	"github.com/banshee-data/landcover.report/internal/monitoring"
	"github.com/banshee-data/landcover.report/internal/pipeline"
	"github.com/banshee-data/landcover.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Config file (.yaml, .yml or .json); defaults to "+config.DefaultConfigPath+" when present")
	dbPath      = flag.String("db", "", "SQLite database path (overrides storage.database)")
	serve       = flag.Bool("serve", false, "Serve the read API after the analysis run")
	listen      = flag.String("listen", ":8080", "Listen address for -serve")
	watch       = flag.Bool("watch", false, "Re-run the analysis whenever the config file changes")
	skipRun     = flag.Bool("skip-run", false, "Do not run the analysis at startup")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	database := databasePath(cfg, *dbPath)

	if flag.Arg(0) == "migrate" {
		if err := db.RunMigrateCommand(os.Stdout, flag.Args()[1:], database); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}
	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", flag.Arg(0))
		printUsage()
		os.Exit(1)
	}
	if *watch && path == "" {
		log.Fatal("-watch needs a config file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, err := pipeline.OpenBlobs(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open blob store: %v", err)
	}
	store, err := db.NewDB(database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()
	metrics := monitoring.NewMetrics()

	analyse := func(cfg *config.Config) error {
		runner := pipeline.New(cfg, pipeline.NewSource(cfg, blobs, landcover.IGBP()), blobs, store, metrics)
		rep, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		logReport(rep)
		return nil
	}

	if !*skipRun {
		if err := analyse(cfg); err != nil {
			if !*serve && !*watch {
				log.Fatalf("analysis failed: %v", err)
			}
			log.Printf("analysis failed: %v", err)
		}
	}
	if !*serve && !*watch {
		return
	}

	var wg sync.WaitGroup

	if *watch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := config.Watch(ctx, path, func(next *config.Config) {
				log.Printf("config %s changed, re-running analysis", path)
				if err := analyse(next); err != nil {
					log.Printf("analysis failed: %v", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("config watch stopped: %v", err)
			}
		}()
	}

	if *serve {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runServer(ctx, *listen, api.NewServer(store, blobs, cfg, metrics))
		}()
	}

	wg.Wait()
	log.Print("shutdown complete")
}

// loadConfig loads path, or the default config file when path is empty and
// the file exists. The returned path is empty when built-in defaults are used.
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err != nil {
			return config.Default(), "", nil
		}
		path = config.DefaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func databasePath(cfg *config.Config, override string) string {
	if override != "" {
		return override
	}
	return cfg.GetDatabase()
}

func logReport(rep *pipeline.Report) {
	log.Printf("run %s complete: years %v", rep.RunID, rep.Years)
	if len(rep.Skipped) > 0 {
		log.Printf("  skipped years: %v", rep.Skipped)
	}
	for _, y := range rep.Years {
		r := rep.Areas[y]
		if r == nil || len(r.TopClasses) == 0 {
			continue
		}
		log.Printf("  %d: %d pixels, %.0f km², dominant %s (%.1f%%)",
			y, r.TotalPixels, r.TotalAreaKm2, r.TopClasses[0].Name, r.TopClasses[0].Percentage)
	}
	log.Printf("  %s", pipeline.SummaryLine(rep.Change))
	log.Printf("  %d artifacts written", len(rep.Artifacts))
}

func runServer(ctx context.Context, addr string, s *api.Server) {
	server := &http.Server{
		Addr:              addr,
		Handler:           api.LoggingMiddleware(s.ServeMux()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("serving API on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}

func printUsage() {
	fmt.Fprintf(flag.CommandLine.Output(), `landcover - global land cover change analysis

Usage:
  landcover [flags]                 run the analysis once
  landcover -serve [flags]          run, then serve the read API
  landcover migrate <action>        manage the results database schema

Flags:
`)
	flag.PrintDefaults()
	fmt.Fprintln(flag.CommandLine.Output())
	db.PrintMigrateHelp(flag.CommandLine.Output())
	fmt.Fprintf(flag.CommandLine.Output(), "\nBlob drivers: %s, %s, %s\n", blob.DriverFilesystem, blob.DriverMemory, blob.DriverS3)
}
