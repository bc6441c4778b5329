package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/lunatic-fringers/wgbridge/adapter/outbound/filewatcher"
	"github.com/lunatic-fringers/wgbridge/adapter/outbound/logging"
	"github.com/lunatic-fringers/wgbridge/config"
	"github.com/lunatic-fringers/wgbridge/domain/service"
)

func main() {
	// Handle command-line arguments
	var configPath string
	var logDir string
	var generateConfig bool
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "Path to configuration file (default ~/"+config.Filename+")")
	flag.StringVar(&logDir, "log-dir", ".", "Directory for log files")
	flag.BoolVar(&generateConfig, "generate-config", false, "Generate default configuration file")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	// Display version information
	if showVersion {
		fmt.Println("WG-Bridge Version " + config.Version)
		os.Exit(0)
	}

	if configPath == "" {
		path, err := config.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not determine the config file path: %v\n", err)
			os.Exit(1)
		}
		configPath = path
	}

	// Generate a default configuration file
	if generateConfig {
		cfg := config.DefaultConfig()
		if err := config.SaveConfig(cfg, configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating config file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration file generated at: %s\n", configPath)
		os.Exit(0)
	}

	// The logger comes up first; everything else reports through it.
	// Each run appends to a date-stamped file in the log directory.
	logPath := filepath.Join(logDir, time.Now().Format("2006-01-02")+".log")
	logger, err := logging.NewFileLogger(logPath, "info", 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}

	sessionID := uuid.New().String()
	logger.Info("Starting WG-Bridge " + config.Version + " (session " + sessionID + ")")

	// Load the configuration, creating a default document on first run
	cfg, created, err := config.LoadOrCreate(configPath)
	if err != nil {
		logger.ErrorErr("Failed to read the configuration", err)
		logger.Shutdown()
		os.Exit(1)
	}
	if created {
		logger.Info("Created default configuration at " + configPath)
	}
	logger.UpdateLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Watch the config document so log level and profile changes apply live
	watcher, err := filewatcher.NewFSWatcher()
	if err != nil {
		logger.ErrorErr("Failed to create config file watcher", err)
		logger.Shutdown()
		os.Exit(1)
	}

	reloadService := service.NewConfigReloadService(watcher, logger, cfg, configPath)
	if err := reloadService.Start(ctx); err != nil {
		logger.ErrorErr("Failed to start config reload service", err)
		logger.Shutdown()
		os.Exit(1)
	}

	logger.Info(fmt.Sprintf("WG-Bridge started with %d user profile(s)", len(cfg.User)))

	// Wait for a termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("Received signal " + sig.String() + ", shutting down")

	if err := reloadService.Stop(); err != nil {
		logger.ErrorErr("Error stopping config reload service", err)
	}

	// Shutdown last: drains every queued record before the process exits
	logger.Shutdown()
}
