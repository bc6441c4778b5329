package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/lunatic-fringers/wgbridge/config"
	"github.com/lunatic-fringers/wgbridge/domain/port/outbound"
)

// ConfigReloadService watches the config document and re-applies it when it
// changes on disk. A reload that fails to parse or validate is logged and
// the previous configuration stays in effect.
type ConfigReloadService struct {
	watcher    outbound.FileWatcher
	logger     outbound.Logger
	configPath string
	mu         sync.RWMutex
	current    *config.Config
	ctx        context.Context
	cancel     context.CancelFunc
	running    bool
}

func NewConfigReloadService(
	watcher outbound.FileWatcher,
	logger outbound.Logger,
	initial *config.Config,
	configPath string,
) *ConfigReloadService {
	ctx, cancel := context.WithCancel(context.Background())

	return &ConfigReloadService{
		watcher:    watcher,
		logger:     logger,
		configPath: configPath,
		current:    initial,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// begins watching the config document and processing change events
func (s *ConfigReloadService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("Config reload service already running")
		return nil
	}

	absPath, err := filepath.Abs(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for %s: %w", s.configPath, err)
	}
	s.configPath = absPath

	if err := s.watcher.Watch(ctx, absPath); err != nil {
		s.logger.ErrorErr("Failed to watch config file "+absPath, err)
		return err
	}

	go s.processEvents()

	s.running = true
	s.logger.Info("Config reload service watching " + absPath)
	return nil
}

// stops the reload service and the underlying watcher
func (s *ConfigReloadService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cancel()

	if err := s.watcher.Stop(); err != nil {
		s.logger.ErrorErr("Error stopping config file watcher", err)
		return err
	}

	s.running = false
	s.logger.Info("Config reload service stopped")
	return nil
}

// Current returns the most recently applied configuration.
func (s *ConfigReloadService) Current() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// handles file change events in a loop
func (s *ConfigReloadService) processEvents() {
	for {
		select {
		case <-s.ctx.Done():
			return

		case event := <-s.watcher.Events():
			if filepath.Clean(event.FilePath) != s.configPath {
				continue
			}
			s.logger.Debug("Config file " + event.EventType + " event received")
			s.reload()

		case err := <-s.watcher.Errors():
			s.logger.ErrorErr("Config file watcher error", err)
		}
	}
}

// reload re-reads the document and applies the new settings
func (s *ConfigReloadService) reload() {
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		s.logger.ErrorErr("Failed to reload configuration, keeping previous", err)
		return
	}

	s.mu.Lock()
	previous := s.current
	s.current = cfg
	s.mu.Unlock()

	if previous == nil || previous.LogLevel != cfg.LogLevel {
		s.logger.UpdateLevel(cfg.LogLevel)
	}

	s.logger.Info("Configuration reloaded from " + s.configPath)
}
