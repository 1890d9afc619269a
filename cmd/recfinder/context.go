package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/sydlexius/recfinder/internal/config"
	"github.com/sydlexius/recfinder/internal/filter"
	"github.com/sydlexius/recfinder/internal/lastfm"
	"github.com/sydlexius/recfinder/internal/logging"
	"github.com/sydlexius/recfinder/internal/metrics"
	"github.com/sydlexius/recfinder/internal/recommend"
	"github.com/sydlexius/recfinder/internal/similar"
)

// commandContext carries state shared by every subcommand of one invocation.
type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logManager *logging.Manager
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

// configPath resolves --config, then RF_CONFIG_PATH, then the user config dir.
func (c *commandContext) configPath() string {
	if c.configFlag != nil {
		if p := strings.TrimSpace(*c.configFlag); p != "" {
			return p
		}
	}
	if p := strings.TrimSpace(os.Getenv("RF_CONFIG_PATH")); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "recfinder", "config.yaml")
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load(c.configPath())
	})
	return c.config, c.configErr
}

// startLogging builds the logging Manager once config is loaded. Log lines
// go to the command's stderr so stdout stays parseable.
func (c *commandContext) startLogging(cfg *config.Config, stderr io.Writer) {
	if c.logManager != nil {
		return
	}
	c.logManager, c.logger = logging.NewManager(loggingConfig(cfg, stderr))
}

func (c *commandContext) close() {
	if c.logManager != nil {
		c.logManager.Close() //nolint:errcheck
	}
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// newService wires the Last.fm client, both pipeline stages, and m into a
// recommendation service. m may be nil.
func (c *commandContext) newService(cfg *config.Config, m *metrics.Metrics) (*recommend.Service, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	client := lastfm.New(lastfm.Config{
		APIKey:            cfg.LastFM.APIKey,
		BaseURL:           cfg.LastFM.BaseURL,
		Timeout:           cfg.LastFM.Timeout,
		RequestsPerSecond: cfg.LastFM.RequestsPerSecond,
	}, c.logger)

	return recommend.NewService(
		similar.NewFetcher(client, m, c.logger),
		filter.New(client, filter.Options{
			Quota:   cfg.Filter.Quota,
			Workers: cfg.Filter.Workers,
		}, m, c.logger),
		c.logger,
	), nil
}

func loggingConfig(cfg *config.Config, out io.Writer) logging.Config {
	return logging.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.FilePath,
		Output:   out,
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
