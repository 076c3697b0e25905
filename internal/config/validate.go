package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScanner(); err != nil {
		return err
	}
	if err := c.validateGeocoder(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if c.Preview.SampleFiles < 0 {
		return errors.New("preview.sample_files must not be negative")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateScanner() error {
	if len(c.Scanner.Extensions) == 0 {
		return errors.New("scanner.extensions must list at least one extension")
	}
	if c.Scanner.MaxDepth < 1 {
		return errors.New("scanner.max_depth must be at least 1")
	}
	return nil
}

func (c *Config) validateGeocoder() error {
	if !c.Geocoder.Enabled {
		return nil
	}
	if _, err := url.ParseRequestURI(c.Geocoder.BaseURL); err != nil {
		return fmt.Errorf("geocoder.base_url: %w", err)
	}
	if c.Geocoder.TimeoutSeconds < 1 {
		return errors.New("geocoder.timeout_seconds must be at least 1")
	}
	if c.Geocoder.MinIntervalMS < 0 {
		return errors.New("geocoder.min_interval_ms must not be negative")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers < 1 || c.Workflow.Workers > 4 {
		return errors.New("workflow.workers must be between 1 and 4")
	}
	if c.Workflow.QueuePollInterval < time.Second {
		return errors.New("workflow.queue_poll_interval must be at least 1s")
	}
	if c.Workflow.ProgressFlushFiles < 1 {
		return errors.New("workflow.progress_flush_files must be at least 1")
	}
	return nil
}
