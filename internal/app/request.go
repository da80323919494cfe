package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// requestFile is the on-disk shape of a discovery request. Flags win over
// file values, so only zero-valued Config fields are filled from it.
type requestFile struct {
	AccountID       string   `yaml:"accountId"`
	Regions         []string `yaml:"regions"`
	ExcludeRegions  []string `yaml:"excludeRegions"`
	Services        []string `yaml:"services"`
	ExcludeServices []string `yaml:"excludeServices"`
	MaxConcurrent   int      `yaml:"maxConcurrent"`
	Timeout         string   `yaml:"timeout"`
	S3Bucket        string   `yaml:"s3Bucket"`
}

// ApplyRequestFile merges a YAML request file into the config, without
// overriding anything already set.
func (c *Config) ApplyRequestFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read request file: %w", err)
	}

	var req requestFile
	if err := yaml.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("failed to parse request file %s: %w", path, err)
	}

	if c.AccountID == "" {
		c.AccountID = req.AccountID
	}
	if len(c.Regions) == 0 {
		c.Regions = req.Regions
	}
	if len(c.ExcludeRegions) == 0 {
		c.ExcludeRegions = req.ExcludeRegions
	}
	if len(c.Services) == 0 {
		c.Services = req.Services
	}
	if len(c.ExcludeServices) == 0 {
		c.ExcludeServices = req.ExcludeServices
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = req.MaxConcurrent
	}
	if c.Timeout == 0 && req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout in request file: %w", err)
		}
		c.Timeout = d
	}
	if c.S3Bucket == "" {
		c.S3Bucket = req.S3Bucket
	}
	return nil
}
