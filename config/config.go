// Package config holds the ripper settings, loaded from a YAML file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/gousb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration. Zero fields take their default.
type Config struct {
	OutputDir string `yaml:"output_dir"`

	VendorID  string `yaml:"vendor_id"`  // hex, e.g. 0x0e8d
	ProductID string `yaml:"product_id"` // hex

	ChunkSectors uint32        `yaml:"chunk_sectors"`
	MaxErrors    int           `yaml:"max_errors"`
	RetryDelay   time.Duration `yaml:"retry_delay"`

	CommandTimeout time.Duration `yaml:"command_timeout"`
	TOCTimeout     time.Duration `yaml:"toc_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		OutputDir:      "/tmp/cd-rip",
		ChunkSectors:   75,
		MaxErrors:      10,
		RetryDelay:     100 * time.Millisecond,
		CommandTimeout: 5 * time.Second,
		TOCTimeout:     10 * time.Second,
		ReadTimeout:    60 * time.Second,
		LogLevel:       "info",
	}
}

// Load reads the file at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config: read")
	}
	return Parse(raw)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(raw []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, errors.Wrap(err, "config: parse")
	}
	c.fill()
	return c, c.Validate()
}

func (c *Config) fill() {
	d := Default()
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.ChunkSectors == 0 {
		c.ChunkSectors = d.ChunkSectors
	}
	if c.MaxErrors == 0 {
		c.MaxErrors = d.MaxErrors
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = d.CommandTimeout
	}
	if c.TOCTimeout == 0 {
		c.TOCTimeout = d.TOCTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, _, err := c.DeviceIDs(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.MaxErrors < 0 {
		return errors.Errorf("config: max_errors %d is negative", c.MaxErrors)
	}
	if c.RetryDelay < 0 {
		return errors.Errorf("config: retry_delay %s is negative", c.RetryDelay)
	}
	return nil
}

// DeviceIDs parses the vendor and product IDs. Unset IDs are zero,
// which selects auto-detection.
func (c Config) DeviceIDs() (vid, pid gousb.ID, err error) {
	if vid, err = ParseID(c.VendorID); err != nil {
		return 0, 0, errors.Wrap(err, "config: vendor_id")
	}
	if pid, err = ParseID(c.ProductID); err != nil {
		return 0, 0, errors.Wrap(err, "config: product_id")
	}
	return vid, pid, nil
}

// Level parses LogLevel.
func (c Config) Level() (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, errors.Wrap(err, "config: log_level")
	}
	return lvl, nil
}

// ParseID parses a 16-bit USB ID written in hex, with or without a 0x
// prefix. The empty string is zero.
func ParseID(s string) (gousb.ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, errors.Errorf("invalid USB ID %q", s)
	}
	return gousb.ID(v), nil
}
