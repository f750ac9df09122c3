package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Paths   PathsConfig   `yaml:"paths"`
	Images  ImagesConfig  `yaml:"images"`
	Icons   IconsConfig   `yaml:"icons"`
	Deploy  DeployConfig  `yaml:"deploy"`
	Preview PreviewConfig `yaml:"preview"`
	Watch   WatchConfig   `yaml:"watch"`
}

type SiteConfig struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
}

type PathsConfig struct {
	// SourceDir is the authored site tree; BuildDir is the generated output.
	SourceDir string `yaml:"source_dir"`
	BuildDir  string `yaml:"build_dir"`

	// AssetsDir, FragmentsDir and WorkDir are relative to the source and
	// build roots.
	AssetsDir    string `yaml:"assets_dir"`
	FragmentsDir string `yaml:"fragments_dir"`
	WorkDir      string `yaml:"work_dir"`
}

type ImagesConfig struct {
	Widths  []int          `yaml:"widths"`
	Quality map[string]int `yaml:"quality"`
	Sharpen float64        `yaml:"sharpen"`
}

type IconsConfig struct {
	Master              string `yaml:"master"`
	FaviconSizes        []int  `yaml:"favicon_sizes"`
	AppleTouchIconSizes []int  `yaml:"apple_touch_icon_sizes"`
	AndroidIconSizes    []int  `yaml:"android_icon_sizes"`
}

type DeployConfig struct {
	User     string   `yaml:"user"`
	Host     string   `yaml:"host"`
	Path     string   `yaml:"path"`
	SSHKey   string   `yaml:"ssh_key"`
	Excludes []string `yaml:"excludes"`
}

type PreviewConfig struct {
	Addr string `yaml:"addr"`
}

type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Paths.SourceDir = "site"
	cfg.Paths.BuildDir = "public"
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Paths.AssetsDir == "" {
		c.Paths.AssetsDir = "assets/images"
	}
	if c.Paths.FragmentsDir == "" {
		c.Paths.FragmentsDir = "fragments"
	}
	if c.Paths.WorkDir == "" {
		c.Paths.WorkDir = "work"
	}
	if len(c.Images.Widths) == 0 {
		c.Images.Widths = []int{320, 640, 960, 1200, 1800}
	}
	if c.Images.Quality == nil {
		c.Images.Quality = map[string]int{}
	}
	if _, ok := c.Images.Quality["jpeg"]; !ok {
		c.Images.Quality["jpeg"] = 85
	}
	if _, ok := c.Images.Quality["webp"]; !ok {
		c.Images.Quality["webp"] = 82
	}
	if c.Images.Sharpen == 0 {
		c.Images.Sharpen = 0.5
	}
	if c.Icons.Master == "" {
		c.Icons.Master = "assets/icons/master.png"
	}
	if len(c.Icons.FaviconSizes) == 0 {
		c.Icons.FaviconSizes = []int{16, 32, 48}
	}
	if len(c.Icons.AppleTouchIconSizes) == 0 {
		c.Icons.AppleTouchIconSizes = []int{76, 120, 152, 180}
	}
	if len(c.Icons.AndroidIconSizes) == 0 {
		c.Icons.AndroidIconSizes = []int{192, 512}
	}
	if c.Preview.Addr == "" {
		c.Preview.Addr = ":8787"
	}
	if c.Watch.DebounceMS == 0 {
		c.Watch.DebounceMS = 500
	}
}

// Validate checks if required configuration fields are set
func (c *Config) Validate() error {
	if c.Paths.SourceDir == "" {
		return fmt.Errorf("paths.source_dir is required")
	}
	if c.Paths.BuildDir == "" {
		return fmt.Errorf("paths.build_dir is required")
	}
	for _, w := range c.Images.Widths {
		if w <= 0 {
			return fmt.Errorf("images.widths must be positive, got %d", w)
		}
	}
	for format, q := range c.Images.Quality {
		if q < 1 || q > 100 {
			return fmt.Errorf("images.quality.%s must be in 1..100, got %d", format, q)
		}
	}
	return nil
}

// SourceAssets returns the asset root inside the source tree.
func (c *Config) SourceAssets() string {
	return filepath.Join(c.Paths.SourceDir, c.Paths.AssetsDir)
}

// BuildAssets returns the asset root inside the build tree.
func (c *Config) BuildAssets() string {
	return filepath.Join(c.Paths.BuildDir, c.Paths.AssetsDir)
}

// FragmentsRoot returns the shared fragment directory in the source tree.
func (c *Config) FragmentsRoot() string {
	return filepath.Join(c.Paths.SourceDir, c.Paths.FragmentsDir)
}

// WorkRoot returns the portfolio piece directory inside the build tree.
func (c *Config) WorkRoot() string {
	return filepath.Join(c.Paths.BuildDir, c.Paths.WorkDir)
}

// IconMaster returns the path of the icon master image in the source tree.
func (c *Config) IconMaster() string {
	return filepath.Join(c.Paths.SourceDir, c.Icons.Master)
}

// QualityFor returns the encode quality for an output format.
func (i ImagesConfig) QualityFor(format string) int {
	if q, ok := i.Quality[format]; ok {
		return q
	}
	return 85
}

// Target assembles the rsync destination as user@host:path.
func (d DeployConfig) Target() string {
	if d.User == "" {
		return fmt.Sprintf("%s:%s", d.Host, d.Path)
	}
	return fmt.Sprintf("%s@%s:%s", d.User, d.Host, d.Path)
}

// Debounce returns the watch debounce window.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}
