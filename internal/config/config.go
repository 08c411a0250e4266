package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitescribe"

	// DefaultMaxPages is the page budget for one crawl.
	DefaultMaxPages = 50

	// DefaultCrawlDelay is the politeness delay applied after every request.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 10 * time.Second

	// DefaultWorkers keeps crawling strictly sequential.
	DefaultWorkers = 1

	// DefaultModuleWorkers is the number of modules analyzed and rendered concurrently.
	DefaultModuleWorkers = 4

	// DefaultUserAgent looks like a desktop browser. Some sites serve
	// stripped-down pages to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 sitescribe/1.0"

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultContentLimit is the number of characters of page text kept per page.
	DefaultContentLimit = 5000

	// DefaultOutputDir is where module documents are written.
	DefaultOutputDir = "reports"

	// DefaultRootModuleName names the module holding root-level pages.
	DefaultRootModuleName = "Home"
)

// Analysis providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Report formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatText     = "text"
)

// Config holds all options for a single run.
// It is built once in the command layer, validated, and then passed by
// value or pointer into constructors. Nothing below cmd reads flags or
// environment variables.
type Config struct {
	// TargetURL is the absolute http or https URL where the crawl starts.
	// Its host defines the crawl scope.
	TargetURL string

	// MaxPages is the page budget. The visited set never grows beyond it.
	MaxPages int

	// APIKey is the optional analysis credential. When empty, the basic
	// analyzer is used for every module.
	APIKey string

	// Provider selects the language model backend (anthropic or openai).
	Provider string

	// Model overrides the provider's default model name.
	Model string

	// CrawlDelay is the politeness delay after each request.
	CrawlDelay time.Duration

	// MaxRequestsPerSecond caps the global request rate across workers.
	// Zero disables the cap.
	MaxRequestsPerSecond float64

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// Workers is the number of concurrent fetches during the crawl.
	Workers int

	// ModuleWorkers is the number of modules processed concurrently after the crawl.
	ModuleWorkers int

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// ContentLimit is the number of characters of text kept per page.
	ContentLimit int

	// KeepQuery keeps query strings as part of the canonical URL.
	// By default queries are dropped so /a?x=1 and /a are the same page.
	KeepQuery bool

	// OutputDir is the directory module documents are written to.
	OutputDir string

	// Format is the document format: markdown, json or text.
	Format string

	// RootModuleName names the module of root-level pages.
	RootModuleName string

	// ConfigFilePath is the path to the YAML site configuration file.
	// If empty, .sitescribe is searched in the current and home directories.
	ConfigFilePath string

	// Site holds the merged site configuration for the target host.
	Site SiteConfig

	// SaveToDB stores the run in the history database.
	SaveToDB bool

	// DBDir is the directory of the history database.
	DBDir string

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		MaxPages:       DefaultMaxPages,
		Provider:       ProviderAnthropic,
		CrawlDelay:     DefaultCrawlDelay,
		Timeout:        DefaultTimeout,
		Workers:        DefaultWorkers,
		ModuleWorkers:  DefaultModuleWorkers,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		ContentLimit:   DefaultContentLimit,
		OutputDir:      DefaultOutputDir,
		Format:         FormatMarkdown,
		RootModuleName: DefaultRootModuleName,
		SaveToDB:       true,
		DBDir:          XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for sitescribe.
// On Linux: ~/.local/share/sitescribe
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitescribe.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// NormalizeTargetURL trims whitespace and prepends https:// when the
// input has no scheme, so "example.com" can be typed on the command line.
func NormalizeTargetURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if !strings.Contains(raw, "://") {
		return "https://" + raw
	}
	return raw
}

// TargetHost returns the host of TargetURL, or an empty string if it does not parse.
func (c *Config) TargetHost() string {
	u, err := url.Parse(c.TargetURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// ApplySite merges a site configuration into the config.
// Non-zero site values override the current ones.
func (c *Config) ApplySite(site SiteConfig) {
	c.Site = site
	if site.MaxPages > 0 {
		c.MaxPages = site.MaxPages
	}
	if site.RootModuleName != "" {
		c.RootModuleName = site.RootModuleName
	}
}

// Validate checks the configuration and returns the first problem found.
// Every returned error matches ErrConfiguration with errors.Is.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.TargetURL == "" {
		return ErrNoTarget
	}

	u, err := url.Parse(c.TargetURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidTargetURL, c.TargetURL)
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTargetURL, u.Scheme)
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxRequestsPerSecond < 0 {
		return ErrInvalidRate
	}
	if c.Workers <= 0 || c.ModuleWorkers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.ContentLimit <= 0 {
		return ErrInvalidContentLimit
	}

	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}

	switch c.Format {
	case FormatMarkdown, FormatJSON, FormatText:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, c.Format)
	}

	if c.OutputDir == "" {
		return ErrNoOutputDir
	}
	return nil
}
