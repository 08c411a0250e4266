package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescribe/internal/config"
	"github.com/nao1215/sitescribe/internal/crawler"
	"github.com/nao1215/sitescribe/internal/database"
	sitelog "github.com/nao1215/sitescribe/internal/log"
	"github.com/nao1215/sitescribe/internal/model"
	"github.com/nao1215/sitescribe/internal/pipeline"
	"github.com/nao1215/sitescribe/internal/report"
)

// Environment variables holding provider credentials.
const (
	envAnthropicAPIKey = "ANTHROPIC_API_KEY"
	envOpenAIAPIKey    = "OPENAI_API_KEY"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	return newCrawlCmd(os.Getenv)
}

// newCrawlCmd creates the crawl command reading credentials through getenv.
func newCrawlCmd(getenv func(string) string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a website and write one document per module",
		Long: `Crawl visits pages of a website breadth-first, staying on the start host,
until the page budget is used up. Pages are grouped into modules by their
first path segment (/docs/intro and /docs/setup form the "Docs" module,
/about.html belongs to the root module). Each module is analyzed and written
to <output-dir>/<module>_analysis.<ext>, and index.md links all modules.

Analysis uses a language model when an API key is given with --api-key or
through ANTHROPIC_API_KEY / OPENAI_API_KEY. Without a key, or when the model
fails, a built-in keyword analysis is used.

Press Ctrl+C once to stop crawling and still write documents for the pages
visited so far. Press it again to abort.

Examples:
  # Crawl up to 50 pages of a documentation site
  sitescribe crawl https://docs.example.com

  # The scheme defaults to https
  sitescribe crawl docs.example.com -p 200

  # Use OpenAI instead of Anthropic
  sitescribe crawl --provider openai docs.example.com

  # Write JSON documents to ./out without saving history
  sitescribe crawl -f json -o out --no-save docs.example.com

  # Four concurrent fetches, at most 2 requests per second overall
  sitescribe crawl -w 4 --max-rps 2 docs.example.com

Configuration file (.sitescribe) example:
  defaults:
    ignorePatterns:
      - "/login*"
  sites:
    docs.example.com:
      maxPages: 200
      headers:
        Accept-Language: en-US
      moduleAliases:
        guides: tutorials`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawlCmd(cmd, args, getenv)
		},
	}

	// Crawl behavior flags
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to visit")
	cmd.Flags().DurationP("delay", "d", config.DefaultCrawlDelay,
		"Politeness delay after each request")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent fetches")
	cmd.Flags().Float64("max-rps", 0,
		"Maximum requests per second across all workers (0 for no limit)")
	cmd.Flags().Bool("keep-query", false,
		"Treat URLs with different query strings as different pages")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")

	// Analysis flags
	cmd.Flags().StringP("api-key", "k", "",
		"Language model API key (default: "+envAnthropicAPIKey+" or "+envOpenAIAPIKey+")")
	cmd.Flags().String("provider", config.ProviderAnthropic,
		"Language model provider: anthropic or openai")
	cmd.Flags().String("model", "",
		"Model name (default depends on the provider)")
	cmd.Flags().Int("module-workers", config.DefaultModuleWorkers,
		"Number of modules analyzed concurrently")

	// Output flags
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Directory for module documents")
	cmd.Flags().StringP("format", "f", config.FormatMarkdown,
		"Document format: markdown, json or text")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitescribe in current or home directory)")

	// History flags
	cmd.Flags().Bool("no-save", false,
		"Do not store the run in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string, getenv func(string) string) error {
	cfg, err := buildConfig(cmd, args, getenv)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := sitelog.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// interrupt ends the crawl only; cancel aborts the whole run.
	interrupt, stopCrawl := context.WithCancel(context.Background())
	defer stopCrawl()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go handleSignals(ctx, sigCh, stopCrawl, cancel, logger)

	return runCrawl(ctx, interrupt, cfg, cmd.OutOrStdout(), logger)
}

// handleSignals stops the crawl on the first interrupt. A second interrupt
// or SIGTERM cancels the run.
func handleSignals(ctx context.Context, sigCh <-chan os.Signal, stopCrawl, cancel context.CancelFunc, logger *slog.Logger) {
	interrupted := false
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigCh:
			if sig == os.Interrupt && !interrupted {
				interrupted = true
				logger.Warn("interrupt received, writing documents for the pages crawled so far (press Ctrl+C again to abort)")
				stopCrawl()
				continue
			}
			logger.Warn("received shutdown signal, cancelling...", "signal", sig.String())
			cancel()
			return
		}
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags, the optional
// configuration file and the environment.
func buildConfig(cmd *cobra.Command, args []string, getenv func(string) string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	cfg.MaxPages, err = flags.GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDelay, err = flags.GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = flags.GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Workers, err = flags.GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.MaxRequestsPerSecond, err = flags.GetFloat64("max-rps")
	if err != nil {
		return nil, err
	}

	cfg.KeepQuery, err = flags.GetBool("keep-query")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = flags.GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.Provider, err = flags.GetString("provider")
	if err != nil {
		return nil, err
	}

	cfg.Model, err = flags.GetString("model")
	if err != nil {
		return nil, err
	}

	cfg.APIKey, err = flags.GetString("api-key")
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		cfg.APIKey = apiKeyFromEnv(cfg.Provider, getenv)
	}

	cfg.ModuleWorkers, err = flags.GetInt("module-workers")
	if err != nil {
		return nil, err
	}

	cfg.OutputDir, err = flags.GetString("output-dir")
	if err != nil {
		return nil, err
	}

	cfg.Format, err = flags.GetString("format")
	if err != nil {
		return nil, err
	}

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave

	cfg.DBDir, err = flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	if len(args) > 0 {
		cfg.TargetURL = config.NormalizeTargetURL(args[0])
	}

	site, err := loadSiteConfig(cfg.ConfigFilePath, cfg.TargetHost())
	if err != nil {
		return nil, err
	}
	cfg.ApplySite(site)

	// Explicit flags win over the configuration file.
	if flags.Changed("max-pages") {
		cfg.MaxPages, _ = flags.GetInt("max-pages")
	}

	return cfg, nil
}

// loadSiteConfig returns the merged site configuration for host.
// If the user explicitly specified a config file path, a missing file is an
// error. Otherwise an absent file yields an empty configuration.
func loadSiteConfig(path, host string) (config.SiteConfig, error) {
	configPath := config.FindConfigFile(path)
	if configPath == "" {
		if path != "" {
			return config.SiteConfig{}, fmt.Errorf("configuration file not found: %s", path)
		}
		return config.SiteConfig{}, nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return config.SiteConfig{}, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return file.GetSiteConfig(host), nil
}

// apiKeyFromEnv returns the credential for provider from the environment.
func apiKeyFromEnv(provider string, getenv func(string) string) string {
	switch provider {
	case config.ProviderOpenAI:
		return getenv(envOpenAIAPIKey)
	default:
		return getenv(envAnthropicAPIKey)
	}
}

// runCrawl executes one run and prints progress and the summary to out.
func runCrawl(ctx, interrupt context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"target", cfg.TargetURL,
		"maxPages", cfg.MaxPages,
		"workers", cfg.Workers,
		"provider", cfg.Provider,
		"llm", cfg.APIKey != "",
		"saveToDB", cfg.SaveToDB,
	)

	var mu sync.Mutex
	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineInterrupt(interrupt),
		pipeline.WithPipelineProgress(func(p crawler.Progress) {
			mu.Lock()
			defer mu.Unlock()
			printProgress(out, p)
		}),
		pipeline.WithPipelineOutcomeCallback(func(o *model.ModuleOutcome, _ int) {
			mu.Lock()
			defer mu.Unlock()
			printOutcome(out, o)
		}),
	}

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
		configOpts = append(configOpts, pipeline.WithPipelineStore(db))
	}

	p, err := pipeline.DefaultPipeline(cfg, []pipeline.Option{pipeline.WithLogger(logger)}, configOpts...)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	run := model.NewRunReport(cfg.TargetURL, cfg.MaxPages)

	fmt.Fprintf(out, "Crawling %s (up to %d pages)...\n", cfg.TargetURL, cfg.MaxPages)
	startTime := time.Now()

	execErr := p.Execute(ctx, run)

	if err := report.NewSummaryWriter(out).Write(run); err != nil {
		logger.Warn("failed to write summary", "error", err)
	}

	switch {
	case errors.Is(execErr, pipeline.ErrEmptyCrawl):
		return fmt.Errorf("%w (check the URL, network access and ignore patterns)", execErr)
	case execErr != nil:
		return execErr
	}

	fmt.Fprintf(out, "\nCompleted in %s\n", time.Since(startTime).Round(time.Millisecond))
	return nil
}

// printProgress prints one line per visited page.
func printProgress(out io.Writer, p crawler.Progress) {
	if p.Page.OK() {
		fmt.Fprintf(out, "[%d/%d] %s\n", p.Visited, p.MaxPages, p.Page.URL)
		return
	}
	fmt.Fprintf(out, "[%d/%d] %s (failed: %s)\n", p.Visited, p.MaxPages, p.Page.URL, p.Page.FailureReason())
}

// printOutcome prints one line per processed module.
func printOutcome(out io.Writer, o *model.ModuleOutcome) {
	if !o.Succeeded() {
		fmt.Fprintf(out, "  [-] %s: %s\n", o.Module, o.Error)
		return
	}
	source := ""
	if o.Analysis != nil {
		source = " (" + o.Analysis.Source + ")"
	}
	fmt.Fprintf(out, "  [+] %s%s -> %s\n", o.Module, source, o.OutputPath)
}
