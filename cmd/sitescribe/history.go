package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescribe/internal/config"
	"github.com/nao1215/sitescribe/internal/database"
)

// historyDateLayout formats run times in listings.
const historyDateLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
// It reads the runs stored by crawl from the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show stored runs of a site",
		Long: `History lists the runs that crawl stored in the history database.

Without flags it prints the runs of the given site, newest first. With
--compare it shows how the pages changed between the latest two runs:
pages added or removed, pages whose content changed, and pages that
started or stopped failing.

Examples:
  # List the runs of a site
  sitescribe history docs.example.com

  # Compare the latest two runs
  sitescribe history --compare docs.example.com

  # Output in JSON format
  sitescribe history --json docs.example.com

  # List all sites in the database
  sitescribe history --list-sites`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-sites", "L", false,
		"List all sites in the database")
	cmd.Flags().BoolP("compare", "C", false,
		"Compare the pages of the latest two runs")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listSites, err := cmd.Flags().GetBool("list-sites")
	if err != nil {
		return err
	}
	compare, err := cmd.Flags().GetBool("compare")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var host string
	if !listSites {
		if len(args) == 0 {
			return errors.New("site URL is required (use --list-sites to see stored sites)")
		}
		cfg := &config.Config{TargetURL: config.NormalizeTargetURL(args[0])}
		host = cfg.TargetHost()
		if host == "" {
			return fmt.Errorf("invalid site URL: %q", args[0])
		}
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case listSites:
		return listStoredSites(ctx, db, out, jsonOutput)
	case compare:
		return compareLatestRuns(ctx, db, out, host, jsonOutput)
	default:
		return listRunHistory(ctx, db, out, host, jsonOutput)
	}
}

// listStoredSites lists all hosts that have runs in the database.
func listStoredSites(ctx context.Context, db *database.CrawlDB, out io.Writer, jsonOutput bool) error {
	sites, err := db.ListSites(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}

	if jsonOutput {
		if sites == nil {
			sites = []database.SiteRecord{}
		}
		return writeJSON(out, sites)
	}

	if len(sites) == 0 {
		fmt.Fprintln(out, "No sites found in the database.")
		fmt.Fprintln(out, "\nUse 'sitescribe crawl <url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(out, "Crawled sites (%d):\n\n", len(sites))
	for _, s := range sites {
		fmt.Fprintf(out, "  • %s (%d runs, last %s)\n", s.Host, s.Runs, formatRunTime(s.LastRun))
	}
	fmt.Fprintln(out, "\nUse 'sitescribe history <url>' to see the runs of a site.")

	return nil
}

// listRunHistory lists the runs of one host, newest first.
func listRunHistory(ctx context.Context, db *database.CrawlDB, out io.Writer, host string, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, host)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if jsonOutput {
		if runs == nil {
			runs = []database.RunRecord{}
		}
		return writeJSON(out, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs found for %s\n", host)
		fmt.Fprintln(out, "\nUse 'sitescribe crawl' to crawl this site.")
		return nil
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", host, len(runs))
	fmt.Fprintf(out, "  %-19s  %-11s  %-11s  %-11s  %s\n", "Started", "Pages", "Modules", "Status", "Run ID")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))

	for _, r := range runs {
		fmt.Fprintf(out, "  %-19s  %-11s  %-11s  %-11s  %s\n",
			formatRunTime(r.StartedAt),
			fmt.Sprintf("%d/%d", r.PagesSucceeded, r.PagesSucceeded+r.PagesFailed),
			fmt.Sprintf("%d/%d", r.ModulesSucceeded, r.ModulesSucceeded+r.ModulesFailed),
			runStatus(r),
			r.ID,
		)
	}

	return nil
}

// comparison is the JSON form of a run comparison.
type comparison struct {
	Host     string                `json:"host"`
	Previous database.RunRecord    `json:"previous"`
	Current  database.RunRecord    `json:"current"`
	Changes  *database.PageChanges `json:"changes"`
}

// compareLatestRuns prints the page changes between the latest two runs of host.
func compareLatestRuns(ctx context.Context, db *database.CrawlDB, out io.Writer, host string, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, host)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}
	if len(runs) < 2 {
		return fmt.Errorf("need at least two runs of %s to compare, found %d", host, len(runs))
	}

	current, previous := runs[0], runs[1]

	currentPages, err := db.GetRunPages(ctx, current.ID)
	if err != nil {
		return err
	}
	previousPages, err := db.GetRunPages(ctx, previous.ID)
	if err != nil {
		return err
	}

	changes := database.ComparePages(previousPages, currentPages)

	if jsonOutput {
		return writeJSON(out, comparison{
			Host:     host,
			Previous: previous,
			Current:  current,
			Changes:  changes,
		})
	}

	fmt.Fprintf(out, "Changes for %s\n", host)
	fmt.Fprintf(out, "  previous: %s (%s)\n", previous.ID, formatRunTime(previous.StartedAt))
	fmt.Fprintf(out, "  current:  %s (%s)\n\n", current.ID, formatRunTime(current.StartedAt))

	if changes.Empty() {
		fmt.Fprintf(out, "No page changes (%d pages unchanged).\n", changes.Unchanged)
		return nil
	}

	printURLs(out, "Added", "+", changes.Added)
	printURLs(out, "Removed", "-", changes.Removed)
	printURLs(out, "Content changed", "~", changes.Changed)
	printURLs(out, "Recovered", "+", changes.Recovered)
	printURLs(out, "Now failing", "!", changes.Broken)
	fmt.Fprintf(out, "Unchanged: %d\n", changes.Unchanged)

	return nil
}

func printURLs(out io.Writer, title, mark string, urls []string) {
	if len(urls) == 0 {
		return
	}
	fmt.Fprintf(out, "%s (%d):\n", title, len(urls))
	for _, u := range urls {
		fmt.Fprintf(out, "  [%s] %s\n", mark, u)
	}
	fmt.Fprintln(out)
}

func runStatus(r database.RunRecord) string {
	switch {
	case r.Cancelled:
		return "interrupted"
	case r.ModulesFailed > 0:
		return "partial"
	default:
		return "complete"
	}
}

// formatRunTime formats t in local time, or "-" for the zero time.
func formatRunTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(historyDateLayout)
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
