package config

import "errors"

// ErrConfiguration wraps every validation failure. A configuration error is
// fatal and is reported before any network activity.
var ErrConfiguration = errors.New("configuration error")

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no target URL is given.
	ErrNoTarget = errors.New("no target specified: provide a website URL")

	// ErrInvalidTargetURL is returned when the target is not an absolute http or https URL.
	ErrInvalidTargetURL = errors.New("invalid target URL: must be an absolute http or https URL")

	// ErrInvalidMaxPages is returned when the page budget is not positive.
	ErrInvalidMaxPages = errors.New("invalid page budget: must be positive")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidRate is returned when the global request rate is negative.
	ErrInvalidRate = errors.New("invalid request rate: must be non-negative")

	// ErrInvalidWorkers is returned when a worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidContentLimit is returned when the per-page content limit is not positive.
	ErrInvalidContentLimit = errors.New("invalid content limit: must be positive")

	// ErrUnknownProvider is returned for an analysis provider other than anthropic or openai.
	ErrUnknownProvider = errors.New("unknown analysis provider")

	// ErrUnknownFormat is returned for a report format other than markdown, json or text.
	ErrUnknownFormat = errors.New("unknown report format")

	// ErrNoOutputDir is returned when the output directory is empty.
	ErrNoOutputDir = errors.New("output directory must not be empty")
)
