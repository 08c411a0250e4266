package organizer

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/nao1215/sitescribe/internal/model"
)

// DefaultRootModuleName names the module of pages at the site root.
const DefaultRootModuleName = "Home"

// Organizer partitions crawled pages into modules by their first path segment.
type Organizer struct {
	rootName   string
	normalizer *Normalizer
	logger     *slog.Logger
}

// Option configures an Organizer.
type Option func(*organizerOptions)

type organizerOptions struct {
	rootName string
	aliases  map[string]string
	logger   *slog.Logger
}

// WithRootModuleName sets the name of the root module. Empty names are ignored.
func WithRootModuleName(name string) Option {
	return func(o *organizerOptions) {
		if name = strings.TrimSpace(name); name != "" {
			o.rootName = name
		}
	}
}

// WithAliases adds segment aliases, e.g. {"reference": "docs"} merges
// /reference pages into the docs module.
func WithAliases(aliases map[string]string) Option {
	return func(o *organizerOptions) {
		o.aliases = aliases
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *organizerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an Organizer.
func New(opts ...Option) *Organizer {
	o := organizerOptions{
		rootName: DefaultRootModuleName,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Organizer{
		rootName:   o.rootName,
		normalizer: NewNormalizer(o.aliases),
		logger:     o.logger,
	}
}

// Organize groups pages into modules.
//
// Every page lands in exactly one module, failed pages included, and pages
// keep their crawl order inside a module. Modules are ordered by the first
// page that created them and never empty. A module takes its display name
// from the first segment seen for its key.
func (o *Organizer) Organize(pages []*model.Page) []*model.Module {
	modules := make([]*model.Module, 0)
	byKey := make(map[string]*model.Module)
	names := make(map[string]bool)

	for _, page := range pages {
		if page == nil {
			continue
		}
		segment := FirstSegment(page.Path())
		key := o.normalizer.Key(segment)

		m, ok := byKey[key]
		if !ok {
			m = &model.Module{
				Name: o.uniqueName(o.displayName(key, segment), key, names),
				Key:  key,
			}
			byKey[key] = m
			modules = append(modules, m)
		}
		m.Pages = append(m.Pages, page)
	}

	o.logger.Debug("pages organized", "pages", len(pages), "modules", len(modules))
	return modules
}

// ModuleName returns the module name a single URL path would get.
func (o *Organizer) ModuleName(path string) string {
	segment := FirstSegment(path)
	return o.displayName(o.normalizer.Key(segment), segment)
}

func (o *Organizer) displayName(key, segment string) string {
	if key == "" {
		return o.rootName
	}
	return o.normalizer.DisplayName(segment)
}

// uniqueName returns name, or name with the key appended when another key
// already produced the same display name.
func (o *Organizer) uniqueName(name, key string, used map[string]bool) string {
	candidate := name
	if used[strings.ToLower(candidate)] {
		candidate = fmt.Sprintf("%s (%s)", name, key)
	}
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		candidate = fmt.Sprintf("%s (%s %d)", name, key, n)
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// FirstSegment returns the first non-empty segment of a URL path, or an
// empty string for the root.
func FirstSegment(path string) string {
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			return s
		}
	}
	return ""
}
