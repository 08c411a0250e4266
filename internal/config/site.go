package config

import "maps"

// SiteConfig holds per-host crawl and organization settings.
type SiteConfig struct {
	// Headers are extra HTTP headers sent with every request to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxPages overrides the page budget for this site when positive.
	MaxPages int `yaml:"maxPages,omitempty"`

	// IgnorePatterns are glob patterns matched against the URL path.
	// Matching URLs are never enqueued.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns restrict crawling to matching paths when non-empty.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// ModuleAliases extend the module normalization table.
	// Keys and values are path segments, e.g. "guides: tutorials".
	ModuleAliases map[string]string `yaml:"moduleAliases,omitempty"`

	// RootModuleName overrides the name of the root-level module.
	RootModuleName string `yaml:"rootModuleName,omitempty"`
}

// File represents the structure of the .sitescribe configuration file.
type File struct {
	// Sites maps hosts (e.g. "docs.example.com") to their configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host, merged over the defaults.
// Map values are merged key by key, slices and scalars are replaced.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)
	result.ModuleAliases = maps.Clone(cf.Defaults.ModuleAliases)

	siteConfig, ok := cf.Sites[host]
	if !ok {
		return result
	}

	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if siteConfig.RootModuleName != "" {
		result.RootModuleName = siteConfig.RootModuleName
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}
	if len(siteConfig.ModuleAliases) > 0 {
		if result.ModuleAliases == nil {
			result.ModuleAliases = make(map[string]string)
		}
		maps.Copy(result.ModuleAliases, siteConfig.ModuleAliases)
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}

	return result
}
