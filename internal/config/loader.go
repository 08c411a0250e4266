package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".sitescribe"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads and checks a .sitescribe YAML file.
// Unknown keys are rejected so that a misspelled "maxpages" does not
// silently fall back to the default budget. An empty file is valid.
func LoadConfigFile(filePath string) (*File, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}

	if err := cf.check(); err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return &cf, nil
}

// check rejects values the crawler would otherwise misinterpret.
func (cf *File) check() error {
	if err := cf.Defaults.check("defaults"); err != nil {
		return err
	}
	for host, site := range cf.Sites {
		if host == "" {
			return errors.New("sites: empty host key")
		}
		if err := site.check("sites." + host); err != nil {
			return err
		}
	}
	return nil
}

func (sc SiteConfig) check(where string) error {
	if sc.MaxPages < 0 {
		return fmt.Errorf("%s.maxPages: %w", where, ErrInvalidMaxPages)
	}
	for _, p := range append(append([]string{}, sc.IgnorePatterns...), sc.FollowPatterns...) {
		if _, err := path.Match(p, "/"); err != nil {
			return fmt.Errorf("%s: bad pattern %q: %w", where, p, err)
		}
	}
	return nil
}

// FindConfigFile returns the first configuration file that exists, or "".
// An explicit configPath is the only candidate when set. Otherwise the
// search order is .sitescribe in the working directory, .sitescribe in
// the home directory, then config.yaml under the XDG config directory.
func FindConfigFile(configPath string) string {
	var candidates []string
	if configPath != "" {
		candidates = []string{configPath}
	} else {
		if cwd, err := os.Getwd(); err == nil {
			candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
		}
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
		}
		candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}
