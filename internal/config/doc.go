// Package config provides the run configuration for sitescribe: the
// target site, page budget, politeness settings, analysis credential and
// output options, plus the optional per-site YAML file.
package config
