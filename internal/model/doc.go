// Package model defines the data shared across sitescribe: crawled pages,
// content modules, analysis results and the per-run report.
package model
