// Package main provides the entry point for the sitescribe CLI.
//
// sitescribe crawls a website, groups its pages into modules by their
// top-level path segment and writes one learning document per module.
//
// Usage:
//
//	sitescribe crawl <url>
//	sitescribe history <url>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
