// Package ratelimit implements crawl politeness: a fixed delay after every
// outbound request and an optional global requests-per-second cap, both
// driven by an injectable Clock.
package ratelimit
