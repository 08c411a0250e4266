// Package analysis turns a module's pages into a summary, project ideas and
// key concepts.
//
// Two analyzers implement the Analyzer interface:
//
//   - Basic: deterministic, keyword frequency over the page text
//   - LLM: a prompt sent through a Completer (Anthropic or OpenAI)
//
// New picks Basic when no API key is configured. Otherwise the LLM analyzer
// is wrapped in Fallback, so an unreachable provider, an exhausted quota or
// a reply that is not valid JSON yields the basic result with
// FallbackReason set instead of an error.
//
// The prompt contains at most ten successful pages in crawl order, each
// reduced to title, URL and a 500 character preview, and is bounded by
// PromptBudget in characters and tokens.
package analysis
