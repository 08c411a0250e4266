// Package pipeline runs a site through the stages of one sitescribe run.
//
// Each stage is a Step that receives the RunReport and fills in its part:
// CrawlStep collects pages, OrganizeStep groups them into modules,
// ModuleStep analyzes and renders every module through a ModuleProcessor,
// IndexStep writes index.md and PersistStep stores the run in the history
// database. DefaultPipeline wires the standard sequence from a config.Config.
//
// Module processing is concurrent with errgroup. A failing module is
// recorded in its outcome and never affects the other modules.
package pipeline
