// Package report renders module documents and run summaries.
//
// A Renderer turns one ModuleReport (module, analysis, source URL and
// timestamp) into a document:
//   - MarkdownRenderer: default, written with nao1215/markdown
//   - JSONRenderer: structured output for tool integration
//   - TextRenderer: plain text for terminals and pipes
//
// DirWriter stores each document as <module>_analysis.<ext> in the output
// directory. IndexWriter produces index.md linking every document and
// SummaryWriter prints the end-of-run summary to the console.
package report
