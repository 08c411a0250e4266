package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"
)

// fileSuffix is appended to every module document name before the extension.
const fileSuffix = "_analysis"

// FileName returns the document file name of a module: the lowercase name
// with spaces turned into underscores, followed by "_analysis" and ext.
// Characters that are unsafe in file names are replaced with "-".
func FileName(moduleName, ext string) string {
	return fileStem(moduleName) + fileSuffix + ext
}

func fileStem(moduleName string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			return '-'
		case unicode.IsControl(r):
			return -1
		}
		return unicode.ToLower(r)
	}, strings.TrimSpace(moduleName))
	if name == "" || name == "." || name == ".." {
		name = "module"
	}
	return name
}

// DirWriter writes module documents into a directory.
//
// Distinct module names can sanitize to the same file name, e.g. "a/b"
// and "a:b". The first module to claim a name keeps it and later ones get
// a numbered name such as "a-b-2_analysis.md". Reserve fixes the claim
// order up front so that concurrent writes still produce stable names.
type DirWriter struct {
	dir      string
	renderer Renderer
	now      func() time.Time

	mu    sync.Mutex
	files map[string]string // module name -> file name
	taken map[string]bool   // lowercased file names
}

// DirWriterOption configures a DirWriter.
type DirWriterOption func(*DirWriter)

// WithClock sets the time source for GeneratedAt when a report has none.
func WithClock(now func() time.Time) DirWriterOption {
	return func(w *DirWriter) {
		if now != nil {
			w.now = now
		}
	}
}

// NewDirWriter creates a DirWriter. The directory is created on first write.
func NewDirWriter(dir string, renderer Renderer, opts ...DirWriterOption) *DirWriter {
	w := &DirWriter{
		dir:      dir,
		renderer: renderer,
		now:      time.Now,
		files:    make(map[string]string),
		taken:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the output directory.
func (w *DirWriter) Dir() string {
	return w.dir
}

// Reserve claims file names for the given modules in order.
func (w *DirWriter) Reserve(moduleNames ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, name := range moduleNames {
		w.claim(name)
	}
}

// claim returns the file name of a module, assigning one on first use.
// The caller holds w.mu.
func (w *DirWriter) claim(moduleName string) string {
	if file, ok := w.files[moduleName]; ok {
		return file
	}
	ext := w.renderer.Extension()
	stem := fileStem(moduleName)
	file := stem + fileSuffix + ext
	for n := 2; w.taken[strings.ToLower(file)]; n++ {
		file = fmt.Sprintf("%s-%d%s%s", stem, n, fileSuffix, ext)
	}
	w.files[moduleName] = file
	w.taken[strings.ToLower(file)] = true
	return file
}

// Write renders report into its file and returns the file path.
// A file left by an earlier run is replaced.
func (w *DirWriter) Write(report *ModuleReport) (path string, err error) {
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = w.now()
	}

	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	w.mu.Lock()
	file := w.claim(report.Module.Name)
	w.mu.Unlock()

	path = filepath.Join(w.dir, file)
	f, err := os.Create(path) //nolint:gosec // path is built from a sanitized module name
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	if err := w.renderer.Render(f, report); err != nil {
		return "", fmt.Errorf("failed to render module %q: %w", report.Module.Name, err)
	}
	return path, nil
}
