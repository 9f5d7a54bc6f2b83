package config

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

// Loader reads stack descriptions from .hcl files. The zero value is ready to
// use; a Loader remembers every file it parsed for diagnostics.
type Loader struct {
	parser *hclparse.Parser
}

func (l *Loader) init() {
	if l.parser == nil {
		l.parser = hclparse.NewParser()
	}
}

// WriteDiagnostics renders diagnostics for files read by the loader, with
// source snippets. Colour and wrap width follow the terminal on stderr; 78
// columns without colour otherwise.
func (l *Loader) WriteDiagnostics(w io.Writer, diags hcl.Diagnostics) {
	l.init()
	width, color := 78, false
	if fd := int(os.Stderr.Fd()); term.IsTerminal(fd) {
		color = true
		if cols, _, err := term.GetSize(fd); err == nil && cols > 0 {
			width = cols
		}
	}
	wr := hcl.NewDiagnosticTextWriter(w, l.parser.Files(), uint(width), color)
	if err := wr.WriteDiagnostics(diags); err != nil {
		fmt.Fprintln(w, err)
	}
}

// rootMarker marks a project directory. Its contents are ignored.
var rootMarker = filepath.Join(".stackgraph", "root")

// Root returns the absolute path of the project containing dir, searching dir
// and then its parents for a .stackgraph/root file. It returns an empty string
// when no project is found, and an error when dir itself cannot be read.
func (l *Loader) Root(dir string) (string, error) {
	if _, err := os.Stat(dir); err != nil {
		return "", err
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(err, "resolve dir")
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, rootMarker)); err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Load parses every .hcl file below root and merges their bodies. Having no
// files at all is an error.
func (l *Loader) Load(root string) (hcl.Body, hcl.Diagnostics) {
	l.init()

	var files []*hcl.File
	var diags hcl.Diagnostics
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return errors.WithStack(err)
		case d.IsDir(), !isConfigFile(path):
			return nil
		}
		f, fileDiags := l.parser.ParseHCLFile(path)
		diags = append(diags, fileDiags...)
		if f != nil {
			files = append(files, f)
		}
		return nil
	})
	if err != nil {
		return nil, diagErr(err)
	}
	if diags.HasErrors() {
		return nil, diags
	}
	if len(files) == 0 {
		return nil, diagErr(errors.Errorf("no .hcl files found in %s", root))
	}
	return hcl.MergeFiles(files), diags
}

// Parse parses a single file from memory. It is used for configuration that
// does not come from a project directory, such as standard input.
func (l *Loader) Parse(src []byte, filename string) (hcl.Body, hcl.Diagnostics) {
	l.init()
	f, diags := l.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	return f.Body, diags
}

// Files returns the names of all loaded files, sorted.
func (l *Loader) Files() []string {
	l.init()
	var out []string
	for name := range l.parser.Files() {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// source returns the source text of a range in a loaded file.
func (l *Loader) source(rng hcl.Range) string {
	l.init()
	f, ok := l.parser.Files()[rng.Filename]
	if !ok {
		return ""
	}
	return string(rng.SliceBytes(f.Bytes))
}

func isConfigFile(filename string) bool {
	return filepath.Ext(filename) == ".hcl"
}

// diagErr wraps an error as a single error diagnostic.
func diagErr(err error) hcl.Diagnostics {
	return hcl.Diagnostics{{Severity: hcl.DiagError, Summary: err.Error()}}
}
