package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stackgraph/stackgraph/config"
)

func TestLoader_Root(t *testing.T) {
	abs, err := filepath.Abs("testdata/project")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name    string
		dir     string
		want    string
		wantErr bool
	}{
		{"Exact", "testdata/project", abs, false},
		{"Subdir", "testdata/project/units", abs, false},
		{"NoProject", os.TempDir(), "", false},
		{"NotFound", "nonexisting", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &config.Loader{}
			got, err := l.Root(tt.dir)
			if (err != nil) != tt.wantErr {
				t.Errorf("Loader.Root() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("Loader.Root() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoader_Load(t *testing.T) {
	l := &config.Loader{}
	body, diags := l.Load("testdata/project")
	if diags.HasErrors() {
		t.Fatalf("Load() diags = %v", diags)
	}
	if body == nil {
		t.Fatal("Load() body = nil")
	}
	want := []string{
		"testdata/project/stack.hcl",
		"testdata/project/units/services.hcl",
	}
	if diff := cmp.Diff(l.Files(), want); diff != "" {
		t.Errorf("Files() (-got, +want)\n%s", diff)
	}
}

func TestLoader_Load_noFiles(t *testing.T) {
	l := &config.Loader{}
	_, diags := l.Load("testdata/empty")
	if !diags.HasErrors() {
		t.Error("Load() diags has no errors, want error")
	}
}

func TestLoader_WriteDiagnostics(t *testing.T) {
	l := &config.Loader{}
	_, diags := l.Load("testdata/invalid")
	if !diags.HasErrors() {
		t.Fatal("Load() diags has no errors, want syntax error")
	}

	var buf bytes.Buffer
	l.WriteDiagnostics(&buf, diags)
	out := buf.String()
	for _, want := range []string{"Error:", "testdata/invalid/invalid.hcl"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q\n%s", want, out)
		}
	}
}
