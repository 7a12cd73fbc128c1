package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
)

func TestParseValidSource(t *testing.T) {
	p := New()
	defer p.Close()

	result, err := p.Parse(context.Background(), []byte("fn main() {}\n"), "main.rs")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if HasErrors(result.Tree) {
		t.Error("valid source should parse without errors")
	}
	if result.Tree.RootNode().Type() != "source_file" {
		t.Errorf("root node = %s, want source_file", result.Tree.RootNode().Type())
	}
}

func TestParseSyntaxError(t *testing.T) {
	p := New()
	defer p.Close()

	result, err := p.Parse(context.Background(), []byte("fn broken( {\n"), "broken.rs")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !HasErrors(result.Tree) {
		t.Error("broken source should flag tree errors")
	}
	if line := FirstErrorLine(result.Tree, result.Source); line == 0 {
		t.Error("FirstErrorLine should locate the error")
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.rs")
	if err := os.WriteFile(path, []byte("pub fn ok() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New()
	defer p.Close()

	result, err := p.ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile() error: %v", err)
	}
	if result.Path != path {
		t.Errorf("Path = %s, want %s", result.Path, path)
	}

	if _, err := p.ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.rs")); err == nil {
		t.Error("ParseFile on a missing file should fail")
	}
}

func TestWalkVisitsAllNamedConstructs(t *testing.T) {
	p := New()
	defer p.Close()

	source := []byte("fn a() {}\nfn b() { a(); }\n")
	result, err := p.Parse(context.Background(), source, "x.rs")
	if err != nil {
		t.Fatal(err)
	}

	fns := 0
	Walk(result.Tree.RootNode(), source, func(node *sitter.Node, nodeType string, _ []byte) bool {
		if nodeType == "function_item" {
			fns++
		}
		return true
	})
	if fns != 2 {
		t.Errorf("visited %d function_item nodes, want 2", fns)
	}
}

func TestTextBounds(t *testing.T) {
	if Text(nil, []byte("x")) != "" {
		t.Error("Text(nil) should be empty")
	}
}
