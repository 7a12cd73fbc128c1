// Package parser wraps tree-sitter for Rust source parsing.
package parser

import (
	"context"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

// Parser wraps a tree-sitter parser configured for Rust. Parsers are not
// safe for concurrent use; allocate one per worker.
type Parser struct {
	parser *sitter.Parser
}

// Result holds a parsed tree and its source.
type Result struct {
	Tree   *sitter.Tree
	Source []byte
	Path   string
}

// New creates a parser.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(rust.GetLanguage())
	return &Parser{parser: p}
}

// ParseFile reads and parses a source file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.Parse(ctx, source, path)
}

// Parse parses source bytes.
func (p *Parser) Parse(ctx context.Context, source []byte, path string) (*Result, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	return &Result{Tree: tree, Source: source, Path: path}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// Visitor visits AST nodes with the node type pre-fetched once per node to
// avoid repeated CGO calls. Returning false stops descent into children.
type Visitor func(node *sitter.Node, nodeType string, source []byte) bool

// Walk traverses the tree depth-first.
func Walk(node *sitter.Node, source []byte, visitor Visitor) {
	if node == nil {
		return
	}
	if !visitor(node, node.Type(), source) {
		return
	}
	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), source, visitor)
	}
}

// Text extracts the source text for a node. Returns "" for nil nodes or
// out-of-bounds spans.
func Text(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}

// FieldText extracts the text of a named child field.
func FieldText(node *sitter.Node, field string, source []byte) string {
	return Text(node.ChildByFieldName(field), source)
}

// Line returns the 1-based line of a node.
func Line(node *sitter.Node) uint32 {
	return node.StartPoint().Row + 1
}

// HasErrors reports whether the tree contains syntax errors.
func HasErrors(tree *sitter.Tree) bool {
	return tree.RootNode().HasError()
}

// FirstErrorLine returns the 1-based line of the first ERROR node, or 0.
func FirstErrorLine(tree *sitter.Tree, source []byte) uint32 {
	var line uint32
	Walk(tree.RootNode(), source, func(node *sitter.Node, nodeType string, _ []byte) bool {
		if line != 0 {
			return false
		}
		if nodeType == "ERROR" {
			line = Line(node)
			return false
		}
		return true
	})
	return line
}
