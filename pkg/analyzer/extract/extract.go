// Package extract walks Rust syntax trees and produces item definitions and
// symbol uses classified by usage context.
package extract

import (
	"context"
	"errors"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/tether-analysis/tether/pkg/coupling"
	"github.com/tether-analysis/tether/pkg/modpath"
	"github.com/tether-analysis/tether/pkg/parser"
)

// FileExtraction is the owned record produced for one source file. Records
// are folded into the coupling graph by a single sequential builder, so they
// carry no shared state.
type FileExtraction struct {
	Path   string
	Module modpath.Path

	Items  []coupling.Item
	Usages []coupling.Usage

	TraitImpls    int
	InherentImpls int
	PubItemCount  int
}

// Extractor turns one parsed file into an extraction record. It is a pure
// function of the file contents and the stop-list and may be shared across
// workers.
type Extractor struct {
	stop *StopList
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithStopList replaces the default false-positive stop-list.
func WithStopList(stop *StopList) Option {
	return func(e *Extractor) {
		e.stop = stop
	}
}

// New creates an extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{stop: DefaultStopList()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// visitor carries the per-file state of one extraction sweep.
type visitor struct {
	ext     *Extractor
	out     *FileExtraction
	source  []byte
	path    string
	module  modpath.Path
	imports map[string]string // local name -> full path
}

// handler emits items and usages for one construct kind.
type handler func(v *visitor, node *sitter.Node)

// handlers is the construct dispatch table. Adding support for a new
// construct means adding a row, not a subclass.
var handlers = map[string]handler{
	"use_declaration":   (*visitor).handleUse,
	"function_item":     (*visitor).handleFunction,
	"struct_item":       (*visitor).handleTypeItem,
	"enum_item":         (*visitor).handleTypeItem,
	"union_item":        (*visitor).handleTypeItem,
	"type_item":         (*visitor).handleTypeItem,
	"trait_item":        (*visitor).handleTrait,
	"impl_item":         (*visitor).handleImpl,
	"call_expression":   (*visitor).handleCall,
	"field_expression":  (*visitor).handleFieldAccess,
	"struct_expression": (*visitor).handleStructConstruction,
	"type_arguments":    (*visitor).handleTypeArguments,
	"trait_bounds":      (*visitor).handleTraitBounds,
}

// ExtractFile parses path and extracts its items and usages. module is the
// file's own module path as derived by the workspace resolver. A tree with
// syntax errors yields a ParseError; the caller records it and continues.
func (e *Extractor) ExtractFile(ctx context.Context, psr *parser.Parser, path string, module modpath.Path) (*FileExtraction, error) {
	result, err := psr.ParseFile(ctx, path)
	if err != nil {
		return nil, &coupling.IoError{Path: path, Err: err}
	}
	return e.Extract(result, module)
}

// Extract runs the visitor sweep over an already parsed file.
func (e *Extractor) Extract(result *parser.Result, module modpath.Path) (*FileExtraction, error) {
	if parser.HasErrors(result.Tree) {
		return nil, &coupling.ParseError{
			Path: result.Path,
			Line: parser.FirstErrorLine(result.Tree, result.Source),
			Err:  errors.New("syntax error"),
		}
	}

	out := &FileExtraction{Path: result.Path, Module: module}
	v := &visitor{
		ext:     e,
		out:     out,
		source:  result.Source,
		path:    result.Path,
		module:  module,
		imports: make(map[string]string),
	}

	// First sweep: collect the import table so bare type names can be
	// rewritten to the paths their use-declarations bind.
	parser.Walk(result.Tree.RootNode(), result.Source, func(node *sitter.Node, nodeType string, _ []byte) bool {
		if nodeType == "use_declaration" {
			v.collectImports(node.ChildByFieldName("argument"), "")
			return false
		}
		return true
	})

	parser.Walk(result.Tree.RootNode(), result.Source, func(node *sitter.Node, nodeType string, _ []byte) bool {
		if h, ok := handlers[nodeType]; ok {
			h(v, node)
		}
		return true
	})

	out.Usages = demoteBoundOnlyImports(out.Usages)

	for _, it := range out.Items {
		if it.Visibility == coupling.VisibilityPublic {
			out.PubItemCount++
		}
	}
	return out, nil
}

// demoteBoundOnlyImports drops Import usages for targets that appear in this
// file only as trait bounds. A trait imported solely to name a bound couples
// by contract; the bound usage already carries that, and the Import would
// lift the folded edge strength to Model.
func demoteBoundOnlyImports(usages []coupling.Usage) []coupling.Usage {
	hasBound := make(map[string]bool)
	hasOther := make(map[string]bool)
	for _, u := range usages {
		switch u.Context {
		case coupling.ContextImport:
		case coupling.ContextTraitBound:
			hasBound[u.TargetPath] = true
		default:
			hasOther[u.TargetPath] = true
		}
	}

	out := usages[:0]
	for _, u := range usages {
		if u.Context == coupling.ContextImport && hasBound[u.TargetPath] && !hasOther[u.TargetPath] {
			continue
		}
		out = append(out, u)
	}
	return out
}

// emit applies the false-positive filters, resolves reserved prefixes and the
// import table, and appends a usage.
func (v *visitor) emit(target string, ctx coupling.UsageContext, node *sitter.Node) {
	target = v.rewriteImports(target)
	if !v.ext.stop.ShouldEmit(target) {
		return
	}
	// A bare capitalized name that no use-declaration binds refers to a
	// type defined in the surrounding module.
	if !strings.Contains(target, modpath.Delimiter) && target[0] >= 'A' && target[0] <= 'Z' {
		target = "self" + modpath.Delimiter + target
	}
	v.out.Usages = append(v.out.Usages, coupling.Usage{
		SourceModule: v.module,
		TargetPath:   modpath.Resolve(target, v.module).String(),
		Context:      ctx,
		Location:     v.location(node),
	})
}

// rewriteImports substitutes a bare head segment with the path its
// use-declaration bound, when one exists in this file.
func (v *visitor) rewriteImports(target string) string {
	p := modpath.Parse(target)
	if p.IsZero() {
		return target
	}
	head := p.Segments()[0]
	full, ok := v.imports[head]
	if !ok {
		return target
	}
	rest := p.Segments()[1:]
	return modpath.Parse(full).String() + joinRest(rest)
}

func joinRest(segments []string) string {
	out := ""
	for _, s := range segments {
		out += modpath.Delimiter + s
	}
	return out
}

func (v *visitor) location(node *sitter.Node) coupling.Location {
	return coupling.Location{File: v.path, Line: parser.Line(node)}
}

func (v *visitor) text(node *sitter.Node) string {
	return parser.Text(node, v.source)
}

// visibility reads the optional visibility_modifier child of an item.
func (v *visitor) visibility(node *sitter.Node) coupling.Visibility {
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		if child.Type() != "visibility_modifier" {
			continue
		}
		if v.text(child) == "pub" {
			return coupling.VisibilityPublic
		}
		// pub(crate), pub(super), pub(in ...)
		return coupling.VisibilityPackage
	}
	return coupling.VisibilityPrivate
}

func (v *visitor) addItem(name string, kind coupling.ItemKind, vis coupling.Visibility, node *sitter.Node, params int) {
	v.out.Items = append(v.out.Items, coupling.Item{
		Name:       name,
		Kind:       kind,
		Visibility: vis,
		Module:     v.module,
		Location:   v.location(node),
		ParamCount: params,
	})
}

// collectImports flattens a use tree (paths, braced lists, aliases,
// wildcards) into the import table. It records no usages; handleUse emits
// the Import usages in the second sweep.
func (v *visitor) collectImports(node *sitter.Node, prefix string) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "scoped_identifier", "identifier", "crate", "self", "super":
		full := joinPrefix(prefix, v.text(node))
		v.imports[lastSegment(full)] = full
	case "scoped_use_list":
		base := joinPrefix(prefix, parser.FieldText(node, "path", v.source))
		if list := node.ChildByFieldName("list"); list != nil {
			for i := range int(list.ChildCount()) {
				v.collectImports(list.Child(i), base)
			}
		}
	case "use_list":
		for i := range int(node.ChildCount()) {
			v.collectImports(node.Child(i), prefix)
		}
	case "use_as_clause":
		full := joinPrefix(prefix, parser.FieldText(node, "path", v.source))
		alias := parser.FieldText(node, "alias", v.source)
		if alias != "" {
			v.imports[alias] = full
		}
	case "use_wildcard":
		// Glob imports bind no names the extractor can track.
	}
}

func joinPrefix(prefix, path string) string {
	if prefix == "" {
		return path
	}
	return prefix + modpath.Delimiter + path
}

func lastSegment(path string) string {
	p := modpath.Parse(path)
	if p.IsZero() {
		return path
	}
	segs := p.Segments()
	return segs[len(segs)-1]
}

// handleUse emits one Import usage per use-declaration leaf.
func (v *visitor) handleUse(node *sitter.Node) {
	arg := node.ChildByFieldName("argument")
	if arg == nil {
		return
	}
	for _, target := range v.flattenUse(arg, "") {
		// Do not run import rewriting on the import itself.
		if !v.ext.stop.ShouldEmit(target) {
			continue
		}
		v.out.Usages = append(v.out.Usages, coupling.Usage{
			SourceModule: v.module,
			TargetPath:   modpath.Resolve(target, v.module).String(),
			Context:      coupling.ContextImport,
			Location:     v.location(node),
		})
	}
	v.addItem(v.text(arg), coupling.ItemImport, v.visibility(node), node, 0)
}

// flattenUse expands a use tree into full textual paths.
func (v *visitor) flattenUse(node *sitter.Node, prefix string) []string {
	switch node.Type() {
	case "scoped_identifier", "identifier", "crate", "self", "super":
		return []string{joinPrefix(prefix, v.text(node))}
	case "scoped_use_list":
		base := joinPrefix(prefix, parser.FieldText(node, "path", v.source))
		var out []string
		if list := node.ChildByFieldName("list"); list != nil {
			for i := range int(list.ChildCount()) {
				out = append(out, v.flattenUse(list.Child(i), base)...)
			}
		}
		return out
	case "use_list":
		var out []string
		for i := range int(node.ChildCount()) {
			out = append(out, v.flattenUse(node.Child(i), prefix)...)
		}
		return out
	case "use_as_clause":
		return []string{joinPrefix(prefix, parser.FieldText(node, "path", v.source))}
	case "use_wildcard":
		if inner := node.Child(0); inner != nil && inner.Type() != "*" {
			return []string{joinPrefix(prefix, v.text(inner))}
		}
		return nil
	default:
		return nil
	}
}

// handleFunction records the definition and emits signature usages.
func (v *visitor) handleFunction(node *sitter.Node) {
	name := parser.FieldText(node, "name", v.source)
	params := node.ChildByFieldName("parameters")

	paramCount := 0
	if params != nil {
		for i := range int(params.ChildCount()) {
			if t := params.Child(i).Type(); t == "parameter" || t == "self_parameter" {
				paramCount++
			}
		}
	}
	v.addItem(name, coupling.ItemFunction, v.visibility(node), node, paramCount)

	if params != nil {
		v.emitSignatureTypes(params, coupling.ContextFunctionParameter)
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		v.emitSignatureTypes(ret, coupling.ContextReturnType)
	}
}

// emitSignatureTypes walks a type subtree emitting usages for the named
// types it mentions directly. Types nested in generic argument lists or
// bounds are left to their own handlers.
func (v *visitor) emitSignatureTypes(node *sitter.Node, ctx coupling.UsageContext) {
	parser.Walk(node, v.source, func(n *sitter.Node, nodeType string, _ []byte) bool {
		switch nodeType {
		case "type_arguments", "trait_bounds":
			return false
		case "type_identifier", "scoped_type_identifier":
			v.emit(v.text(n), ctx, n)
			return false
		}
		return true
	})
}

func (v *visitor) handleTypeItem(node *sitter.Node) {
	name := parser.FieldText(node, "name", v.source)
	v.addItem(name, coupling.ItemType, v.visibility(node), node, 0)
}

func (v *visitor) handleTrait(node *sitter.Node) {
	name := parser.FieldText(node, "name", v.source)
	v.addItem(name, coupling.ItemTrait, v.visibility(node), node, 0)
}

// handleImpl distinguishes trait impls from inherent impls. An inherent impl
// whose self type is module-qualified defines methods on an externally-owned
// type, which is intrusive.
func (v *visitor) handleImpl(node *sitter.Node) {
	selfType := node.ChildByFieldName("type")
	name := v.text(selfType)

	if node.ChildByFieldName("trait") != nil {
		v.out.TraitImpls++
	} else {
		v.out.InherentImpls++
		if selfType != nil && selfType.Type() == "scoped_type_identifier" {
			v.emit(name, coupling.ContextInherentImplBlock, node)
		}
	}
	v.addItem(name, coupling.ItemImpl, coupling.VisibilityPrivate, node, 0)
}

// handleCall emits FunctionCall for path calls and MethodCall for dispatched
// calls. A bare identifier call is a same-module reference.
func (v *visitor) handleCall(node *sitter.Node) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}
	switch fn.Type() {
	case "scoped_identifier":
		v.emit(v.text(fn), coupling.ContextFunctionCall, node)
	case "identifier":
		v.emit("self"+modpath.Delimiter+v.text(fn), coupling.ContextFunctionCall, node)
	case "field_expression":
		receiver := fn.ChildByFieldName("value")
		v.emit(v.text(receiver), coupling.ContextMethodCall, node)
	case "generic_function":
		if inner := fn.ChildByFieldName("function"); inner != nil && inner.Type() == "scoped_identifier" {
			v.emit(v.text(inner), coupling.ContextFunctionCall, node)
		}
	}
}

// handleFieldAccess emits FieldAccess for field reads and writes. The
// function position of a method call is skipped; handleCall covers it.
func (v *visitor) handleFieldAccess(node *sitter.Node) {
	if parent := node.Parent(); parent != nil && parent.Type() == "call_expression" {
		if fn := parent.ChildByFieldName("function"); fn != nil && fn.StartByte() == node.StartByte() && fn.EndByte() == node.EndByte() {
			return
		}
	}
	value := node.ChildByFieldName("value")
	if value == nil {
		return
	}
	switch value.Type() {
	case "identifier", "scoped_identifier", "field_expression":
		v.emit(baseOfAccess(v, value), coupling.ContextFieldAccess, node)
	}
}

// baseOfAccess unwraps chained accesses to the leftmost named base.
func baseOfAccess(v *visitor, node *sitter.Node) string {
	for node.Type() == "field_expression" {
		next := node.ChildByFieldName("value")
		if next == nil {
			break
		}
		node = next
	}
	return v.text(node)
}

func (v *visitor) handleStructConstruction(node *sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	v.emit(v.text(name), coupling.ContextStructConstruction, node)
}

func (v *visitor) handleTypeArguments(node *sitter.Node) {
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		switch child.Type() {
		case "type_identifier", "scoped_type_identifier":
			v.emit(v.text(child), coupling.ContextTypeParameter, child)
		case "generic_type":
			if base := child.ChildByFieldName("type"); base != nil {
				v.emit(v.text(base), coupling.ContextTypeParameter, base)
			}
		}
	}
}

func (v *visitor) handleTraitBounds(node *sitter.Node) {
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		switch child.Type() {
		case "type_identifier", "scoped_type_identifier":
			v.emit(v.text(child), coupling.ContextTraitBound, child)
		case "generic_type":
			if base := child.ChildByFieldName("type"); base != nil {
				v.emit(v.text(base), coupling.ContextTraitBound, base)
			}
		}
	}
}
