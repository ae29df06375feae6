// Package xmltree holds the namespace bookkeeping shared by the BPMN and
// DMN codecs on top of etree, which keeps prefixes exactly as written.
package xmltree

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const xmlURI = "http://www.w3.org/XML/1998/namespace"

// Decl is a namespace declaration.
type Decl struct {
	Prefix string
	URI    string
}

// Lookup resolves prefix in the scope of e. The empty prefix resolves the
// default namespace.
func Lookup(e *etree.Element, prefix string) string {
	if prefix == "xml" {
		return xmlURI
	}
	for p := e; p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			if prefix == "" && a.Space == "" && a.Key == "xmlns" {
				return a.Value
			}
			if prefix != "" && a.Space == "xmlns" && a.Key == prefix {
				return a.Value
			}
		}
	}
	return ""
}

// URI returns the namespace URI of e.
func URI(e *etree.Element) string {
	return Lookup(e, e.Space)
}

// AttrURI returns the namespace URI of an attribute of e. Unprefixed
// attributes have no namespace.
func AttrURI(e *etree.Element, a etree.Attr) string {
	if a.Space == "" {
		return ""
	}
	return Lookup(e, a.Space)
}

// IsDecl reports whether a is a namespace declaration.
func IsDecl(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}

// Decls returns the prefixed declarations made directly on e.
func Decls(e *etree.Element) []Decl {
	var out []Decl
	for _, a := range e.Attr {
		if a.Space == "xmlns" {
			out = append(out, Decl{Prefix: a.Key, URI: a.Value})
		}
	}
	return out
}

// Unresolved returns the prefixes used by e or its descendants, on
// elements or attributes, that no declaration in scope binds. The result
// is in document order without repeats.
func Unresolved(e *etree.Element) []string {
	var out []string
	var walk func(*etree.Element)
	walk = func(x *etree.Element) {
		check := func(prefix string) {
			if prefix == "" || prefix == "xmlns" || slices.Contains(out, prefix) {
				return
			}
			if Lookup(x, prefix) == "" {
				out = append(out, prefix)
			}
		}
		check(x.Space)
		for _, a := range x.Attr {
			check(a.Space)
		}
		for _, c := range x.ChildElements() {
			walk(c)
		}
	}
	walk(e)
	return out
}

// BindMissing declares on root every prefix that is used without a
// declaration and has a binding in known. It returns the used prefixes
// known does not cover; root is left unchanged in that case.
func BindMissing(root *etree.Element, known []Decl) []string {
	var bind []Decl
	var unknown []string
	for _, prefix := range Unresolved(root) {
		i := slices.IndexFunc(known, func(d Decl) bool { return d.Prefix == prefix })
		if i < 0 {
			unknown = append(unknown, prefix)
			continue
		}
		bind = append(bind, known[i])
	}
	if len(unknown) > 0 {
		return unknown
	}
	for _, d := range bind {
		root.CreateAttr("xmlns:"+d.Prefix, d.URI)
	}
	return nil
}

// Is reports whether e is the element uri:local.
func Is(e *etree.Element, uri, local string) bool {
	return e.Tag == local && URI(e) == uri
}

// Children returns the child elements of e named uri:local.
func Children(e *etree.Element, uri, local string) []*etree.Element {
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if Is(c, uri, local) {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first child element of e named uri:local.
func Child(e *etree.Element, uri, local string) *etree.Element {
	for _, c := range e.ChildElements() {
		if Is(c, uri, local) {
			return c
		}
	}
	return nil
}

// Attr returns the value of the attribute uri:local of e. An empty uri
// matches unprefixed attributes only.
func Attr(e *etree.Element, uri, local string) (string, bool) {
	for _, a := range e.Attr {
		if a.Key == local && !IsDecl(a) && AttrURI(e, a) == uri {
			return a.Value, true
		}
	}
	return "", false
}

// Raw renders e as a standalone fragment without indentation. Declarations
// the fragment relies on from its ancestors are copied onto its root.
func Raw(e *etree.Element) (string, error) {
	c := e.Copy()
	declared := map[string]bool{}
	for _, a := range c.Attr {
		if a.Space == "xmlns" {
			declared[a.Key] = true
		} else if IsDecl(a) {
			declared[""] = true
		}
	}
	for _, prefix := range usedPrefixes(e) {
		if declared[prefix] || prefix == "xml" || prefix == "xmlns" {
			continue
		}
		uri := Lookup(e, prefix)
		if uri == "" {
			continue
		}
		if prefix == "" {
			c.CreateAttr("xmlns", uri)
		} else {
			c.CreateAttr("xmlns:"+prefix, uri)
		}
	}
	doc := etree.NewDocument()
	doc.SetRoot(c)
	doc.Indent(etree.NoIndent)
	return doc.WriteToString()
}

func usedPrefixes(e *etree.Element) []string {
	var out []string
	add := func(p string) {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	var walk func(*etree.Element)
	walk = func(x *etree.Element) {
		add(x.Space)
		for _, a := range x.Attr {
			if a.Space != "" && a.Space != "xmlns" {
				add(a.Space)
			}
		}
		for _, c := range x.ChildElements() {
			walk(c)
		}
	}
	walk(e)
	return out
}

// AttachRaw parses a fragment produced by Raw and appends it to parent,
// dropping declarations parent already has in scope.
func AttachRaw(parent *etree.Element, raw string) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(raw); err != nil {
		return err
	}
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("fragment %q has no element", raw)
	}
	root.Attr = slices.DeleteFunc(root.Attr, func(a etree.Attr) bool {
		switch {
		case a.Space == "xmlns":
			return Lookup(parent, a.Key) == a.Value
		case IsDecl(a):
			return Lookup(parent, "") == a.Value
		}
		return false
	})
	parent.AddChild(root)
	return nil
}

// Indent formats doc with two spaces per level. Elements holding only
// text keep it as written, even when it is all whitespace.
func Indent(doc *etree.Document) {
	s := etree.NewIndentSettings()
	s.Spaces = 2
	s.PreserveLeafWhitespace = true
	doc.IndentWithSettings(s)
}

// IDs collects the id attributes of e and its descendants.
func IDs(e *etree.Element) []string {
	var out []string
	if id := e.SelectAttrValue("id", ""); id != "" {
		out = append(out, id)
	}
	for _, c := range e.ChildElements() {
		out = append(out, IDs(c)...)
	}
	return out
}

// Float formats v with the shortest representation that round-trips.
func Float(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseFloat reads a required numeric attribute of e.
func ParseFloat(e *etree.Element, name string) (float64, error) {
	raw := strings.TrimSpace(e.SelectAttrValue(name, ""))
	if raw == "" {
		return 0, fmt.Errorf("%s: missing attribute %s", e.Tag, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: attribute %s: %w", e.Tag, name, err)
	}
	return v, nil
}

// ParseBool reads an optional xsd:boolean attribute value.
func ParseBool(raw string, dflt bool) (bool, error) {
	switch strings.TrimSpace(raw) {
	case "":
		return dflt, nil
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", raw)
}

// Prefixes assigns output prefixes to namespace URIs. Canonical bindings
// are fixed; other URIs keep their preferred prefix when it is free.
type Prefixes struct {
	byURI map[string]string
	taken map[string]bool
	order []Decl
}

// NewPrefixes starts from the canonical bindings, which are always
// declared, in order.
func NewPrefixes(canonical []Decl) *Prefixes {
	p := &Prefixes{byURI: map[string]string{}, taken: map[string]bool{}}
	for _, d := range canonical {
		p.bind(d.Prefix, d.URI)
	}
	return p
}

func (p *Prefixes) bind(prefix, uri string) string {
	p.byURI[uri] = prefix
	p.taken[prefix] = true
	p.order = append(p.order, Decl{Prefix: prefix, URI: uri})
	return prefix
}

// Prefer binds uri to prefix, or to a numbered variant of it when the
// prefix is already taken. A bound uri keeps its prefix.
func (p *Prefixes) Prefer(prefix, uri string) string {
	if uri == xmlURI {
		return "xml"
	}
	if have, ok := p.byURI[uri]; ok {
		return have
	}
	if prefix == "" || prefix == "xml" || prefix == "xmlns" {
		prefix = "ns"
	}
	candidate := prefix
	for i := 1; p.taken[candidate]; i++ {
		candidate = prefix + strconv.Itoa(i)
	}
	return p.bind(candidate, uri)
}

// Prefix returns the prefix bound to uri, binding a generated one if none is.
func (p *Prefixes) Prefix(uri string) string {
	return p.Prefer("ns", uri)
}

// Qualify returns prefix:local for uri, or local when uri is empty.
func (p *Prefixes) Qualify(uri, local string) string {
	if uri == "" {
		return local
	}
	return p.Prefix(uri) + ":" + local
}

// Declare writes every binding as an xmlns attribute of e.
func (p *Prefixes) Declare(e *etree.Element) {
	for _, d := range p.order {
		e.CreateAttr("xmlns:"+d.Prefix, d.URI)
	}
}
