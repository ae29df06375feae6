package bpmn

import (
	"github.com/beevik/etree"

	"github.com/meikuraledutech/bpmn/internal/xmltree"
)

const (
	NSModel   = "http://www.omg.org/spec/BPMN/20100524/MODEL"
	NSDI      = "http://www.omg.org/spec/BPMN/20100524/DI"
	NSDC      = "http://www.omg.org/spec/DD/20100524/DC"
	NSDDI     = "http://www.omg.org/spec/DD/20100524/DI"
	NSCamunda = "http://camunda.org/schema/1.0/bpmn"
	NSModeler = "http://camunda.org/schema/modeler/1.0"
	NSXSI     = "http://www.w3.org/2001/XMLSchema-instance"

	defaultTargetNamespace = "http://bpmn.io/schema/bpmn"
)

// canonical is the fixed set of declarations written on every document.
var canonical = []xmltree.Decl{
	{Prefix: "bpmn", URI: NSModel},
	{Prefix: "bpmndi", URI: NSDI},
	{Prefix: "dc", URI: NSDC},
	{Prefix: "di", URI: NSDDI},
	{Prefix: "camunda", URI: NSCamunda},
	{Prefix: "modeler", URI: NSModeler},
	{Prefix: "xsi", URI: NSXSI},
}

func isCanonicalURI(uri string) bool {
	for _, c := range canonical {
		if c.URI == uri {
			return true
		}
	}
	return false
}

// hasCanonicalDecls reports whether root declares every canonical prefix
// bound to its canonical URI and rebinds none of the canonical URIs.
func hasCanonicalDecls(root *etree.Element) bool {
	bound := map[string]string{}
	for _, d := range xmltree.Decls(root) {
		bound[d.Prefix] = d.URI
		if isCanonicalURI(d.URI) && !isCanonical(d) {
			return false
		}
	}
	for _, c := range canonical {
		if bound[c.Prefix] != c.URI {
			return false
		}
	}
	return true
}

func isCanonical(d xmltree.Decl) bool {
	for _, c := range canonical {
		if c == d {
			return true
		}
	}
	return false
}

// prefixes returns the output prefix table for d: canonical bindings,
// then the document's own declarations, then any URI used by an extra
// attribute.
func prefixes(d *Document) *xmltree.Prefixes {
	p := xmltree.NewPrefixes(canonical)
	for _, ns := range d.Namespaces {
		p.Prefer(ns.Prefix, ns.URI)
	}
	use := func(attrs []Attr) {
		for _, a := range attrs {
			if a.Space != "" {
				p.Prefix(a.Space)
			}
		}
	}
	use(d.DefinitionsExtra)
	use(d.ProcessExtra)
	for _, id := range d.nodeOrder {
		use(d.nodes[id].Extra)
	}
	for _, id := range d.edgeOrder {
		use(d.edges[id].Extra)
	}
	return p
}
