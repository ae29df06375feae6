package dmn

import (
	"slices"

	"github.com/beevik/etree"

	"github.com/meikuraledutech/bpmn"
	"github.com/meikuraledutech/bpmn/internal/xmltree"
)

const (
	NSModel   = "https://www.omg.org/spec/DMN/20191111/MODEL/"
	NSDMNDI   = "https://www.omg.org/spec/DMN/20191111/DMNDI/"
	NSDC      = "http://www.omg.org/spec/DMN/20180521/DC/"
	NSCamunda = "http://camunda.org/schema/1.0/dmn"
)

// modelURIs are the DMN model namespaces accepted on input. Output always
// uses NSModel.
var modelURIs = []string{
	NSModel,
	"https://www.omg.org/spec/DMN/20180521/MODEL/",
	"http://www.omg.org/spec/DMN/20180521/MODEL/",
	"http://www.omg.org/spec/DMN/20151101/dmn.xsd",
}

var canonical = []xmltree.Decl{
	{Prefix: "dmndi", URI: NSDMNDI},
	{Prefix: "dc", URI: NSDC},
	{Prefix: "camunda", URI: NSCamunda},
}

func malformed(msg string, source error) error {
	return bpmn.NewError(bpmn.ErrMalformedDocument, "malformed decision: "+msg, source, nil)
}

// Parse reads DMN XML holding at least one decision with a decision table.
// The first such decision is modelled; other definitions children are kept
// raw and written back unchanged. Parse only checks that the XML can be
// modelled; use Validate for the shape of the table.
func Parse(text string) (*Model, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return nil, malformed("not well-formed XML", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, malformed("no root element", nil)
	}
	ns := xmltree.URI(root)
	if root.Tag != "definitions" || !slices.Contains(modelURIs, ns) {
		return nil, malformed(`root element "`+root.FullTag()+`" is not DMN definitions`, nil)
	}

	m := &Model{}
	for _, a := range root.Attr {
		switch {
		case a.Space == "xmlns":
			if !isCanonical(a.Value) && !slices.Contains(modelURIs, a.Value) {
				m.Namespaces = append(m.Namespaces, Namespace{Prefix: a.Key, URI: a.Value})
			}
		case a.Space != "" || xmltree.IsDecl(a):
		case a.Key == "id":
			m.ID = a.Value
		case a.Key == "name":
			m.Name = a.Value
		case a.Key == "namespace":
			m.Namespace = a.Value
		}
	}

	found := false
	for _, ch := range root.ChildElements() {
		if !found && xmltree.Is(ch, ns, "decision") && xmltree.Child(ch, ns, "decisionTable") != nil {
			d, err := readDecision(ch, ns)
			if err != nil {
				return nil, err
			}
			m.Decision = *d
			found = true
			continue
		}
		raw, err := xmltree.Raw(ch)
		if err != nil {
			return nil, malformed("cannot copy element "+ch.FullTag(), err)
		}
		if found {
			m.Foreign = append(m.Foreign, raw)
		} else {
			m.LeadingForeign = append(m.LeadingForeign, raw)
		}
	}
	if !found {
		return nil, malformed("no decision with a decision table", nil)
	}
	if m.Decision.ID == "" {
		return nil, malformed("decision without id", nil)
	}
	return m, nil
}

func isCanonical(uri string) bool {
	for _, c := range canonical {
		if c.URI == uri {
			return true
		}
	}
	return false
}

func readDecision(e *etree.Element, ns string) (*Decision, error) {
	d := &Decision{ID: e.SelectAttrValue("id", ""), Name: e.SelectAttrValue("name", "")}
	seen := false
	for _, ch := range e.ChildElements() {
		if xmltree.Is(ch, ns, "decisionTable") && !seen {
			t, err := readTable(ch, ns)
			if err != nil {
				return nil, err
			}
			d.Table = *t
			seen = true
			continue
		}
		raw, err := xmltree.Raw(ch)
		if err != nil {
			return nil, malformed("cannot copy element "+ch.FullTag(), err)
		}
		if seen {
			d.Foreign = append(d.Foreign, raw)
		} else {
			d.LeadingForeign = append(d.LeadingForeign, raw)
		}
	}
	return d, nil
}

func readTable(e *etree.Element, ns string) (*Table, error) {
	t := &Table{
		ID:          e.SelectAttrValue("id", ""),
		HitPolicy:   HitPolicy(e.SelectAttrValue("hitPolicy", string(Unique))),
		Aggregation: e.SelectAttrValue("aggregation", ""),
	}
	if t.ID == "" {
		return nil, malformed("decision table without id", nil)
	}
	for _, in := range xmltree.Children(e, ns, "input") {
		col := Input{ID: in.SelectAttrValue("id", ""), Label: in.SelectAttrValue("label", "")}
		if expr := xmltree.Child(in, ns, "inputExpression"); expr != nil {
			col.ExpressionID = expr.SelectAttrValue("id", "")
			col.TypeRef = expr.SelectAttrValue("typeRef", "")
			col.Expression = text(expr, ns)
		}
		t.Inputs = append(t.Inputs, col)
	}
	for _, out := range xmltree.Children(e, ns, "output") {
		t.Outputs = append(t.Outputs, Output{
			ID:      out.SelectAttrValue("id", ""),
			Label:   out.SelectAttrValue("label", ""),
			Name:    out.SelectAttrValue("name", ""),
			TypeRef: out.SelectAttrValue("typeRef", ""),
		})
	}
	for _, rule := range xmltree.Children(e, ns, "rule") {
		r := Rule{ID: rule.SelectAttrValue("id", "")}
		if desc := xmltree.Child(rule, ns, "description"); desc != nil {
			r.Description = desc.Text()
		}
		for _, entry := range xmltree.Children(rule, ns, "inputEntry") {
			r.Inputs = append(r.Inputs, Entry{ID: entry.SelectAttrValue("id", ""), Text: text(entry, ns)})
		}
		for _, entry := range xmltree.Children(rule, ns, "outputEntry") {
			r.Outputs = append(r.Outputs, Entry{ID: entry.SelectAttrValue("id", ""), Text: text(entry, ns)})
		}
		t.Rules = append(t.Rules, r)
	}
	return t, nil
}

func text(e *etree.Element, ns string) string {
	if t := xmltree.Child(e, ns, "text"); t != nil {
		return t.Text()
	}
	return ""
}

// Serialize writes m as DMN 1.3 XML with the model namespace as the
// default namespace. Output depends only on the content of m. Preserved
// children keep their place before or after the decision and its table.
// An empty hit policy or input expression ID is written with its default;
// call Normalize first when m must equal what Parse reads back.
func Serialize(m *Model) (string, error) {
	if m.Decision.ID == "" {
		return "", bpmn.NewError(bpmn.ErrInvalidAttribute, "decision id must not be empty", nil, nil)
	}
	ns := xmltree.NewPrefixes(canonical)
	for _, d := range m.Namespaces {
		ns.Prefer(d.Prefix, d.URI)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("definitions")
	root.CreateAttr("xmlns", NSModel)
	ns.Declare(root)
	root.CreateAttr("id", or(m.ID, "Definitions_1"))
	root.CreateAttr("name", or(m.Name, "DMN Definition"))
	root.CreateAttr("namespace", or(m.Namespace, NSCamunda))

	if err := attach(root, m.LeadingForeign); err != nil {
		return "", err
	}
	dec := root.CreateElement("decision")
	dec.CreateAttr("id", m.Decision.ID)
	if m.Decision.Name != "" {
		dec.CreateAttr("name", m.Decision.Name)
	}
	if err := attach(dec, m.Decision.LeadingForeign); err != nil {
		return "", err
	}
	writeTable(dec, &m.Decision.Table)
	if err := attach(dec, m.Decision.Foreign); err != nil {
		return "", err
	}
	if err := attach(root, m.Foreign); err != nil {
		return "", err
	}
	xmltree.Indent(doc)
	return doc.WriteToString()
}

func attach(parent *etree.Element, fragments []string) error {
	for _, raw := range fragments {
		if err := xmltree.AttachRaw(parent, raw); err != nil {
			return malformed("bad preserved fragment", err)
		}
	}
	return nil
}

func writeTable(parent *etree.Element, t *Table) {
	el := parent.CreateElement("decisionTable")
	el.CreateAttr("id", t.ID)
	el.CreateAttr("hitPolicy", string(t.hitPolicy()))
	if t.Aggregation != "" {
		el.CreateAttr("aggregation", t.Aggregation)
	}
	for _, in := range t.Inputs {
		col := el.CreateElement("input")
		col.CreateAttr("id", in.ID)
		if in.Label != "" {
			col.CreateAttr("label", in.Label)
		}
		expr := col.CreateElement("inputExpression")
		expr.CreateAttr("id", in.expressionID())
		if in.TypeRef != "" {
			expr.CreateAttr("typeRef", in.TypeRef)
		}
		expr.CreateElement("text").SetText(in.Expression)
	}
	for _, out := range t.Outputs {
		col := el.CreateElement("output")
		col.CreateAttr("id", out.ID)
		if out.Label != "" {
			col.CreateAttr("label", out.Label)
		}
		if out.Name != "" {
			col.CreateAttr("name", out.Name)
		}
		if out.TypeRef != "" {
			col.CreateAttr("typeRef", out.TypeRef)
		}
	}
	for _, r := range t.Rules {
		rule := el.CreateElement("rule")
		rule.CreateAttr("id", r.ID)
		if r.Description != "" {
			rule.CreateElement("description").SetText(r.Description)
		}
		entries(rule, "inputEntry", r.Inputs)
		entries(rule, "outputEntry", r.Outputs)
	}
}

func entries(rule *etree.Element, tag string, list []Entry) {
	for _, e := range list {
		el := rule.CreateElement(tag)
		if e.ID != "" {
			el.CreateAttr("id", e.ID)
		}
		el.CreateElement("text").SetText(e.Text)
	}
}

func or[T ~string](v, fallback T) T {
	if v == "" {
		return fallback
	}
	return v
}
