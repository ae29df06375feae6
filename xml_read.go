package bpmn

import (
	"fmt"
	"slices"
	"strings"

	"github.com/beevik/etree"

	"github.com/meikuraledutech/bpmn/internal/xmltree"
)

type flowRef struct {
	flow     string
	incoming bool
}

type reader struct {
	d        *Document
	foreign  map[string]bool
	refs     map[string][]flowRef
	defaults map[string]string
}

// read parses text and reports whether its root carried the canonical
// namespace declarations.
func (c *Codec) read(text string) (*Document, bool, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return nil, false, malformed("not well-formed XML", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, false, malformed("no root element", nil)
	}
	canonicalDecls := hasCanonicalDecls(root)
	if unknown := xmltree.BindMissing(root, canonical); len(unknown) > 0 {
		return nil, false, malformed("undeclared namespace prefix "+quote(strings.Join(unknown, ", ")), nil)
	}
	if !xmltree.Is(root, NSModel, "definitions") {
		return nil, false, malformed("root element "+quote(root.FullTag())+" is not BPMN definitions", nil)
	}

	d := New("", "")
	d.Executable = false
	r := &reader{
		d:        d,
		foreign:  map[string]bool{},
		refs:     map[string][]flowRef{},
		defaults: map[string]string{},
	}
	for _, a := range root.Attr {
		switch {
		case xmltree.IsDecl(a):
			r.declare(a)
		case a.Space == "" && a.Key == "id":
			d.ID = a.Value
		case a.Space == "" && a.Key == "targetNamespace":
			d.TargetNamespace = a.Value
		default:
			d.DefinitionsExtra = append(d.DefinitionsExtra, r.attr(root, a))
		}
	}

	var process *etree.Element
	var diagrams, rest []*etree.Element
	for _, ch := range root.ChildElements() {
		switch {
		case process == nil && xmltree.Is(ch, NSModel, "process"):
			process = ch
		case xmltree.Is(ch, NSDI, "BPMNDiagram"):
			diagrams = append(diagrams, ch)
		default:
			rest = append(rest, ch)
		}
	}
	if process == nil {
		return nil, false, malformed("no process element", nil)
	}
	for _, ch := range rest {
		raw, err := r.raw(ch)
		if err != nil {
			return nil, false, err
		}
		d.RootForeign = append(d.RootForeign, raw)
	}
	if err := r.readProcess(process); err != nil {
		return nil, false, err
	}

	diagram := -1
	for i, dg := range diagrams {
		plane := xmltree.Child(dg, NSDI, "BPMNPlane")
		if plane != nil && plane.SelectAttrValue("bpmnElement", "") == d.ProcessID {
			diagram = i
			break
		}
	}
	if diagram < 0 && len(diagrams) > 0 {
		diagram = 0
	}
	for i, dg := range diagrams {
		if i == diagram {
			continue
		}
		raw, err := r.raw(dg)
		if err != nil {
			return nil, false, err
		}
		d.RootForeign = append(d.RootForeign, raw)
	}
	if diagram >= 0 {
		if err := r.readDiagram(diagrams[diagram]); err != nil {
			return nil, false, err
		}
	}
	return d, canonicalDecls, nil
}

// declare records a namespace declaration that is not canonical.
func (r *reader) declare(a etree.Attr) {
	if a.Space != "xmlns" || isCanonicalURI(a.Value) {
		return
	}
	for _, ns := range r.d.Namespaces {
		if ns.URI == a.Value {
			return
		}
	}
	r.d.Namespaces = append(r.d.Namespaces, Namespace{Prefix: a.Key, URI: a.Value})
}

func (r *reader) attr(e *etree.Element, a etree.Attr) Attr {
	return Attr{Space: xmltree.AttrURI(e, a), Name: a.Key, Value: a.Value}
}

// raw captures an element the model does not interpret and remembers the
// IDs inside it, so diagram entries pointing at them are kept too.
func (r *reader) raw(e *etree.Element) (string, error) {
	for _, id := range xmltree.IDs(e) {
		r.foreign[id] = true
	}
	raw, err := xmltree.Raw(e)
	if err != nil {
		return "", malformed("capture "+quote(e.FullTag()), err)
	}
	return raw, nil
}

// ── Process ─────────────────────────────────────────────

// processHeader lists the process children that precede the flow elements.
var processHeader = []string{"documentation", "extensionElements", "auditing", "monitoring", "property", "laneSet"}

func (r *reader) readProcess(p *etree.Element) error {
	d := r.d
	for _, a := range p.Attr {
		switch {
		case xmltree.IsDecl(a):
			r.declare(a)
		case a.Space == "" && a.Key == "id":
			d.ProcessID = a.Value
		case a.Space == "" && a.Key == "name":
			d.ProcessName = a.Value
		case a.Space == "" && a.Key == "isExecutable":
			b, err := xmltree.ParseBool(a.Value, false)
			if err != nil {
				return malformed("process isExecutable", err)
			}
			d.Executable = b
		default:
			d.ProcessExtra = append(d.ProcessExtra, r.attr(p, a))
		}
	}
	if d.ProcessID == "" {
		return malformed("process has no id", nil)
	}

	var flows []*etree.Element
	leading := true
	for _, ch := range p.ChildElements() {
		if leading && xmltree.URI(ch) == NSModel && slices.Contains(processHeader, ch.Tag) {
			raw, err := r.raw(ch)
			if err != nil {
				return err
			}
			d.LeadingForeign = append(d.LeadingForeign, raw)
			continue
		}
		leading = false
		if xmltree.URI(ch) == NSModel {
			if ch.Tag == "sequenceFlow" {
				flows = append(flows, ch)
				continue
			}
			if v := Variant(ch.Tag); v.Valid() {
				n, err := r.readNode(ch, v)
				if err != nil {
					return err
				}
				if _, exists := d.nodes[n.ID]; exists {
					return malformed("node "+quote(n.ID)+" declared twice", duplicateID("node", n.ID))
				}
				d.insertNode(n)
				continue
			}
		}
		raw, err := r.raw(ch)
		if err != nil {
			return err
		}
		d.Foreign = append(d.Foreign, raw)
	}

	for _, f := range flows {
		if err := r.readFlow(f); err != nil {
			return err
		}
	}
	for _, id := range d.nodeOrder {
		if err := r.checkRefs(id); err != nil {
			return err
		}
		if def := r.defaults[id]; def != "" {
			if err := d.SetDefaultFlow(id, def); err != nil {
				return malformed("default flow of "+quote(id), err)
			}
		}
	}
	return nil
}

func (r *reader) checkRefs(nodeID string) error {
	for _, ref := range r.refs[nodeID] {
		e, ok := r.d.edges[ref.flow]
		if !ok {
			return malformed("node "+quote(nodeID)+" lists unknown flow "+quote(ref.flow), unknownEdge(ref.flow))
		}
		if ref.incoming && e.target != nodeID {
			return malformed("flow "+quote(ref.flow)+" does not end at "+quote(nodeID), nil)
		}
		if !ref.incoming && e.source != nodeID {
			return malformed("flow "+quote(ref.flow)+" does not start at "+quote(nodeID), nil)
		}
	}
	return nil
}

func (r *reader) readFlow(el *etree.Element) error {
	var id, name, src, tgt string
	var extra []Attr
	for _, a := range el.Attr {
		switch {
		case xmltree.IsDecl(a):
			r.declare(a)
		case a.Space == "" && a.Key == "id":
			id = a.Value
		case a.Space == "" && a.Key == "name":
			name = a.Value
		case a.Space == "" && a.Key == "sourceRef":
			src = a.Value
		case a.Space == "" && a.Key == "targetRef":
			tgt = a.Value
		default:
			extra = append(extra, r.attr(el, a))
		}
	}
	if id == "" {
		return malformed("sequence flow without id", nil)
	}
	var cond string
	if c := xmltree.Child(el, NSModel, "conditionExpression"); c != nil {
		cond = c.Text()
	}
	if _, err := r.d.AddEdge(src, tgt, id, cond); err != nil {
		return malformed("sequence flow "+quote(id), err)
	}
	e := r.d.edges[id]
	e.Name = name
	e.Extra = extra
	return nil
}

// ── Nodes ───────────────────────────────────────────────

var (
	userTaskAttrs = []string{"formKey", "assignee", "candidateGroups", "candidateUsers"}
	delegateAttrs = []string{"class", "delegateExpression", "expression", "asyncBefore", "asyncAfter", "exclusive"}
	ruleAttrs     = []string{"delegateExpression", "decisionRef", "resultVariable", "decisionRefBinding", "mapDecisionResult"}
)

func (r *reader) readNode(el *etree.Element, v Variant) (*Node, error) {
	n := &Node{Variant: v}
	var (
		ut       UserTaskAttrs
		del      = DelegateAttrs{Exclusive: true}
		hasDel   bool
		rule     RuleAttrs
		ref      DecisionRef
		script   ScriptAttrs
		def      string
		attrErr  error
		modelled = func(uri string, names []string, key string) bool {
			return uri == NSCamunda && slices.Contains(names, key)
		}
	)
	for _, a := range el.Attr {
		if xmltree.IsDecl(a) {
			r.declare(a)
			continue
		}
		uri := xmltree.AttrURI(el, a)
		switch {
		case uri == "" && a.Key == "id":
			n.ID = a.Value
		case uri == "" && a.Key == "name":
			n.Name = a.Value
		case uri == "" && a.Key == "default" && v.IsGateway():
			def = a.Value
		case uri == "" && a.Key == "scriptFormat" && v == ScriptTask:
			script.Format = a.Value
		case v == UserTask && modelled(uri, userTaskAttrs, a.Key):
			setUserTaskAttr(&ut, a.Key, a.Value)
		case (v == ServiceTask || v == SendTask) && modelled(uri, delegateAttrs, a.Key):
			hasDel = true
			if err := setDelegateAttr(&del, a.Key, a.Value); err != nil && attrErr == nil {
				attrErr = err
			}
		case v == BusinessRuleTask && modelled(uri, ruleAttrs, a.Key):
			setRuleAttr(&rule, &ref, a.Key, a.Value)
		default:
			n.Extra = append(n.Extra, r.attr(el, a))
		}
	}
	if n.ID == "" {
		return nil, malformed(string(v)+" without id", nil)
	}
	if attrErr != nil {
		return nil, malformed("node "+quote(n.ID), attrErr)
	}
	if def != "" {
		r.defaults[n.ID] = def
	}
	if ut != (UserTaskAttrs{}) {
		n.UserTask = &ut
	}
	if hasDel {
		n.Delegate = &del
	}
	if ref != (DecisionRef{}) {
		if ref.Ref == "" {
			return nil, malformed("node "+quote(n.ID)+" has decision attributes without decisionRef", nil)
		}
		if rule.DelegateExpression != "" {
			return nil, malformed("node "+quote(n.ID)+" has both a delegate expression and a decision reference", nil)
		}
		rule.Decision = &ref
	}
	if rule != (RuleAttrs{}) {
		n.Rule = &rule
	}

	for _, ch := range el.ChildElements() {
		uri := xmltree.URI(ch)
		switch {
		case uri == NSModel && ch.Tag == "documentation":
			n.Documentation = ch.Text()
		case uri == NSModel && ch.Tag == "extensionElements":
			if err := r.readExtensions(n, ch); err != nil {
				return nil, err
			}
		case uri == NSModel && (ch.Tag == "incoming" || ch.Tag == "outgoing"):
			r.refs[n.ID] = append(r.refs[n.ID], flowRef{
				flow:     strings.TrimSpace(ch.Text()),
				incoming: ch.Tag == "incoming",
			})
		case uri == NSModel && ch.Tag == "script" && v == ScriptTask:
			script.Body = ch.Text()
		default:
			raw, err := r.raw(ch)
			if err != nil {
				return nil, err
			}
			n.Foreign = append(n.Foreign, raw)
		}
	}
	if script != (ScriptAttrs{}) {
		n.Script = &script
	}
	return n, nil
}

func (r *reader) readExtensions(n *Node, ext *etree.Element) error {
	for _, ch := range ext.ChildElements() {
		if xmltree.Is(ch, NSCamunda, "properties") {
			for _, p := range xmltree.Children(ch, NSCamunda, "property") {
				name, _ := xmltree.Attr(p, "", "name")
				value, _ := xmltree.Attr(p, "", "value")
				n.Properties = append(n.Properties, Property{Name: name, Value: value})
			}
			continue
		}
		raw, err := r.raw(ch)
		if err != nil {
			return err
		}
		n.Extensions = append(n.Extensions, raw)
	}
	return nil
}

func setUserTaskAttr(ut *UserTaskAttrs, key, value string) {
	switch key {
	case "formKey":
		ut.FormKey = value
	case "assignee":
		ut.Assignee = value
	case "candidateGroups":
		ut.CandidateGroups = value
	case "candidateUsers":
		ut.CandidateUsers = value
	}
}

func setDelegateAttr(da *DelegateAttrs, key, value string) error {
	var err error
	switch key {
	case "class", "delegateExpression", "expression":
		if da.Kind != "" {
			return fmt.Errorf("both %s and %s are set", da.Kind, key)
		}
		da.Kind, da.Value = ImplementationKind(key), value
	case "asyncBefore":
		da.AsyncBefore, err = xmltree.ParseBool(value, false)
	case "asyncAfter":
		da.AsyncAfter, err = xmltree.ParseBool(value, false)
	case "exclusive":
		da.Exclusive, err = xmltree.ParseBool(value, true)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func setRuleAttr(rule *RuleAttrs, ref *DecisionRef, key, value string) {
	switch key {
	case "delegateExpression":
		rule.DelegateExpression = value
	case "decisionRef":
		ref.Ref = value
	case "resultVariable":
		ref.ResultVariable = value
	case "decisionRefBinding":
		ref.Binding = value
	case "mapDecisionResult":
		ref.MapResult = value
	}
}

// ── Diagram ─────────────────────────────────────────────

func (r *reader) readDiagram(dg *etree.Element) error {
	d := r.d
	d.DiagramID, _ = xmltree.Attr(dg, "", "id")
	plane := xmltree.Child(dg, NSDI, "BPMNPlane")
	if plane == nil {
		return nil
	}
	d.PlaneID, _ = xmltree.Attr(plane, "", "id")

	for _, ch := range plane.ChildElements() {
		id, _ := xmltree.Attr(ch, "", "id")
		ref, _ := xmltree.Attr(ch, "", "bpmnElement")
		switch {
		case xmltree.Is(ch, NSDI, "BPMNShape"):
			if _, ok := d.nodes[ref]; !ok {
				if err := r.keepDiagram(ch, ref, unknownNode(ref)); err != nil {
					return err
				}
				continue
			}
			bounds := xmltree.Child(ch, NSDC, "Bounds")
			if bounds == nil {
				return malformed("shape "+quote(id)+" has no bounds", nil)
			}
			b, err := readBounds(bounds)
			if err != nil {
				return malformed("shape "+quote(id), err)
			}
			d.shapes[ref] = Shape{ID: id, Bounds: b}
		case xmltree.Is(ch, NSDI, "BPMNEdge"):
			if _, ok := d.edges[ref]; !ok {
				if err := r.keepDiagram(ch, ref, unknownEdge(ref)); err != nil {
					return err
				}
				continue
			}
			var points []Point
			for _, wp := range xmltree.Children(ch, NSDDI, "waypoint") {
				x, err := xmltree.ParseFloat(wp, "x")
				if err != nil {
					return malformed("edge "+quote(id), err)
				}
				y, err := xmltree.ParseFloat(wp, "y")
				if err != nil {
					return malformed("edge "+quote(id), err)
				}
				points = append(points, Point{X: x, Y: y})
			}
			d.diagramEdges[ref] = DiagramEdge{ID: id, Waypoints: points}
		default:
			raw, err := r.raw(ch)
			if err != nil {
				return err
			}
			d.DiagramForeign = append(d.DiagramForeign, raw)
		}
	}
	return nil
}

// keepDiagram keeps a diagram entry for an element the model does not
// interpret. Entries pointing nowhere are an error.
func (r *reader) keepDiagram(e *etree.Element, ref string, cause error) error {
	if !r.foreign[ref] {
		return malformed("diagram element references "+quote(ref), cause)
	}
	raw, err := xmltree.Raw(e)
	if err != nil {
		return malformed("capture "+quote(e.FullTag()), err)
	}
	r.d.DiagramForeign = append(r.d.DiagramForeign, raw)
	return nil
}

func readBounds(e *etree.Element) (Bounds, error) {
	var b Bounds
	var err error
	for _, f := range []struct {
		name string
		dst  *float64
	}{{"x", &b.X}, {"y", &b.Y}, {"width", &b.Width}, {"height", &b.Height}} {
		if *f.dst, err = xmltree.ParseFloat(e, f.name); err != nil {
			return Bounds{}, err
		}
	}
	return b, nil
}
