package bpmn

import (
	"strconv"

	"github.com/beevik/etree"

	"github.com/meikuraledutech/bpmn/internal/xmltree"
)

type writer struct {
	ns *xmltree.Prefixes
}

// Serialize writes d as BPMN XML. Output depends only on the content of d:
// nodes and flows are written in insertion order, and diagram entries
// missing from d are derived from the layout without modifying d.
// Documentation and script bodies are written as they are, whitespace
// included.
func (c *Codec) Serialize(d *Document) (string, error) {
	if d.ProcessID == "" {
		return "", invalidAttribute("", "process id must not be empty")
	}
	w := &writer{ns: prefixes(d)}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("bpmn:definitions")
	w.ns.Declare(root)
	root.CreateAttr("id", or(d.ID, "Definitions_1"))
	root.CreateAttr("targetNamespace", or(d.TargetNamespace, defaultTargetNamespace))
	w.extra(root, d.DefinitionsExtra)

	proc := root.CreateElement("bpmn:process")
	proc.CreateAttr("id", d.ProcessID)
	if d.ProcessName != "" {
		proc.CreateAttr("name", d.ProcessName)
	}
	proc.CreateAttr("isExecutable", strconv.FormatBool(d.Executable))
	w.extra(proc, d.ProcessExtra)
	if err := attach(proc, d.LeadingForeign); err != nil {
		return "", err
	}
	for _, id := range d.nodeOrder {
		if err := w.node(proc, d.nodes[id]); err != nil {
			return "", err
		}
	}
	for _, id := range d.edgeOrder {
		w.edge(proc, d.edges[id])
	}
	if err := attach(proc, d.Foreign); err != nil {
		return "", err
	}
	if err := attach(root, d.RootForeign); err != nil {
		return "", err
	}

	shapes, edges := c.layout().Complete(d)
	diagram := root.CreateElement("bpmndi:BPMNDiagram")
	diagram.CreateAttr("id", or(d.DiagramID, "BPMNDiagram_1"))
	plane := diagram.CreateElement("bpmndi:BPMNPlane")
	plane.CreateAttr("id", or(d.PlaneID, "BPMNPlane_1"))
	plane.CreateAttr("bpmnElement", d.ProcessID)
	for _, id := range d.nodeOrder {
		s := shapes[id]
		el := plane.CreateElement("bpmndi:BPMNShape")
		el.CreateAttr("id", or(s.ID, id+"_di"))
		el.CreateAttr("bpmnElement", id)
		b := el.CreateElement("dc:Bounds")
		b.CreateAttr("x", xmltree.Float(s.Bounds.X))
		b.CreateAttr("y", xmltree.Float(s.Bounds.Y))
		b.CreateAttr("width", xmltree.Float(s.Bounds.Width))
		b.CreateAttr("height", xmltree.Float(s.Bounds.Height))
	}
	for _, id := range d.edgeOrder {
		de := edges[id]
		el := plane.CreateElement("bpmndi:BPMNEdge")
		el.CreateAttr("id", or(de.ID, id+"_di"))
		el.CreateAttr("bpmnElement", id)
		for _, p := range de.Waypoints {
			wp := el.CreateElement("di:waypoint")
			wp.CreateAttr("x", xmltree.Float(p.X))
			wp.CreateAttr("y", xmltree.Float(p.Y))
		}
	}
	if err := attach(plane, d.DiagramForeign); err != nil {
		return "", err
	}

	xmltree.Indent(doc)
	return doc.WriteToString()
}

func (w *writer) extra(el *etree.Element, attrs []Attr) {
	for _, a := range attrs {
		el.CreateAttr(w.ns.Qualify(a.Space, a.Name), a.Value)
	}
}

func camunda(el *etree.Element, name, value string) {
	if value != "" {
		el.CreateAttr("camunda:"+name, value)
	}
}

func (w *writer) node(parent *etree.Element, n *Node) error {
	el := parent.CreateElement("bpmn:" + string(n.Variant))
	el.CreateAttr("id", n.ID)
	if n.Name != "" {
		el.CreateAttr("name", n.Name)
	}
	if n.defaultFlow != "" {
		el.CreateAttr("default", n.defaultFlow)
	}
	switch n.Variant {
	case UserTask:
		if ut := n.UserTask; ut != nil {
			camunda(el, "formKey", ut.FormKey)
			camunda(el, "assignee", ut.Assignee)
			camunda(el, "candidateGroups", ut.CandidateGroups)
			camunda(el, "candidateUsers", ut.CandidateUsers)
		}
	case ServiceTask, SendTask:
		if da := n.Delegate; da != nil {
			if da.Kind != "" {
				camunda(el, string(da.Kind), da.Value)
			}
			if da.AsyncBefore {
				camunda(el, "asyncBefore", "true")
			}
			if da.AsyncAfter {
				camunda(el, "asyncAfter", "true")
			}
			if !da.Exclusive {
				camunda(el, "exclusive", "false")
			}
		}
	case BusinessRuleTask:
		if r := n.Rule; r != nil {
			if ref := r.Decision; ref != nil {
				camunda(el, "decisionRef", ref.Ref)
				camunda(el, "resultVariable", ref.ResultVariable)
				camunda(el, "decisionRefBinding", ref.Binding)
				camunda(el, "mapDecisionResult", ref.MapResult)
			} else {
				camunda(el, "delegateExpression", r.DelegateExpression)
			}
		}
	case ScriptTask:
		if s := n.Script; s != nil && s.Format != "" {
			el.CreateAttr("scriptFormat", s.Format)
		}
	}
	w.extra(el, n.Extra)

	if n.Documentation != "" {
		el.CreateElement("bpmn:documentation").SetText(n.Documentation)
	}
	if len(n.Properties) > 0 || len(n.Extensions) > 0 {
		ext := el.CreateElement("bpmn:extensionElements")
		if len(n.Properties) > 0 {
			props := ext.CreateElement("camunda:properties")
			for _, p := range n.Properties {
				pe := props.CreateElement("camunda:property")
				pe.CreateAttr("name", p.Name)
				pe.CreateAttr("value", p.Value)
			}
		}
		if err := attach(ext, n.Extensions); err != nil {
			return err
		}
	}
	for _, id := range n.incoming {
		el.CreateElement("bpmn:incoming").SetText(id)
	}
	for _, id := range n.outgoing {
		el.CreateElement("bpmn:outgoing").SetText(id)
	}
	if s := n.Script; n.Variant == ScriptTask && s != nil && s.Body != "" {
		el.CreateElement("bpmn:script").SetText(s.Body)
	}
	return attach(el, n.Foreign)
}

func (w *writer) edge(parent *etree.Element, e *Edge) {
	el := parent.CreateElement("bpmn:sequenceFlow")
	el.CreateAttr("id", e.ID)
	if e.Name != "" {
		el.CreateAttr("name", e.Name)
	}
	el.CreateAttr("sourceRef", e.source)
	el.CreateAttr("targetRef", e.target)
	w.extra(el, e.Extra)
	if e.Condition != "" {
		c := el.CreateElement("bpmn:conditionExpression")
		c.CreateAttr("xsi:type", "bpmn:tFormalExpression")
		c.SetText(e.Condition)
	}
}

func attach(parent *etree.Element, fragments []string) error {
	for _, raw := range fragments {
		if err := xmltree.AttachRaw(parent, raw); err != nil {
			return malformed("foreign element", err)
		}
	}
	return nil
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
