package bpmn

import (
	"slices"
	"strings"
)

// Document is an in-memory process graph together with its diagram.
//
// Nodes and flows are stored by ID in insertion order. Node IDs and flow
// IDs are separate namespaces, each unique. The lookups hand out pointers
// into the document: callers may edit Name, Documentation and the
// attribute structs directly, but must not change ID or Variant.
type Document struct {
	ID              string
	ProcessID       string
	ProcessName     string
	Executable      bool
	TargetNamespace string
	DiagramID       string
	PlaneID         string

	// Namespaces holds declarations other than the canonical ones.
	Namespaces []Namespace
	// DefinitionsExtra holds uninterpreted attributes of the root element.
	DefinitionsExtra []Attr
	// ProcessExtra holds attributes of the process element the model does
	// not interpret.
	ProcessExtra []Attr
	// LeadingForeign holds raw XML for unknown process children that
	// precede the flow elements, such as documentation or a laneSet.
	LeadingForeign []string
	// Foreign, RootForeign and DiagramForeign hold raw XML for unknown
	// children of the process, the definitions and the diagram plane.
	Foreign        []string
	RootForeign    []string
	DiagramForeign []string

	nodes        map[string]*Node
	nodeOrder    []string
	edges        map[string]*Edge
	edgeOrder    []string
	shapes       map[string]Shape
	diagramEdges map[string]DiagramEdge
}

// New returns a document with no nodes.
func New(processID, processName string) *Document {
	return &Document{
		ProcessID:    processID,
		ProcessName:  processName,
		Executable:   true,
		nodes:        map[string]*Node{},
		edges:        map[string]*Edge{},
		shapes:       map[string]Shape{},
		diagramEdges: map[string]DiagramEdge{},
	}
}

// NewDocument creates an executable process named name containing a start
// event connected to an end event.
func NewDocument(name string) (*Document, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewError(ErrEmptyName, "process name must not be empty", nil, nil)
	}
	d := New(ProcessKey(name), name)
	d.ID = NewID("Definitions")

	start, _ := d.AddNode(StartEvent, "", "Start")
	end, _ := d.AddNode(EndEvent, "", "End")
	flow, _ := d.AddEdge(start, end, "", "")

	d.shapes[start] = Shape{Bounds: Bounds{X: 180, Y: 100, Width: 36, Height: 36}}
	d.shapes[end] = Shape{Bounds: Bounds{X: 430, Y: 100, Width: 36, Height: 36}}
	d.diagramEdges[flow] = DiagramEdge{Waypoints: []Point{{X: 216, Y: 118}, {X: 430, Y: 118}}}
	return d, nil
}

// ── Nodes ───────────────────────────────────────────────

// AddNode inserts a node and returns its ID. An empty id is replaced by a
// generated one.
func (d *Document) AddNode(v Variant, id, name string) (string, error) {
	if !v.Valid() {
		return "", invalidAttribute(id, "unknown node variant "+quote(string(v)))
	}
	if id == "" {
		id = d.newNodeID(v)
	} else if _, exists := d.nodes[id]; exists {
		return "", duplicateID("node", id)
	}
	d.insertNode(&Node{ID: id, Variant: v, Name: name})
	return id, nil
}

func (d *Document) insertNode(n *Node) {
	d.nodes[n.ID] = n
	d.nodeOrder = append(d.nodeOrder, n.ID)
}

// Node looks up a node by ID.
func (d *Document) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (d *Document) Nodes() []*Node {
	out := make([]*Node, 0, len(d.nodeOrder))
	for _, id := range d.nodeOrder {
		out = append(out, d.nodes[id])
	}
	return out
}

// RemoveNode deletes a node, every flow attached to it and their diagram
// entries.
func (d *Document) RemoveNode(id string) error {
	n, ok := d.nodes[id]
	if !ok {
		return unknownNode(id)
	}
	attached := append(n.Incoming(), n.outgoing...)
	for _, eid := range attached {
		if _, still := d.edges[eid]; still {
			d.detachEdge(eid)
		}
	}
	delete(d.nodes, id)
	d.nodeOrder = slices.DeleteFunc(d.nodeOrder, func(s string) bool { return s == id })
	delete(d.shapes, id)
	return nil
}

// ── Edges ───────────────────────────────────────────────

// AddEdge connects two existing nodes and returns the flow ID. An empty id
// is replaced by a generated one.
func (d *Document) AddEdge(sourceID, targetID, id, condition string) (string, error) {
	src, ok := d.nodes[sourceID]
	if !ok {
		return "", unknownNode(sourceID)
	}
	tgt, ok := d.nodes[targetID]
	if !ok {
		return "", unknownNode(targetID)
	}
	if id == "" {
		id = d.newEdgeID()
	} else if _, exists := d.edges[id]; exists {
		return "", duplicateID("edge", id)
	}
	d.edges[id] = &Edge{ID: id, Condition: strings.TrimSpace(condition), source: sourceID, target: targetID}
	d.edgeOrder = append(d.edgeOrder, id)
	src.outgoing = append(src.outgoing, id)
	tgt.incoming = append(tgt.incoming, id)
	return id, nil
}

// Edge looks up a flow by ID.
func (d *Document) Edge(id string) (*Edge, bool) {
	e, ok := d.edges[id]
	return e, ok
}

// Edges returns all flows in insertion order.
func (d *Document) Edges() []*Edge {
	out := make([]*Edge, 0, len(d.edgeOrder))
	for _, id := range d.edgeOrder {
		out = append(out, d.edges[id])
	}
	return out
}

// RemoveEdge deletes a flow and its diagram entry. A gateway whose default
// flow it was loses its default.
func (d *Document) RemoveEdge(id string) error {
	if _, ok := d.edges[id]; !ok {
		return unknownEdge(id)
	}
	d.detachEdge(id)
	return nil
}

func (d *Document) detachEdge(id string) {
	e := d.edges[id]
	if src, ok := d.nodes[e.source]; ok {
		src.outgoing = without(src.outgoing, id)
		if src.defaultFlow == id {
			src.defaultFlow = ""
		}
	}
	if tgt, ok := d.nodes[e.target]; ok {
		tgt.incoming = without(tgt.incoming, id)
	}
	delete(d.edges, id)
	d.edgeOrder = without(d.edgeOrder, id)
	delete(d.diagramEdges, id)
}

func without(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(s string) bool { return s == id })
}

// SetDefaultFlow marks edgeID as the default flow of a gateway. An empty
// edgeID clears it.
func (d *Document) SetDefaultFlow(gatewayID, edgeID string) error {
	g, ok := d.nodes[gatewayID]
	if !ok {
		return unknownNode(gatewayID)
	}
	if !g.Variant.IsGateway() {
		return invalidAttribute(gatewayID, "node "+quote(gatewayID)+" is not a gateway")
	}
	if edgeID == "" {
		g.defaultFlow = ""
		return nil
	}
	if _, ok := d.edges[edgeID]; !ok {
		return unknownEdge(edgeID)
	}
	if !slices.Contains(g.outgoing, edgeID) {
		return NewError(ErrInvalidDefaultFlow,
			"flow "+quote(edgeID)+" is not an outgoing flow of gateway "+quote(gatewayID), nil,
			map[string]any{"node_id": gatewayID, "edge_id": edgeID})
	}
	g.defaultFlow = edgeID
	return nil
}

// ── Diagram ─────────────────────────────────────────────

// Shape returns the diagram shape of a node.
func (d *Document) Shape(nodeID string) (Shape, bool) {
	s, ok := d.shapes[nodeID]
	return s, ok
}

// SetShape places a node on the diagram.
func (d *Document) SetShape(nodeID string, s Shape) error {
	if _, ok := d.nodes[nodeID]; !ok {
		return unknownNode(nodeID)
	}
	d.shapes[nodeID] = s
	return nil
}

// DiagramEdge returns the diagram route of a flow.
func (d *Document) DiagramEdge(edgeID string) (DiagramEdge, bool) {
	de, ok := d.diagramEdges[edgeID]
	return de, ok
}

// SetWaypoints routes a flow on the diagram, keeping its diagram ID.
func (d *Document) SetWaypoints(edgeID string, points []Point) error {
	if _, ok := d.edges[edgeID]; !ok {
		return unknownEdge(edgeID)
	}
	de := d.diagramEdges[edgeID]
	de.Waypoints = slices.Clone(points)
	d.diagramEdges[edgeID] = de
	return nil
}

// ── Copy & compare ──────────────────────────────────────

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	c := *d
	c.Namespaces = slices.Clone(d.Namespaces)
	c.DefinitionsExtra = slices.Clone(d.DefinitionsExtra)
	c.ProcessExtra = slices.Clone(d.ProcessExtra)
	c.LeadingForeign = slices.Clone(d.LeadingForeign)
	c.Foreign = slices.Clone(d.Foreign)
	c.RootForeign = slices.Clone(d.RootForeign)
	c.DiagramForeign = slices.Clone(d.DiagramForeign)
	c.nodes = make(map[string]*Node, len(d.nodes))
	for id, n := range d.nodes {
		c.nodes[id] = n.clone()
	}
	c.nodeOrder = slices.Clone(d.nodeOrder)
	c.edges = make(map[string]*Edge, len(d.edges))
	for id, e := range d.edges {
		ec := *e
		ec.Extra = slices.Clone(e.Extra)
		c.edges[id] = &ec
	}
	c.edgeOrder = slices.Clone(d.edgeOrder)
	c.shapes = make(map[string]Shape, len(d.shapes))
	for id, s := range d.shapes {
		c.shapes[id] = s
	}
	c.diagramEdges = make(map[string]DiagramEdge, len(d.diagramEdges))
	for id, de := range d.diagramEdges {
		c.diagramEdges[id] = DiagramEdge{ID: de.ID, Waypoints: slices.Clone(de.Waypoints)}
	}
	return &c
}

func (n *Node) clone() *Node {
	c := *n
	if n.UserTask != nil {
		ut := *n.UserTask
		c.UserTask = &ut
	}
	if n.Delegate != nil {
		da := *n.Delegate
		c.Delegate = &da
	}
	if n.Rule != nil {
		ra := *n.Rule
		if n.Rule.Decision != nil {
			dr := *n.Rule.Decision
			ra.Decision = &dr
		}
		c.Rule = &ra
	}
	if n.Script != nil {
		sa := *n.Script
		c.Script = &sa
	}
	c.Properties = slices.Clone(n.Properties)
	c.Extra = slices.Clone(n.Extra)
	c.Extensions = slices.Clone(n.Extensions)
	c.Foreign = slices.Clone(n.Foreign)
	c.incoming = slices.Clone(n.incoming)
	c.outgoing = slices.Clone(n.outgoing)
	return &c
}

// Equal reports whether d and o describe the same process graph: the same
// process identity, nodes, flows, attributes and default flows. The
// diagram is not compared.
func (d *Document) Equal(o *Document) bool {
	if d.ProcessID != o.ProcessID || d.ProcessName != o.ProcessName || d.Executable != o.Executable {
		return false
	}
	if len(d.nodes) != len(o.nodes) || len(d.edges) != len(o.edges) {
		return false
	}
	for id, n := range d.nodes {
		m, ok := o.nodes[id]
		if !ok || !n.equal(m) {
			return false
		}
	}
	for id, e := range d.edges {
		f, ok := o.edges[id]
		if !ok || e.source != f.source || e.target != f.target ||
			e.Name != f.Name || e.Condition != f.Condition || !slices.Equal(e.Extra, f.Extra) {
			return false
		}
	}
	return true
}

func (n *Node) equal(m *Node) bool {
	if n.Variant != m.Variant || n.Name != m.Name || n.Documentation != m.Documentation ||
		n.defaultFlow != m.defaultFlow {
		return false
	}
	if n.userTask() != m.userTask() || n.delegate() != m.delegate() || n.script() != m.script() {
		return false
	}
	nr, mr := n.rule(), m.rule()
	if nr.DelegateExpression != mr.DelegateExpression || nr.decision() != mr.decision() {
		return false
	}
	return slices.Equal(n.Properties, m.Properties) &&
		slices.Equal(n.Extra, m.Extra) &&
		slices.Equal(n.Extensions, m.Extensions) &&
		slices.Equal(n.Foreign, m.Foreign) &&
		sameSet(n.incoming, m.incoming) &&
		sameSet(n.outgoing, m.outgoing)
}

// The accessors below return the zero configuration for nil attribute
// structs so an unset struct and an empty one compare equal.

func (n *Node) userTask() UserTaskAttrs {
	if n.UserTask == nil {
		return UserTaskAttrs{}
	}
	return *n.UserTask
}

func (n *Node) delegate() DelegateAttrs {
	if n.Delegate == nil {
		return DelegateAttrs{Exclusive: true}
	}
	return *n.Delegate
}

func (n *Node) rule() RuleAttrs {
	if n.Rule == nil {
		return RuleAttrs{}
	}
	return *n.Rule
}

func (r RuleAttrs) decision() DecisionRef {
	if r.Decision == nil {
		return DecisionRef{}
	}
	return *r.Decision
}

func (n *Node) script() ScriptAttrs {
	if n.Script == nil {
		return ScriptAttrs{}
	}
	return *n.Script
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
