// Package bpmn builds, validates and repairs business-process graphs and
// converts them to and from BPMN 2.0 XML.
//
// A Document is an arena of nodes and sequence flows keyed by ID, plus a
// parallel diagram overlay. Back-references (incoming/outgoing flow IDs per
// node) are maintained only by AddEdge, RemoveEdge and RemoveNode.
package bpmn

// Variant is the type tag of a Node.
type Variant string

const (
	StartEvent       Variant = "startEvent"
	EndEvent         Variant = "endEvent"
	Task             Variant = "task"
	UserTask         Variant = "userTask"
	ServiceTask      Variant = "serviceTask"
	SendTask         Variant = "sendTask"
	ScriptTask       Variant = "scriptTask"
	BusinessRuleTask Variant = "businessRuleTask"
	ExclusiveGateway Variant = "exclusiveGateway"
	ParallelGateway  Variant = "parallelGateway"
	InclusiveGateway Variant = "inclusiveGateway"
)

// Variants lists every supported node variant.
var Variants = []Variant{
	StartEvent, EndEvent, Task, UserTask, ServiceTask, SendTask, ScriptTask,
	BusinessRuleTask, ExclusiveGateway, ParallelGateway, InclusiveGateway,
}

// Valid reports whether v is one of Variants.
func (v Variant) Valid() bool {
	for _, known := range Variants {
		if v == known {
			return true
		}
	}
	return false
}

func (v Variant) IsGateway() bool {
	return v == ExclusiveGateway || v == ParallelGateway || v == InclusiveGateway
}

func (v Variant) IsEvent() bool {
	return v == StartEvent || v == EndEvent
}

func (v Variant) IsTask() bool {
	return v.Valid() && !v.IsGateway() && !v.IsEvent()
}

// ImplementationKind selects how a service or send task is implemented.
type ImplementationKind string

const (
	ImplClass              ImplementationKind = "class"
	ImplDelegateExpression ImplementationKind = "delegateExpression"
	ImplExpression         ImplementationKind = "expression"
)

// UserTaskAttrs holds the attributes of a UserTask.
type UserTaskAttrs struct {
	FormKey         string `json:"form_key,omitempty"`
	Assignee        string `json:"assignee,omitempty"`
	CandidateGroups string `json:"candidate_groups,omitempty"`
	CandidateUsers  string `json:"candidate_users,omitempty"`
}

// DelegateAttrs holds the implementation of a ServiceTask or SendTask.
// Exclusive defaults to true, as in the engine.
type DelegateAttrs struct {
	Kind        ImplementationKind `json:"kind,omitempty"`
	Value       string             `json:"value,omitempty"`
	AsyncBefore bool               `json:"async_before"`
	AsyncAfter  bool               `json:"async_after"`
	Exclusive   bool               `json:"exclusive"`
}

// DecisionRef binds a BusinessRuleTask to a decision table.
type DecisionRef struct {
	Ref            string `json:"decision_ref"`
	ResultVariable string `json:"result_variable,omitempty"`
	Binding        string `json:"binding,omitempty"`
	MapResult      string `json:"map_result,omitempty"`
}

// RuleAttrs holds the implementation of a BusinessRuleTask: either a
// delegate expression or a decision reference, never both.
type RuleAttrs struct {
	DelegateExpression string       `json:"delegate_expression,omitempty"`
	Decision           *DecisionRef `json:"decision,omitempty"`
}

// ScriptAttrs holds the (never executed) body of a ScriptTask.
type ScriptAttrs struct {
	Format string `json:"format,omitempty"`
	Body   string `json:"body,omitempty"`
}

// Property is a name/value pair stored in the node's extension properties.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Attr is an attribute the model does not interpret. Space is the
// namespace URI, not a prefix.
type Attr struct {
	Space string `json:"space,omitempty"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Node is a vertex of the process graph. Only the attribute struct that
// matches Variant is set.
type Node struct {
	ID            string  `json:"id"`
	Variant       Variant `json:"variant"`
	Name          string  `json:"name,omitempty"`
	Documentation string  `json:"documentation,omitempty"`

	UserTask *UserTaskAttrs `json:"user_task,omitempty"`
	Delegate *DelegateAttrs `json:"delegate,omitempty"`
	Rule     *RuleAttrs     `json:"rule,omitempty"`
	Script   *ScriptAttrs   `json:"script,omitempty"`

	Properties []Property `json:"properties,omitempty"`
	Extra      []Attr     `json:"extra,omitempty"`
	// Extensions holds raw extension elements other than properties.
	Extensions []string `json:"extensions,omitempty"`
	// Foreign holds raw child elements outside extensionElements that the
	// model does not interpret.
	Foreign []string `json:"foreign,omitempty"`

	defaultFlow string
	incoming    []string
	outgoing    []string
}

// DefaultFlow returns the default flow of a gateway, or "".
func (n *Node) DefaultFlow() string { return n.defaultFlow }

// Incoming returns a copy of the IDs of the flows targeting n.
func (n *Node) Incoming() []string { return append([]string(nil), n.incoming...) }

// Outgoing returns a copy of the IDs of the flows leaving n.
func (n *Node) Outgoing() []string { return append([]string(nil), n.outgoing...) }

// Edge is a sequence flow between two nodes.
type Edge struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Condition string `json:"condition,omitempty"`
	Extra     []Attr `json:"extra,omitempty"`

	source string
	target string
}

func (e *Edge) Source() string { return e.source }
func (e *Edge) Target() string { return e.target }

// Bounds is the bounding box of a diagram shape.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of b.
func (b Bounds) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Point is a diagram waypoint.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape places a node on the diagram. ID may be empty; the serializer
// derives one from the node ID.
type Shape struct {
	ID     string `json:"id,omitempty"`
	Bounds Bounds `json:"bounds"`
}

// DiagramEdge routes a sequence flow on the diagram.
type DiagramEdge struct {
	ID        string  `json:"id,omitempty"`
	Waypoints []Point `json:"waypoints"`
}

// Namespace is a prefix declaration carried over from parsed input.
type Namespace struct {
	Prefix string `json:"prefix"`
	URI    string `json:"uri"`
}
