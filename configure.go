package bpmn

import "strings"

// SetName renames a node or, when no node has that ID, a flow.
func (d *Document) SetName(id, name string) error {
	if n, ok := d.nodes[id]; ok {
		n.Name = name
		return nil
	}
	if e, ok := d.edges[id]; ok {
		e.Name = name
		return nil
	}
	return unknownNode(id)
}

// SetCondition replaces the condition expression of a flow. An empty
// expression removes it.
func (d *Document) SetCondition(edgeID, expr string) error {
	e, ok := d.edges[edgeID]
	if !ok {
		return unknownEdge(edgeID)
	}
	e.Condition = strings.TrimSpace(expr)
	return nil
}

func (d *Document) nodeOf(id string, variants ...Variant) (*Node, error) {
	n, ok := d.nodes[id]
	if !ok {
		return nil, unknownNode(id)
	}
	for _, v := range variants {
		if n.Variant == v {
			return n, nil
		}
	}
	names := make([]string, len(variants))
	for i, v := range variants {
		names[i] = string(v)
	}
	return nil, invalidAttribute(id, "node "+quote(id)+" is a "+string(n.Variant)+", want "+strings.Join(names, " or "))
}

// ConfigureUserTask replaces the attributes of a user task.
func (d *Document) ConfigureUserTask(id string, attrs UserTaskAttrs) error {
	n, err := d.nodeOf(id, UserTask)
	if err != nil {
		return err
	}
	if attrs == (UserTaskAttrs{}) {
		n.UserTask = nil
		return nil
	}
	n.UserTask = &attrs
	return nil
}

// ConfigureDelegate replaces the implementation of a service or send task.
func (d *Document) ConfigureDelegate(id string, attrs DelegateAttrs) error {
	n, err := d.nodeOf(id, ServiceTask, SendTask)
	if err != nil {
		return err
	}
	switch attrs.Kind {
	case ImplClass, ImplDelegateExpression, ImplExpression:
		if strings.TrimSpace(attrs.Value) == "" {
			return invalidAttribute(id, "implementation "+string(attrs.Kind)+" needs a value")
		}
	case "":
		if attrs.Value != "" {
			return invalidAttribute(id, "implementation value given without a kind")
		}
	default:
		return invalidAttribute(id, "unknown implementation kind "+quote(string(attrs.Kind)))
	}
	n.Delegate = &attrs
	return nil
}

// SetRuleDelegate implements a business rule task with a delegate
// expression, dropping any decision reference.
func (d *Document) SetRuleDelegate(id, expr string) error {
	n, err := d.nodeOf(id, BusinessRuleTask)
	if err != nil {
		return err
	}
	expr = strings.TrimSpace(expr)
	if expr == "" {
		n.Rule = nil
		return nil
	}
	n.Rule = &RuleAttrs{DelegateExpression: expr}
	return nil
}

// SetDecisionRef binds a business rule task to a decision table, dropping
// any delegate expression. Binding defaults to "latest" and MapResult to
// "singleEntry".
func (d *Document) SetDecisionRef(id string, ref DecisionRef) error {
	n, err := d.nodeOf(id, BusinessRuleTask)
	if err != nil {
		return err
	}
	if strings.TrimSpace(ref.Ref) == "" {
		return invalidAttribute(id, "decision reference must not be empty")
	}
	if ref.Binding == "" {
		ref.Binding = "latest"
	}
	if ref.MapResult == "" {
		ref.MapResult = "singleEntry"
	}
	n.Rule = &RuleAttrs{Decision: &ref}
	return nil
}

// ConfigureScript sets the format and body of a script task.
func (d *Document) ConfigureScript(id, format, body string) error {
	n, err := d.nodeOf(id, ScriptTask)
	if err != nil {
		return err
	}
	if format == "" && body == "" {
		n.Script = nil
		return nil
	}
	n.Script = &ScriptAttrs{Format: format, Body: body}
	return nil
}

// SetProperty sets an extension property on a node. An empty value
// removes the property.
func (d *Document) SetProperty(id, name, value string) error {
	n, ok := d.nodes[id]
	if !ok {
		return unknownNode(id)
	}
	if name == "" {
		return invalidAttribute(id, "property name must not be empty")
	}
	for i, p := range n.Properties {
		if p.Name != name {
			continue
		}
		if value == "" {
			n.Properties = append(n.Properties[:i], n.Properties[i+1:]...)
		} else {
			n.Properties[i].Value = value
		}
		return nil
	}
	if value != "" {
		n.Properties = append(n.Properties, Property{Name: name, Value: value})
	}
	return nil
}

// Property returns the value of an extension property.
func (n *Node) Property(name string) (string, bool) {
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// ── Building blocks ─────────────────────────────────────

// Connect adds a node of variant v after sourceID and, when targetID is
// not empty, before targetID. The new flows are named after their ends
// when those IDs are free.
func (d *Document) Connect(sourceID string, v Variant, id, name, targetID string) (string, error) {
	if _, ok := d.nodes[sourceID]; !ok {
		return "", unknownNode(sourceID)
	}
	if targetID != "" {
		if _, ok := d.nodes[targetID]; !ok {
			return "", unknownNode(targetID)
		}
	}
	id, err := d.AddNode(v, id, name)
	if err != nil {
		return "", err
	}
	if _, err := d.AddEdge(sourceID, id, d.flowID(sourceID, id), ""); err != nil {
		return "", err
	}
	if targetID != "" {
		if _, err := d.AddEdge(id, targetID, d.flowID(id, targetID), ""); err != nil {
			return "", err
		}
	}
	return id, nil
}

// Branch is one outgoing path of a gateway built by AddGateway.
type Branch struct {
	TargetID  string `json:"target_id"`
	Condition string `json:"condition,omitempty"`
	Default   bool   `json:"default,omitempty"`
}

// AddGateway adds a gateway after sourceID with one outgoing flow per
// branch.
func (d *Document) AddGateway(v Variant, id, name, sourceID string, branches []Branch) (string, error) {
	if !v.IsGateway() {
		return "", invalidAttribute(id, string(v)+" is not a gateway variant")
	}
	if _, ok := d.nodes[sourceID]; !ok {
		return "", unknownNode(sourceID)
	}
	defaults := 0
	for _, b := range branches {
		if _, ok := d.nodes[b.TargetID]; !ok {
			return "", unknownNode(b.TargetID)
		}
		if b.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return "", NewError(ErrInvalidDefaultFlow, "a gateway has at most one default flow", nil, nil)
	}
	if id != "" {
		if _, exists := d.nodes[id]; exists {
			return "", duplicateID("node", id)
		}
	}

	id, err := d.Connect(sourceID, v, id, name, "")
	if err != nil {
		return "", err
	}
	for _, b := range branches {
		fid, err := d.AddEdge(id, b.TargetID, d.flowID(id, b.TargetID), b.Condition)
		if err != nil {
			return "", err
		}
		if b.Default {
			d.nodes[id].defaultFlow = fid
		}
	}
	return id, nil
}

func (d *Document) flowID(sourceID, targetID string) string {
	id := "Flow_" + sourceID + "_" + targetID
	if _, taken := d.edges[id]; taken {
		return d.newEdgeID()
	}
	return id
}
