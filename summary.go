package bpmn

// FlowSummary is a flow seen from one of its ends.
type FlowSummary struct {
	ID         string `json:"id"`
	Expression string `json:"expression,omitempty"`
}

// TaskSummary lists a task with the attributes a designer edits.
type TaskSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name,omitempty"`
	Type     Variant `json:"type"`
	FormKey  string  `json:"form_key,omitempty"`
	Delegate string  `json:"delegate_expression,omitempty"`
	// Implementation is "delegateExpression" or "DMN" for business rule
	// tasks.
	Implementation string        `json:"dmn_implementation,omitempty"`
	Decision       *DecisionRef  `json:"decision,omitempty"`
	Incoming       []FlowSummary `json:"incoming"`
	Outgoing       []FlowSummary `json:"outgoing"`
}

// GatewaySummary lists a gateway with its flows.
type GatewaySummary struct {
	ID          string        `json:"id"`
	Name        string        `json:"name,omitempty"`
	Type        Variant       `json:"type"`
	Direction   string        `json:"gateway_direction"`
	DefaultFlow string        `json:"default_flow,omitempty"`
	Incoming    []FlowSummary `json:"incoming"`
	Outgoing    []FlowSummary `json:"outgoing"`
}

// Summary is the task and gateway overview of a document.
type Summary struct {
	Tasks    []TaskSummary    `json:"tasks"`
	Gateways []GatewaySummary `json:"gateways"`
}

// Summarize lists the user, service, send and business rule tasks and
// the gateways of d, in node order.
func Summarize(d *Document) Summary {
	s := Summary{Tasks: []TaskSummary{}, Gateways: []GatewaySummary{}}
	for _, id := range d.nodeOrder {
		n := d.nodes[id]
		switch n.Variant {
		case UserTask, ServiceTask, SendTask, BusinessRuleTask:
			s.Tasks = append(s.Tasks, summarizeTask(d, n))
		case ExclusiveGateway, ParallelGateway, InclusiveGateway:
			s.Gateways = append(s.Gateways, GatewaySummary{
				ID:          n.ID,
				Name:        n.Name,
				Type:        n.Variant,
				Direction:   direction(n.Variant),
				DefaultFlow: n.defaultFlow,
				Incoming:    flows(d, n.incoming),
				Outgoing:    flows(d, n.outgoing),
			})
		}
	}
	return s
}

func summarizeTask(d *Document, n *Node) TaskSummary {
	t := TaskSummary{
		ID:       n.ID,
		Name:     n.Name,
		Type:     n.Variant,
		Incoming: flows(d, n.incoming),
		Outgoing: flows(d, n.outgoing),
	}
	switch n.Variant {
	case UserTask:
		t.FormKey = n.userTask().FormKey
	case ServiceTask, SendTask:
		if da := n.delegate(); da.Kind == ImplDelegateExpression {
			t.Delegate = da.Value
		}
	case BusinessRuleTask:
		r := n.rule()
		if r.Decision != nil {
			ref := *r.Decision
			t.Implementation = "DMN"
			t.Decision = &ref
		} else {
			t.Implementation = "delegateExpression"
			t.Delegate = r.DelegateExpression
		}
	}
	return t
}

func direction(v Variant) string {
	switch v {
	case ParallelGateway:
		return "Parallel"
	case InclusiveGateway:
		return "Inclusive"
	default:
		return "Diverging"
	}
}

func flows(d *Document, ids []string) []FlowSummary {
	out := make([]FlowSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, FlowSummary{ID: id, Expression: d.edges[id].Condition})
	}
	return out
}
