package bpmn

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/meikuraledutech/bpmn/form"
)

// DecisionTaskName is the name of the user tasks AutoFixer inserts.
const DecisionTaskName = "Gateway decision"

// FormProperty is the extension property holding the inserted task's form
// as JSON.
const FormProperty = "form"

// AutoFixer repairs gateway violations by inserting a user task that asks
// which outgoing flow to take.
type AutoFixer struct {
	// Forms receives the generated forms. When nil, forms are only
	// returned in the report.
	Forms  FormStore
	Layout Layout
	Logger *slog.Logger
}

// Fix describes one repaired gateway.
type Fix struct {
	GatewayID   string     `json:"gateway_id"`
	UserTaskID  string     `json:"user_task_id"`
	FormKey     string     `json:"form_key"`
	Form        *form.Form `json:"form"`
	RemovedFlow string     `json:"removed_flow"`
	ToTask      string     `json:"to_task"`
	ToGateway   string     `json:"to_gateway"`
	// ClearedDefault is the default flow the gateway lost, if it had one.
	ClearedDefault string `json:"cleared_default,omitempty"`
}

// Failure is a gateway that could not be repaired.
type Failure struct {
	GatewayID string `json:"gateway_id"`
	Reason    string `json:"reason"`
	Err       error  `json:"-"`
}

// FixReport lists the outcome per gateway, in the order the violations
// were found.
type FixReport struct {
	Fixed  []Fix     `json:"fixed"`
	Failed []Failure `json:"failed"`
}

// Err returns an AUTOFIX_PARTIAL_FAILURE error when any gateway failed.
func (r *FixReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	ids := make([]string, len(r.Failed))
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		ids[i] = f.GatewayID
		errs[i] = f.Err
	}
	return NewError(ErrAutoFixPartialFailure,
		"could not fix gateways: "+strings.Join(ids, ", "), errors.Join(errs...),
		map[string]any{"gateways": ids, "fixed": len(r.Fixed)})
}

func (f *AutoFixer) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

// Fix validates d and repairs every violation in place. Each gateway is
// repaired completely or not at all; a failure is recorded in the report
// and the remaining gateways are still attempted. The returned error is
// the report's Err.
func (f *AutoFixer) Fix(ctx context.Context, d *Document) (*FixReport, error) {
	report := &FixReport{}
	for _, v := range (&Validator{Logger: f.Logger}).Validate(d) {
		fix, err := f.fixGateway(ctx, d, v.GatewayID)
		if err != nil {
			f.logger().Warn("bpmn: gateway fix failed", "gateway", v.GatewayID, "error", err)
			report.Failed = append(report.Failed, Failure{GatewayID: v.GatewayID, Reason: err.Error(), Err: err})
			continue
		}
		f.logger().Info("bpmn: gateway fixed",
			"gateway", fix.GatewayID, "user_task", fix.UserTaskID, "form_key", fix.FormKey)
		report.Fixed = append(report.Fixed, fix)
	}
	return report, report.Err()
}

func (f *AutoFixer) fixGateway(ctx context.Context, d *Document, gatewayID string) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, err
	}
	snapshot := d.Clone()
	fix, err := f.rewrite(d, gatewayID)
	if err == nil && f.Forms != nil {
		err = f.Forms.SaveForm(ctx, fix.FormKey, fix.Form)
	}
	if err != nil {
		*d = *snapshot
		return Fix{}, err
	}
	return fix, nil
}

// rewrite replaces the single flow s -> g with s -> u -> g, where u is a
// new user task whose form chooses among g's outgoing flows.
func (f *AutoFixer) rewrite(d *Document, gatewayID string) (Fix, error) {
	g, ok := d.nodes[gatewayID]
	if !ok {
		return Fix{}, unknownNode(gatewayID)
	}
	if !g.Variant.IsGateway() {
		return Fix{}, invalidAttribute(gatewayID, "node "+quote(gatewayID)+" is not a gateway")
	}
	if len(g.incoming) != 1 {
		return Fix{}, invalidAttribute(gatewayID, "gateway "+quote(gatewayID)+" does not have exactly one incoming flow")
	}
	if len(g.outgoing) == 0 {
		return Fix{}, invalidAttribute(gatewayID, "gateway "+quote(gatewayID)+" has no outgoing flow to decide on")
	}
	in := d.edges[g.incoming[0]]
	sourceID := in.source
	if sourceID == gatewayID {
		return Fix{}, invalidAttribute(gatewayID, "gateway "+quote(gatewayID)+" is only reached through its own loop flow "+quote(in.ID))
	}
	if _, ok := d.nodes[sourceID]; !ok {
		return Fix{}, unknownNode(sourceID)
	}

	formKey, err := form.NewKey()
	if err != nil {
		return Fix{}, err
	}
	outgoing := g.Outgoing()
	options := make([]form.Option, 0, len(outgoing))
	for _, eid := range outgoing {
		e, ok := d.edges[eid]
		if !ok {
			return Fix{}, unknownEdge(eid)
		}
		target, ok := d.nodes[e.target]
		if !ok {
			return Fix{}, unknownNode(e.target)
		}
		options = append(options, form.Option{Value: eid, Label: "Go to " + or(target.Name, target.ID)})
	}
	fm := form.Decision(formKey, options)
	data, err := fm.Marshal()
	if err != nil {
		return Fix{}, err
	}

	fix := Fix{GatewayID: gatewayID, FormKey: formKey, Form: fm, RemovedFlow: in.ID, ClearedDefault: g.defaultFlow}
	for _, eid := range outgoing {
		d.edges[eid].Condition = form.Condition(eid)
	}
	g.defaultFlow = ""

	if err := d.RemoveEdge(in.ID); err != nil {
		return Fix{}, err
	}
	if fix.UserTaskID, err = d.AddNode(UserTask, "", DecisionTaskName); err != nil {
		return Fix{}, err
	}
	task := d.nodes[fix.UserTaskID]
	task.UserTask = &UserTaskAttrs{FormKey: formKey}
	task.Properties = []Property{{Name: FormProperty, Value: string(data)}}
	if fix.ToTask, err = d.AddEdge(sourceID, fix.UserTaskID, "", ""); err != nil {
		return Fix{}, err
	}
	if fix.ToGateway, err = d.AddEdge(fix.UserTaskID, gatewayID, "", ""); err != nil {
		return Fix{}, err
	}

	src, okSrc := d.shapes[sourceID]
	gw, okGw := d.shapes[gatewayID]
	if okSrc && okGw {
		a, b := src.Bounds.Center(), gw.Bounds.Center()
		tb := f.Layout.CenteredAt(UserTask, Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2})
		d.shapes[fix.UserTaskID] = Shape{Bounds: tb}
		d.diagramEdges[fix.ToTask] = DiagramEdge{Waypoints: Connect(src.Bounds, tb)}
		d.diagramEdges[fix.ToGateway] = DiagramEdge{Waypoints: Connect(tb, gw.Bounds)}
	}
	return fix, nil
}
