package bpmn

import (
	"fmt"
	"log/slog"
	"strings"
)

// Violation is a broken structural rule at one gateway.
type Violation struct {
	GatewayID string `json:"gateway_id"`
	Reason    string `json:"reason"`
}

// Validator checks the structural rules of a document without changing it.
type Validator struct {
	Logger *slog.Logger
}

// Validate checks d with a default Validator.
func Validate(d *Document) []Violation {
	return (&Validator{}).Validate(d)
}

// Validate returns the violations of d in node order. An empty result
// means d is valid.
//
// A gateway with fewer than two incoming flows must be reached from a
// user task or business rule task, so a decision variable exists to
// branch on. Gateways where two or more paths converge are exempt, and a
// gateway with no incoming flow has nothing to check.
func (v *Validator) Validate(d *Document) []Violation {
	logger := v.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var out []Violation
	for _, id := range d.nodeOrder {
		g := d.nodes[id]
		if !g.Variant.IsGateway() || len(g.incoming) >= 2 {
			continue
		}
		if len(g.incoming) == 0 {
			logger.Debug("bpmn: gateway has no incoming flow", "gateway", id)
			continue
		}
		in := d.edges[g.incoming[0]]
		src := d.nodes[in.source]
		if src.Variant == UserTask || src.Variant == BusinessRuleTask {
			continue
		}
		out = append(out, Violation{
			GatewayID: id,
			Reason: fmt.Sprintf("gateway %q has a single incoming flow %q from %s %q; it must come from a user task or business rule task",
				id, in.ID, src.Variant, src.ID),
		})
	}
	return out
}

// Check validates d and returns a VALIDATION_VIOLATION error carrying the
// violations when there are any.
func Check(d *Document) error {
	vs := Validate(d)
	if len(vs) == 0 {
		return nil
	}
	ids := make([]string, len(vs))
	for i, v := range vs {
		ids[i] = v.GatewayID
	}
	return NewError(ErrValidationViolation,
		"gateways without a prior decision: "+strings.Join(ids, ", "), nil,
		map[string]any{"violations": vs})
}
