// Package dmn models single-table DMN decisions: building, checking and
// converting them to and from DMN 1.3 XML. Evaluating a table is left to
// the engine.
package dmn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/meikuraledutech/bpmn"
)

// HitPolicy decides which matching rules contribute to the result.
type HitPolicy string

const (
	Unique      HitPolicy = "UNIQUE"
	First       HitPolicy = "FIRST"
	Priority    HitPolicy = "PRIORITY"
	Any         HitPolicy = "ANY"
	Collect     HitPolicy = "COLLECT"
	RuleOrder   HitPolicy = "RULE ORDER"
	OutputOrder HitPolicy = "OUTPUT ORDER"
)

func (h HitPolicy) Valid() bool {
	switch h {
	case Unique, First, Priority, Any, Collect, RuleOrder, OutputOrder:
		return true
	}
	return false
}

// Input is an input column.
type Input struct {
	ID           string `json:"id" validate:"required"`
	Label        string `json:"label,omitempty"`
	ExpressionID string `json:"expression_id,omitempty"`
	TypeRef      string `json:"type_ref,omitempty" validate:"omitempty,typeref"`
	Expression   string `json:"expression"`
}

// Output is an output column.
type Output struct {
	ID      string `json:"id" validate:"required"`
	Label   string `json:"label,omitempty"`
	Name    string `json:"name,omitempty"`
	TypeRef string `json:"type_ref,omitempty" validate:"omitempty,typeref"`
}

// Entry is one cell of a rule.
type Entry struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

// Rule is a row of the table. Entries correspond by position to the
// table's inputs and outputs.
type Rule struct {
	ID          string  `json:"id" validate:"required"`
	Description string  `json:"description,omitempty"`
	Inputs      []Entry `json:"input_entries"`
	Outputs     []Entry `json:"output_entries"`
}

// Table is a decision table.
type Table struct {
	ID          string    `json:"id" validate:"required"`
	HitPolicy   HitPolicy `json:"hit_policy" validate:"hitpolicy"`
	Aggregation string    `json:"aggregation,omitempty" validate:"omitempty,oneof=SUM MIN MAX COUNT"`
	Inputs      []Input   `json:"inputs" validate:"dive"`
	Outputs     []Output  `json:"outputs" validate:"min=1,dive"`
	Rules       []Rule    `json:"rules" validate:"dive"`
}

// Decision is a named decision implemented by one table.
type Decision struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name,omitempty"`
	Table Table  `json:"table"`
	// LeadingForeign holds raw child elements written before the table,
	// such as requirements and variables. Foreign holds those after it.
	LeadingForeign []string `json:"leading_foreign,omitempty"`
	Foreign        []string `json:"foreign,omitempty"`
}

// Namespace is a prefix declaration carried over from parsed input.
type Namespace struct {
	Prefix string `json:"prefix"`
	URI    string `json:"uri"`
}

// Model is a DMN definitions document holding one decision.
type Model struct {
	ID        string   `json:"id" validate:"required"`
	Name      string   `json:"name,omitempty"`
	Namespace string   `json:"namespace,omitempty"`
	Decision  Decision `json:"decision"`

	Namespaces []Namespace `json:"namespaces,omitempty"`
	// LeadingForeign holds raw definitions children that precede the
	// decision, such as item definitions or input data.
	LeadingForeign []string `json:"leading_foreign,omitempty"`
	// Foreign holds raw definitions children after the decision, such as
	// the DMNDI section or further decisions.
	Foreign []string `json:"foreign,omitempty"`
}

// Normalize fills the fields Serialize would otherwise default: an empty
// hit policy becomes UNIQUE and an input without an expression ID gets
// one derived from its own ID. A normalized model survives a round trip
// through Serialize and Parse unchanged.
func (m *Model) Normalize() {
	t := &m.Decision.Table
	t.HitPolicy = t.hitPolicy()
	for i := range t.Inputs {
		t.Inputs[i].ExpressionID = t.Inputs[i].expressionID()
	}
}

func (t *Table) hitPolicy() HitPolicy {
	if t.HitPolicy == "" {
		return Unique
	}
	return t.HitPolicy
}

func (in Input) expressionID() string {
	if in.ExpressionID != "" {
		return in.ExpressionID
	}
	return strings.Replace(in.ID, "input", "inputExpression", 1)
}

// TypeRefs lists the accepted column types.
var TypeRefs = []string{"string", "boolean", "integer", "long", "double", "number", "date", "dateTime"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hitpolicy", func(fl validator.FieldLevel) bool {
		return HitPolicy(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("typeref", func(fl validator.FieldLevel) bool {
		for _, t := range TypeRefs {
			if t == fl.Field().String() {
				return true
			}
		}
		return false
	})
	return v
}

// DecisionKey derives a decision key from a display name.
func DecisionKey(name string) string {
	base := bpmn.Slug(name)
	if base == "" || (base[0] >= '0' && base[0] <= '9') {
		base = strings.TrimSuffix("decision_"+base, "_")
	}
	return base + "_" + bpmn.ShortID()
}

// New returns a decision with one string input, one string output and an
// example rule, using the FIRST hit policy. An empty id is generated.
func New(id, name string) (*Model, error) {
	if strings.TrimSpace(name) == "" {
		return nil, bpmn.NewError(bpmn.ErrEmptyName, "decision name must not be empty", nil, nil)
	}
	if id == "" {
		id = bpmn.NewID("Decision")
	}
	return &Model{
		ID:        bpmn.NewID("Definitions"),
		Name:      "DMN Definition",
		Namespace: NSCamunda,
		Decision: Decision{
			ID:   id,
			Name: name,
			Table: Table{
				ID:        bpmn.NewID("decisionTable"),
				HitPolicy: First,
				Inputs: []Input{{
					ID:           "input_1",
					ExpressionID: "inputExpression_1",
					TypeRef:      "string",
					Expression:   "input1",
				}},
				Outputs: []Output{{ID: "output_1", TypeRef: "string"}},
				Rules: []Rule{{
					ID:      "rule_1",
					Inputs:  []Entry{{ID: "inputEntry_1", Text: `"value"`}},
					Outputs: []Entry{{ID: "outputEntry_1", Text: `"result"`}},
				}},
			},
		},
	}, nil
}

// ids returns every element ID in the table.
func (t *Table) ids() map[string]int {
	seen := map[string]int{t.ID: 1}
	add := func(id string) {
		if id != "" {
			seen[id]++
		}
	}
	for _, in := range t.Inputs {
		add(in.ID)
		add(in.ExpressionID)
	}
	for _, out := range t.Outputs {
		add(out.ID)
	}
	for _, r := range t.Rules {
		add(r.ID)
		for _, e := range r.Inputs {
			add(e.ID)
		}
		for _, e := range r.Outputs {
			add(e.ID)
		}
	}
	return seen
}

func nextID(taken map[string]int, prefix string) string {
	for i := 1; ; i++ {
		id := prefix + "_" + strconv.Itoa(i)
		if taken[id] == 0 {
			taken[id] = 1
			return id
		}
	}
}

// AddInput appends an input column. Every rule gets a "-" entry for it,
// which matches any value.
func (m *Model) AddInput(label, expression, typeRef string) string {
	t := &m.Decision.Table
	taken := t.ids()
	in := Input{
		ID:           nextID(taken, "input"),
		Label:        label,
		ExpressionID: nextID(taken, "inputExpression"),
		TypeRef:      typeRef,
		Expression:   expression,
	}
	t.Inputs = append(t.Inputs, in)
	for i := range t.Rules {
		t.Rules[i].Inputs = append(t.Rules[i].Inputs, Entry{ID: nextID(taken, "inputEntry"), Text: "-"})
	}
	return in.ID
}

// AddOutput appends an output column. Every rule gets an empty entry.
func (m *Model) AddOutput(label, name, typeRef string) string {
	t := &m.Decision.Table
	taken := t.ids()
	out := Output{ID: nextID(taken, "output"), Label: label, Name: name, TypeRef: typeRef}
	t.Outputs = append(t.Outputs, out)
	for i := range t.Rules {
		t.Rules[i].Outputs = append(t.Rules[i].Outputs, Entry{ID: nextID(taken, "outputEntry")})
	}
	return out.ID
}

// AddRule appends a rule with one entry per input and output column.
func (m *Model) AddRule(description string, inputs, outputs []string) (string, error) {
	t := &m.Decision.Table
	if len(inputs) != len(t.Inputs) || len(outputs) != len(t.Outputs) {
		return "", bpmn.NewError(bpmn.ErrInvalidAttribute,
			fmt.Sprintf("rule has %d input and %d output entries, table has %d inputs and %d outputs",
				len(inputs), len(outputs), len(t.Inputs), len(t.Outputs)), nil, nil)
	}
	taken := t.ids()
	r := Rule{ID: nextID(taken, "rule"), Description: description}
	for _, text := range inputs {
		r.Inputs = append(r.Inputs, Entry{ID: nextID(taken, "inputEntry"), Text: text})
	}
	for _, text := range outputs {
		r.Outputs = append(r.Outputs, Entry{ID: nextID(taken, "outputEntry"), Text: text})
	}
	t.Rules = append(t.Rules, r)
	return r.ID, nil
}

// Validate checks the shape of the table: required IDs, known hit policy
// and column types, unique IDs and one entry per column in every rule.
// All problems are reported in the error's "problems" metadata.
func Validate(m *Model) error {
	var problems []string
	if err := validate.Struct(m); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}
	t := &m.Decision.Table
	for _, r := range t.Rules {
		if len(r.Inputs) != len(t.Inputs) {
			problems = append(problems, fmt.Sprintf("rule %q has %d input entries, want %d", r.ID, len(r.Inputs), len(t.Inputs)))
		}
		if len(r.Outputs) != len(t.Outputs) {
			problems = append(problems, fmt.Sprintf("rule %q has %d output entries, want %d", r.ID, len(r.Outputs), len(t.Outputs)))
		}
	}
	if t.Aggregation != "" && t.HitPolicy != Collect {
		problems = append(problems, "aggregation is only allowed with the COLLECT hit policy")
	}
	ids := t.ids()
	ids[m.Decision.ID]++
	for id, n := range ids {
		if n > 1 && id != "" {
			problems = append(problems, fmt.Sprintf("id %q is used %d times", id, n))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return bpmn.NewError(bpmn.ErrInvalidAttribute,
		"invalid decision table: "+strings.Join(problems, "; "), nil,
		map[string]any{"problems": problems, "decision_id": m.Decision.ID})
}
