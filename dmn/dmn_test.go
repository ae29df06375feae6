package dmn

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/bpmn"
)

func TestNewDecision(t *testing.T) {
	m, err := New("approve_order", "Approve order")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(m.ID, "Definitions_"))
	assert.Equal(t, "DMN Definition", m.Name)
	assert.Equal(t, NSCamunda, m.Namespace)
	assert.Equal(t, "approve_order", m.Decision.ID)

	tbl := m.Decision.Table
	assert.True(t, strings.HasPrefix(tbl.ID, "decisionTable_"))
	assert.Equal(t, First, tbl.HitPolicy)
	require.Len(t, tbl.Inputs, 1)
	assert.Equal(t, Input{ID: "input_1", ExpressionID: "inputExpression_1", TypeRef: "string", Expression: "input1"}, tbl.Inputs[0])
	require.Len(t, tbl.Outputs, 1)
	assert.Equal(t, "output_1", tbl.Outputs[0].ID)
	require.Len(t, tbl.Rules, 1)
	assert.Equal(t, `"value"`, tbl.Rules[0].Inputs[0].Text)
	assert.Equal(t, `"result"`, tbl.Rules[0].Outputs[0].Text)
	assert.NoError(t, Validate(m))
}

func TestNewRejectsEmptyName(t *testing.T) {
	_, err := New("x", "  ")
	assert.True(t, bpmn.IsCode(err, bpmn.ErrCodeEmptyName))
}

func TestNewGeneratesID(t *testing.T) {
	m, err := New("", "Risk")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(m.Decision.ID, "Decision_"))
}

func TestDecisionKey(t *testing.T) {
	k := DecisionKey("Approve  Order!")
	assert.True(t, strings.HasPrefix(k, "approve_order_"))
	assert.Len(t, k, len("approve_order_")+8)

	assert.True(t, strings.HasPrefix(DecisionKey("42"), "decision_42_"))
	assert.True(t, strings.HasPrefix(DecisionKey("!!"), "decision_"))
}

func TestAddColumnsKeepsRulesAligned(t *testing.T) {
	m, err := New("d", "D")
	require.NoError(t, err)

	in := m.AddInput("Amount", "amount", "double")
	out := m.AddOutput("Approved", "approved", "boolean")
	assert.Equal(t, "input_2", in)
	assert.Equal(t, "output_2", out)

	r := m.Decision.Table.Rules[0]
	require.Len(t, r.Inputs, 2)
	assert.Equal(t, Entry{ID: "inputEntry_2", Text: "-"}, r.Inputs[1])
	require.Len(t, r.Outputs, 2)
	assert.Equal(t, "outputEntry_2", r.Outputs[1].ID)
	assert.Equal(t, "inputExpression_2", m.Decision.Table.Inputs[1].ExpressionID)

	id, err := m.AddRule("big orders", []string{`"gold"`, "> 1000"}, []string{`"manual"`, "false"})
	require.NoError(t, err)
	assert.Equal(t, "rule_2", id)
	assert.NoError(t, Validate(m))

	_, err = m.AddRule("", []string{"-"}, []string{"x", "y"})
	assert.True(t, bpmn.IsCode(err, bpmn.ErrCodeInvalidAttribute))
	assert.Len(t, m.Decision.Table.Rules, 2)
}

func problems(t *testing.T, err error) string {
	t.Helper()
	var ge *apperrors.Error
	require.True(t, errors.As(err, &ge))
	list, ok := ge.Metadata["problems"].([]string)
	require.True(t, ok)
	return strings.Join(list, "\n")
}

func TestValidateProblems(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Model)
		want   string
	}{
		{"unknown hit policy", func(m *Model) { m.Decision.Table.HitPolicy = "SOME" }, "HitPolicy"},
		{"unknown type", func(m *Model) { m.Decision.Table.Inputs[0].TypeRef = "blob" }, "TypeRef"},
		{"missing output", func(m *Model) { m.Decision.Table.Outputs = nil; m.Decision.Table.Rules = nil }, "Outputs"},
		{"short rule", func(m *Model) { m.Decision.Table.Rules[0].Inputs = nil }, "input entries"},
		{"duplicate id", func(m *Model) { m.Decision.Table.Rules[0].ID = "input_1" }, `"input_1" is used 2 times`},
		{"aggregation without collect", func(m *Model) { m.Decision.Table.Aggregation = "SUM" }, "aggregation"},
		{"missing rule id", func(m *Model) { m.Decision.Table.Rules[0].ID = "" }, "Rules[0].ID"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := New("d", "D")
			require.NoError(t, err)
			tc.mutate(m)
			err = Validate(m)
			require.Error(t, err)
			assert.True(t, bpmn.IsCode(err, bpmn.ErrCodeInvalidAttribute))
			assert.Contains(t, problems(t, err), tc.want)
		})
	}
}

func TestCollectAggregation(t *testing.T) {
	m, err := New("d", "D")
	require.NoError(t, err)
	m.Decision.Table.HitPolicy = Collect
	m.Decision.Table.Aggregation = "SUM"
	assert.NoError(t, Validate(m))
}
