package dmn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/bpmn"
)

func tableModel(t *testing.T) *Model {
	t.Helper()
	m, err := New("approve", "Approve order")
	require.NoError(t, err)
	m.AddInput("Amount", "amount", "double")
	m.AddOutput("Reason", "reason", "string")
	_, err = m.AddRule("large & risky", []string{`"gold"`, "> 1000"}, []string{`"manual"`, `"too <big>"`})
	require.NoError(t, err)
	return m
}

func TestSerializeRoundTrip(t *testing.T) {
	m := tableModel(t)

	out, err := Serialize(m)
	require.NoError(t, err)
	assert.Contains(t, out, `xmlns="`+NSModel+`"`)
	assert.Contains(t, out, `xmlns:dmndi="`+NSDMNDI+`"`)
	assert.Contains(t, out, `hitPolicy="FIRST"`)

	back, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, m, back)

	again, err := Serialize(back)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

const modelerOutput = `<?xml version="1.0" encoding="UTF-8"?>
<dmn:definitions xmlns:dmn="http://www.omg.org/spec/DMN/20151101/dmn.xsd" xmlns:acme="urn:acme" id="defs" name="Risk" namespace="http://camunda.org/schema/1.0/dmn">
  <dmn:decision id="risk" name="Risk">
    <dmn:decisionTable id="table">
      <dmn:input id="in1" label="Score">
        <dmn:inputExpression id="expr1" typeRef="integer"><dmn:text>score</dmn:text></dmn:inputExpression>
      </dmn:input>
      <dmn:output id="out1" name="level" typeRef="string"/>
      <dmn:rule id="r1">
        <dmn:description>low</dmn:description>
        <dmn:inputEntry id="ie1"><dmn:text>&lt; 50</dmn:text></dmn:inputEntry>
        <dmn:outputEntry id="oe1"><dmn:text>"low"</dmn:text></dmn:outputEntry>
      </dmn:rule>
    </dmn:decisionTable>
  </dmn:decision>
  <acme:note id="n1">kept</acme:note>
</dmn:definitions>`

func TestParseOlderNamespace(t *testing.T) {
	m, err := Parse(modelerOutput)
	require.NoError(t, err)

	assert.Equal(t, "defs", m.ID)
	assert.Equal(t, Unique, m.Decision.Table.HitPolicy)
	assert.Equal(t, Input{ID: "in1", Label: "Score", ExpressionID: "expr1", TypeRef: "integer", Expression: "score"}, m.Decision.Table.Inputs[0])
	r := m.Decision.Table.Rules[0]
	assert.Equal(t, "low", r.Description)
	assert.Equal(t, "< 50", r.Inputs[0].Text)
	assert.Equal(t, []Namespace{{Prefix: "acme", URI: "urn:acme"}}, m.Namespaces)
	require.Len(t, m.Foreign, 1)

	out, err := Serialize(m)
	require.NoError(t, err)
	assert.Contains(t, out, `xmlns:acme="urn:acme"`)
	assert.Contains(t, out, `<acme:note id="n1">kept</acme:note>`)

	back, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, m.Decision, back.Decision)
	again, err := Serialize(back)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestParseMalformed(t *testing.T) {
	cases := map[string]string{
		"not xml":     "<definitions",
		"wrong root":  `<process xmlns="` + NSModel + `"/>`,
		"no decision": `<definitions xmlns="` + NSModel + `" id="d"/>`,
		"no decision id": `<definitions xmlns="` + NSModel + `" id="d"><decision>` +
			`<decisionTable id="t"><output id="o"/></decisionTable></decision></definitions>`,
		"no table id": `<definitions xmlns="` + NSModel + `" id="d"><decision id="x">` +
			`<decisionTable><output id="o"/></decisionTable></decision></definitions>`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(text)
			require.Error(t, err)
			assert.True(t, bpmn.IsCode(err, bpmn.ErrCodeMalformedDocument))
		})
	}
}

func TestParseKeepsInvalidTables(t *testing.T) {
	cases := map[string]string{
		"bad hit policy": `<definitions xmlns="` + NSModel + `" id="d"><decision id="x">` +
			`<decisionTable id="t" hitPolicy="MOST"><output id="o"/></decisionTable></decision></definitions>`,
		"rule misaligned": `<definitions xmlns="` + NSModel + `" id="d"><decision id="x">` +
			`<decisionTable id="t"><output id="o"/><rule id="r"/></decisionTable></decision></definitions>`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			m, err := Parse(text)
			require.NoError(t, err)
			err = Validate(m)
			require.Error(t, err)
			assert.True(t, bpmn.IsCode(err, bpmn.ErrCodeInvalidAttribute))
		})
	}
}

func TestSerializeRequiresDecisionID(t *testing.T) {
	_, err := Serialize(&Model{})
	assert.True(t, bpmn.IsCode(err, bpmn.ErrCodeInvalidAttribute))
}

func TestSerializeEscapesText(t *testing.T) {
	out, err := Serialize(tableModel(t))
	require.NoError(t, err)
	assert.False(t, strings.Contains(out, "<big>"))
}

const drdInput = `<definitions xmlns="` + NSModel + `" id="defs" name="DRD" namespace="urn:drd">
  <inputData id="amount" name="Amount"/>
  <decision id="approve" name="Approve">
    <variable id="approve_var" name="approve"/>
    <informationRequirement id="req1"><requiredInput href="#amount"/></informationRequirement>
    <decisionTable id="table">
      <output id="out1" name="ok" typeRef="boolean"/>
    </decisionTable>
  </decision>
  <decision id="other" name="Other"/>
</definitions>`

func TestSerializeKeepsChildOrder(t *testing.T) {
	m, err := Parse(drdInput)
	require.NoError(t, err)
	require.Len(t, m.LeadingForeign, 1)
	require.Len(t, m.Foreign, 1)
	require.Len(t, m.Decision.LeadingForeign, 2)
	assert.Empty(t, m.Decision.Foreign)

	out, err := Serialize(m)
	require.NoError(t, err)
	last := -1
	for _, tag := range []string{`<inputData`, `<decision id="approve"`, `<variable`, `<informationRequirement`, `<decisionTable`, `<decision id="other"`} {
		at := strings.Index(out, tag)
		require.Greater(t, at, last, tag)
		last = at
	}

	back, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestNormalizeMatchesSerializedDefaults(t *testing.T) {
	m := tableModel(t)
	m.Decision.Table.HitPolicy = ""
	m.Decision.Table.Inputs[1].ExpressionID = ""

	out, err := Serialize(m)
	require.NoError(t, err)
	assert.Contains(t, out, `hitPolicy="UNIQUE"`)
	back, err := Parse(out)
	require.NoError(t, err)
	assert.NotEqual(t, m, back)

	m.Normalize()
	assert.Equal(t, Unique, m.Decision.Table.HitPolicy)
	assert.Equal(t, m.Decision.Table.Inputs[1].ID, strings.Replace(m.Decision.Table.Inputs[1].ExpressionID, "inputExpression", "input", 1))
	assert.Equal(t, m, back)
}
