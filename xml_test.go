package bpmn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// richDocument exercises every attribute the codec models.
func richDocument(t *testing.T) *Document {
	t.Helper()
	d, err := NewDocument("Order Handling")
	require.NoError(t, err)
	start, end := d.Nodes()[0].ID, d.Nodes()[1].ID
	first := d.Edges()[0].ID
	require.NoError(t, d.RemoveEdge(first))

	_, err = d.Connect(start, UserTask, "review", "Review", "")
	require.NoError(t, err)
	require.NoError(t, d.ConfigureUserTask("review", UserTaskAttrs{
		FormKey: "Form_review", Assignee: "${initiator}", CandidateGroups: "sales,ops",
	}))
	require.NoError(t, d.SetProperty("review", "priority", "high"))

	_, err = d.AddNode(ServiceTask, "charge", "Charge card")
	require.NoError(t, err)
	require.NoError(t, d.ConfigureDelegate("charge", DelegateAttrs{
		Kind: ImplClass, Value: "com.acme.Charge", AsyncBefore: true, Exclusive: false,
	}))
	_, err = d.AddNode(BusinessRuleTask, "risk", "Assess risk")
	require.NoError(t, err)
	require.NoError(t, d.SetDecisionRef("risk", DecisionRef{Ref: "risk_table", ResultVariable: "risk"}))
	_, err = d.AddNode(ScriptTask, "calc", "Compute total")
	require.NoError(t, err)
	require.NoError(t, d.ConfigureScript("calc", "javascript", "total = a < b && b > 0;"))
	n, _ := d.Node("calc")
	n.Documentation = "Adds up the order lines & taxes."

	_, err = d.AddGateway(ExclusiveGateway, "ok", "Approved?", "review", []Branch{
		{TargetID: "charge", Condition: "${approved == 'yes'}"},
		{TargetID: "risk", Default: true},
	})
	require.NoError(t, err)
	_, err = d.AddEdge("charge", "calc", "", "")
	require.NoError(t, err)
	_, err = d.AddEdge("risk", end, "", "")
	require.NoError(t, err)
	_, err = d.AddEdge("calc", end, "done", "")
	require.NoError(t, err)
	require.NoError(t, d.SetName("done", "finished"))
	return d
}

func TestSerializeRoundTrip(t *testing.T) {
	d := richDocument(t)

	text, err := Serialize(d)
	require.NoError(t, err)
	back, err := Parse(text)
	require.NoError(t, err)
	assert.True(t, d.Equal(back))

	again, err := Serialize(back)
	require.NoError(t, err)
	assert.Equal(t, text, again)

	charge, _ := back.Node("charge")
	require.NotNil(t, charge.Delegate)
	assert.False(t, charge.Delegate.Exclusive)
	assert.True(t, charge.Delegate.AsyncBefore)
	calc, _ := back.Node("calc")
	assert.Equal(t, "total = a < b && b > 0;", calc.Script.Body)
	ok, _ := back.Node("ok")
	assert.Equal(t, "Flow_ok_risk", ok.DefaultFlow())
}

func TestSerializeKeepsWhitespaceText(t *testing.T) {
	d := New("p", "Blank")
	_, err := d.AddNode(ScriptTask, "calc", "")
	require.NoError(t, err)
	require.NoError(t, d.ConfigureScript("calc", "groovy", "\n  "))
	n, _ := d.Node("calc")
	n.Documentation = "   "

	text, err := Serialize(d)
	require.NoError(t, err)
	back, err := Parse(text)
	require.NoError(t, err)
	calc, _ := back.Node("calc")
	assert.Equal(t, "   ", calc.Documentation)
	require.NotNil(t, calc.Script)
	assert.Equal(t, "\n  ", calc.Script.Body)
	assert.True(t, d.Equal(back))
}

func TestSerializeIsDeterministic(t *testing.T) {
	d := richDocument(t)
	a, err := Serialize(d)
	require.NoError(t, err)
	b, err := Serialize(d)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSerializeWritesCanonicalNamespaces(t *testing.T) {
	d, err := NewDocument("Namespaces")
	require.NoError(t, err)
	text, err := Serialize(d)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, `<?xml version="1.0" encoding="UTF-8"?>`))
	for _, decl := range []string{
		`xmlns:bpmn="` + NSModel + `"`,
		`xmlns:bpmndi="` + NSDI + `"`,
		`xmlns:dc="` + NSDC + `"`,
		`xmlns:di="` + NSDDI + `"`,
		`xmlns:camunda="` + NSCamunda + `"`,
		`xmlns:modeler="` + NSModeler + `"`,
		`xmlns:xsi="` + NSXSI + `"`,
	} {
		assert.Contains(t, text, decl)
	}
	assert.Contains(t, text, `<dc:Bounds x="180" y="100" width="36" height="36"/>`)
}

func TestSerializeFillsMissingDiagram(t *testing.T) {
	d := New("p", "Bare")
	_, _ = d.AddNode(StartEvent, "s", "")
	_, _ = d.AddNode(Task, "t", "")
	_, _ = d.AddNode(EndEvent, "e", "")
	_, _ = d.AddEdge("s", "t", "f1", "")
	_, _ = d.AddEdge("t", "e", "f2", "")

	text, err := Serialize(d)
	require.NoError(t, err)
	_, ok := d.Shape("t")
	assert.False(t, ok, "serialize must not modify the document")

	back, err := Parse(text)
	require.NoError(t, err)
	for _, id := range []string{"s", "t", "e"} {
		_, ok := back.Shape(id)
		assert.True(t, ok, id)
	}
	s, _ := back.Shape("s")
	tk, _ := back.Shape("t")
	assert.Equal(t, Bounds{X: 180, Y: 100, Width: 36, Height: 36}, s.Bounds)
	assert.Equal(t, Bounds{X: 330, Y: 100, Width: 100, Height: 80}, tk.Bounds)
	de, ok := back.DiagramEdge("f1")
	require.True(t, ok)
	assert.Equal(t, []Point{{X: 216, Y: 118}, {X: 330, Y: 140}}, de.Waypoints)
}

const foreignInput = `<?xml version="1.0" encoding="UTF-8"?>
<definitions xmlns="http://www.omg.org/spec/BPMN/20100524/MODEL"
    xmlns:c="http://camunda.org/schema/1.0/bpmn"
    xmlns:custom="urn:example:custom"
    id="Defs" targetNamespace="urn:test">
  <process id="p1" name="Sample" isExecutable="true" custom:owner="ops">
    <startEvent id="s"/>
    <serviceTask id="svc" c:class="com.acme.Work" custom:flag="yes"/>
    <custom:note id="n1">keep me</custom:note>
    <endEvent id="e"/>
    <sequenceFlow id="f1" sourceRef="s" targetRef="svc"/>
    <sequenceFlow id="f2" sourceRef="svc" targetRef="e"/>
  </process>
</definitions>`

func TestParseNormalizesNamespaces(t *testing.T) {
	d, err := Parse(foreignInput)
	require.NoError(t, err)

	assert.Equal(t, "p1", d.ProcessID)
	assert.Equal(t, "Sample", d.ProcessName)
	assert.True(t, d.Executable)
	svc, ok := d.Node("svc")
	require.True(t, ok)
	require.NotNil(t, svc.Delegate)
	assert.Equal(t, ImplClass, svc.Delegate.Kind)
	assert.Equal(t, "com.acme.Work", svc.Delegate.Value)
	assert.Equal(t, []Attr{{Space: "urn:example:custom", Name: "flag", Value: "yes"}}, svc.Extra)
	assert.Equal(t, []Attr{{Space: "urn:example:custom", Name: "owner", Value: "ops"}}, d.ProcessExtra)
	assert.Contains(t, d.Namespaces, Namespace{Prefix: "custom", URI: "urn:example:custom"})
	require.Len(t, d.Foreign, 1)
	assert.Contains(t, d.Foreign[0], "keep me")

	text, err := Serialize(d)
	require.NoError(t, err)
	assert.Contains(t, text, `xmlns:bpmn="`+NSModel+`"`)
	assert.Contains(t, text, `xmlns:custom="urn:example:custom"`)
	assert.Contains(t, text, `custom:flag="yes"`)
	assert.Contains(t, text, `<custom:note id="n1">keep me</custom:note>`)
	assert.Contains(t, text, `camunda:class="com.acme.Work"`)

	again, err := Parse(text)
	require.NoError(t, err)
	assert.True(t, d.Equal(again))
	text2, err := Serialize(again)
	require.NoError(t, err)
	assert.Equal(t, text, text2)
}

func TestParseBindsUndeclaredCanonicalPrefixes(t *testing.T) {
	input := `<bpmn:definitions xmlns:bpmn="` + NSModel + `" id="D">
  <bpmn:process id="p" isExecutable="true">
    <bpmn:userTask id="u" camunda:formKey="Form_abc" camunda:assignee="bob"/>
  </bpmn:process>
</bpmn:definitions>`
	d, err := Parse(input)
	require.NoError(t, err)
	u, ok := d.Node("u")
	require.True(t, ok)
	require.NotNil(t, u.UserTask)
	assert.Equal(t, "Form_abc", u.UserTask.FormKey)
	assert.Equal(t, "bob", u.UserTask.Assignee)
	assert.Empty(t, u.Extra)

	text, err := Serialize(d)
	require.NoError(t, err)
	assert.Contains(t, text, `camunda:formKey="Form_abc"`)
	assert.Contains(t, text, `camunda:assignee="bob"`)
	back, err := Parse(text)
	require.NoError(t, err)
	assert.True(t, d.Equal(back))
}

func TestSerializeKeepsProcessHeaderFirst(t *testing.T) {
	input := `<bpmn:definitions xmlns:bpmn="` + NSModel + `" id="D">
  <bpmn:process id="p" isExecutable="true">
    <bpmn:documentation>Handles orders</bpmn:documentation>
    <bpmn:laneSet id="ls">
      <bpmn:lane id="sales"><bpmn:flowNodeRef>s</bpmn:flowNodeRef></bpmn:lane>
    </bpmn:laneSet>
    <bpmn:startEvent id="s"/>
    <bpmn:endEvent id="e"/>
    <bpmn:sequenceFlow id="f" sourceRef="s" targetRef="e"/>
    <bpmn:textAnnotation id="note"><bpmn:text>after</bpmn:text></bpmn:textAnnotation>
  </bpmn:process>
</bpmn:definitions>`
	d, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, d.LeadingForeign, 2)
	require.Len(t, d.Foreign, 1)

	text, err := Serialize(d)
	require.NoError(t, err)
	order := []string{"<bpmn:documentation>", "<bpmn:laneSet", "<bpmn:startEvent", "<bpmn:sequenceFlow", "<bpmn:textAnnotation"}
	last := -1
	for _, tag := range order {
		at := strings.Index(text, tag)
		require.Greater(t, at, last, tag)
		last = at
	}

	back, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, d.LeadingForeign, back.LeadingForeign)
	assert.Equal(t, d.Foreign, back.Foreign)
}

func TestParseKeepsDiagramOfForeignElements(t *testing.T) {
	input := `<bpmn:definitions xmlns:bpmn="` + NSModel + `" xmlns:bpmndi="` + NSDI + `" xmlns:dc="` + NSDC + `" id="D">
  <bpmn:process id="p" isExecutable="false">
    <bpmn:startEvent id="s"/>
    <bpmn:intermediateThrowEvent id="x"/>
  </bpmn:process>
  <bpmndi:BPMNDiagram id="dg">
    <bpmndi:BPMNPlane id="pl" bpmnElement="p">
      <bpmndi:BPMNShape id="s_di" bpmnElement="s"><dc:Bounds x="1" y="2" width="3" height="4"/></bpmndi:BPMNShape>
      <bpmndi:BPMNShape id="x_di" bpmnElement="x"><dc:Bounds x="5" y="6" width="7" height="8"/></bpmndi:BPMNShape>
    </bpmndi:BPMNPlane>
  </bpmndi:BPMNDiagram>
</bpmn:definitions>`
	d, err := Parse(input)
	require.NoError(t, err)
	assert.False(t, d.Executable)
	assert.Len(t, d.Nodes(), 1)
	s, ok := d.Shape("s")
	require.True(t, ok)
	assert.Equal(t, "s_di", s.ID)
	assert.Equal(t, Bounds{X: 1, Y: 2, Width: 3, Height: 4}, s.Bounds)
	require.Len(t, d.DiagramForeign, 1)
	assert.Contains(t, d.DiagramForeign[0], `bpmnElement="x"`)
	assert.Equal(t, "dg", d.DiagramID)
	assert.Equal(t, "pl", d.PlaneID)
}

func TestParseMalformed(t *testing.T) {
	const head = `<bpmn:definitions xmlns:bpmn="` + NSModel + `" xmlns:bpmndi="` + NSDI + `" xmlns:dc="` + NSDC + `" id="D">`
	cases := map[string]string{
		"not xml":    `<<definitely not xml`,
		"empty":      ``,
		"wrong root": `<foo xmlns="urn:x"/>`,
		"no process": head + `</bpmn:definitions>`,
		"unknown flow target": head + `<bpmn:process id="p">
			<bpmn:startEvent id="s"/>
			<bpmn:sequenceFlow id="f" sourceRef="s" targetRef="ghost"/>
			</bpmn:process></bpmn:definitions>`,
		"duplicate node": head + `<bpmn:process id="p">
			<bpmn:task id="t"/><bpmn:task id="t"/>
			</bpmn:process></bpmn:definitions>`,
		"default flow not outgoing": head + `<bpmn:process id="p">
			<bpmn:startEvent id="s"/>
			<bpmn:exclusiveGateway id="g" default="f1"/>
			<bpmn:endEvent id="e"/>
			<bpmn:sequenceFlow id="f1" sourceRef="s" targetRef="g"/>
			<bpmn:sequenceFlow id="f2" sourceRef="g" targetRef="e"/>
			</bpmn:process></bpmn:definitions>`,
		"outgoing lists unknown flow": head + `<bpmn:process id="p">
			<bpmn:startEvent id="s"><bpmn:outgoing>ghost</bpmn:outgoing></bpmn:startEvent>
			</bpmn:process></bpmn:definitions>`,
		"rule with both implementations": head + `<bpmn:process id="p" xmlns:camunda="` + NSCamunda + `">
			<bpmn:businessRuleTask id="r" camunda:delegateExpression="${x}" camunda:decisionRef="d"/>
			</bpmn:process></bpmn:definitions>`,
		"shape of unknown node": head + `<bpmn:process id="p"><bpmn:task id="t"/></bpmn:process>
			<bpmndi:BPMNDiagram id="dg"><bpmndi:BPMNPlane id="pl" bpmnElement="p">
			<bpmndi:BPMNShape id="g_di" bpmnElement="ghost"><dc:Bounds x="1" y="2" width="3" height="4"/></bpmndi:BPMNShape>
			</bpmndi:BPMNPlane></bpmndi:BPMNDiagram></bpmn:definitions>`,
		"undeclared prefix": head + `<bpmn:process id="p"><bpmn:task id="t" acme:flag="x"/></bpmn:process></bpmn:definitions>`,
		"bad bounds": head + `<bpmn:process id="p"><bpmn:task id="t"/></bpmn:process>
			<bpmndi:BPMNDiagram id="dg"><bpmndi:BPMNPlane id="pl" bpmnElement="p">
			<bpmndi:BPMNShape id="t_di" bpmnElement="t"><dc:Bounds x="wide" y="2" width="3" height="4"/></bpmndi:BPMNShape>
			</bpmndi:BPMNPlane></bpmndi:BPMNDiagram></bpmn:definitions>`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			assert.True(t, IsCode(err, ErrCodeMalformedDocument), "got %v", err)
		})
	}
}

func TestSerializeRejectsBrokenForeignFragment(t *testing.T) {
	d := New("p", "")
	d.Foreign = []string{"<unclosed"}
	_, err := Serialize(d)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeMalformedDocument))
}
