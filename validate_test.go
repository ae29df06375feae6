package bpmn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatewayAfter builds start -> src -> g -> {a, b}.
func gatewayAfter(t *testing.T, src Variant) *Document {
	t.Helper()
	d := New("p", "Gateway")
	for _, n := range []struct {
		v    Variant
		id   string
		name string
	}{
		{StartEvent, "start", "Start"},
		{src, "S", "Source"},
		{ExclusiveGateway, "G", "Decide"},
		{Task, "A", "Path A"},
		{Task, "B", "Path B"},
	} {
		_, err := d.AddNode(n.v, n.id, n.name)
		require.NoError(t, err)
	}
	for _, e := range [][3]string{
		{"start", "S", "f0"},
		{"S", "G", "in"},
		{"G", "A", "toA"},
		{"G", "B", "toB"},
	} {
		_, err := d.AddEdge(e[0], e[1], e[2], "")
		require.NoError(t, err)
	}
	return d
}

func TestValidateReportsGatewayAfterServiceTask(t *testing.T) {
	d := gatewayAfter(t, ServiceTask)
	before := d.Clone()

	vs := Validate(d)
	require.Len(t, vs, 1)
	assert.Equal(t, "G", vs[0].GatewayID)
	assert.Contains(t, vs[0].Reason, "serviceTask")
	assert.True(t, before.Equal(d))

	err := Check(d)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeValidationViolation))
}

func TestValidateAcceptsDecisionSources(t *testing.T) {
	for _, v := range []Variant{UserTask, BusinessRuleTask} {
		d := gatewayAfter(t, v)
		assert.Empty(t, Validate(d), v)
		assert.NoError(t, Check(d))
	}
	for _, v := range []Variant{Task, ServiceTask, SendTask, ScriptTask, StartEvent, ParallelGateway} {
		d := gatewayAfter(t, v)
		vs := Validate(d)
		require.NotEmpty(t, vs, v)
		assert.Equal(t, "G", vs[len(vs)-1].GatewayID)
	}
}

func TestValidateExemptsConvergingGateways(t *testing.T) {
	d := gatewayAfter(t, ServiceTask)
	_, err := d.AddNode(ScriptTask, "S2", "")
	require.NoError(t, err)
	_, err = d.AddEdge("start", "S2", "", "")
	require.NoError(t, err)
	_, err = d.AddEdge("S2", "G", "", "")
	require.NoError(t, err)

	assert.Empty(t, Validate(d))
}

func TestValidateIgnoresGatewayWithoutIncoming(t *testing.T) {
	d := New("p", "")
	_, err := d.AddNode(InclusiveGateway, "G", "")
	require.NoError(t, err)
	_, err = d.AddNode(EndEvent, "E", "")
	require.NoError(t, err)
	_, err = d.AddEdge("G", "E", "", "")
	require.NoError(t, err)

	assert.Empty(t, Validate(d))
}
