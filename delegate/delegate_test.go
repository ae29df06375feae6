package delegate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/bpmn"
)

const chargeSource = `package com.acme.billing;

import org.camunda.bpm.engine.delegate.DelegateExecution;

public class ChargeCard implements org.camunda.bpm.engine.delegate.JavaDelegate {
    @Override
    public void execute(DelegateExecution execution) throws Exception {
        execution.setVariable("charged", true);
    }
}
`

func TestInspect(t *testing.T) {
	meta, err := Inspect("com.acme.billing.ChargeCard", chargeSource)
	require.NoError(t, err)
	assert.Equal(t, Metadata{
		ClassName:  "com.acme.billing.ChargeCard",
		Package:    "com.acme.billing",
		SimpleName: "ChargeCard",
		Qualified:  true,
	}, meta)
}

func TestInspectImportedInterface(t *testing.T) {
	src := `package com.acme;

import org.camunda.bpm.engine.delegate.JavaDelegate;
import org.camunda.bpm.engine.delegate.DelegateExecution;

public class Notify implements Serializable, JavaDelegate {
  public void execute (DelegateExecution e) {}
}`
	meta, err := Inspect("com.acme.Notify", src)
	require.NoError(t, err)
	assert.False(t, meta.Qualified)
}

func TestInspectDefaultPackage(t *testing.T) {
	src := `public class Bare implements org.camunda.bpm.engine.delegate.JavaDelegate {
  public void execute(Object e) {}
}`
	meta, err := Inspect("Bare", src)
	require.NoError(t, err)
	assert.Empty(t, meta.Package)
}

func TestInspectRejects(t *testing.T) {
	cases := map[string]struct {
		class, source string
	}{
		"empty source":      {"com.acme.ChargeCard", "  "},
		"empty class":       {"", chargeSource},
		"wrong package":     {"com.other.ChargeCard", chargeSource},
		"wrong class":       {"com.acme.billing.Refund", chargeSource},
		"prefix class name": {"com.acme.billing.Charge", chargeSource},
		"no interface": {"com.acme.X", `package com.acme;
public class X { public void execute(Object e) {} }`},
		"simple name not imported": {"com.acme.X", `package com.acme;
public class X implements JavaDelegate { public void execute(Object e) {} }`},
		"no execute": {"com.acme.X", `package com.acme;
public class X implements org.camunda.bpm.engine.delegate.JavaDelegate { }`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Inspect(tc.class, tc.source)
			require.Error(t, err)
			assert.True(t, bpmn.IsCode(err, bpmn.ErrCodeInvalidAttribute))
		})
	}
}

func TestSplit(t *testing.T) {
	pkg, simple := Split("a.b.C")
	assert.Equal(t, "a.b", pkg)
	assert.Equal(t, "C", simple)
}
