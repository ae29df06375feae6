package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/bpmn"
	"github.com/meikuraledutech/bpmn/form"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	for _, key := range []string{"BPMN_CONFIG", "BPMN_LOG_LEVEL", "BPMN_LOG_FORMAT"} {
		t.Setenv(key, "")
	}
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// gatewayAfterScript is start -> script -> gateway -> {a, b}.
func gatewayAfterScript(t *testing.T) string {
	t.Helper()
	d := bpmn.New("p", "P")
	for _, n := range [][2]string{{"startEvent", "start"}, {"scriptTask", "s"}, {"exclusiveGateway", "g"}, {"task", "a"}, {"task", "b"}} {
		_, err := d.AddNode(bpmn.Variant(n[0]), n[1], n[1])
		require.NoError(t, err)
	}
	for _, e := range [][3]string{{"start", "s", "f0"}, {"s", "g", "f1"}, {"g", "a", "f2"}, {"g", "b", "f3"}} {
		_, err := d.AddEdge(e[0], e[1], e[2], "")
		require.NoError(t, err)
	}
	xml, err := bpmn.Serialize(d)
	require.NoError(t, err)
	return writeFile(t, "p.bpmn", xml)
}

func TestNewWritesProcess(t *testing.T) {
	out, _, err := run(t, "new", "Leave Request")
	require.NoError(t, err)
	d, err := bpmn.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "Leave Request", d.ProcessName)
	assert.Len(t, d.Nodes(), 2)

	path := filepath.Join(t.TempDir(), "out.bpmn")
	_, _, err = run(t, "new", "X", "-o", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bpmn:definitions")
}

func TestValidate(t *testing.T) {
	path := gatewayAfterScript(t)
	out, _, err := run(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "g: ")

	out, _, err = run(t, "--json", "validate", path)
	require.Error(t, err)
	var vs []bpmn.Violation
	require.NoError(t, json.Unmarshal([]byte(out), &vs))
	require.Len(t, vs, 1)
	assert.Equal(t, "g", vs[0].GatewayID)

	_, _, err = run(t, "validate", writeFile(t, "bad.bpmn", "<nope"))
	assert.True(t, bpmn.IsCode(err, bpmn.ErrCodeMalformedDocument))
}

func TestFix(t *testing.T) {
	path := gatewayAfterScript(t)
	dir := t.TempDir()
	fixed := filepath.Join(dir, "fixed.bpmn")
	forms := filepath.Join(dir, "forms")

	_, stderr, err := run(t, "fix", path, "-o", fixed, "--forms-dir", forms)
	require.NoError(t, err)
	assert.Contains(t, stderr, "fixed g")

	out, _, err := run(t, "validate", fixed)
	require.NoError(t, err)
	assert.Equal(t, "valid\n", out)

	entries, err := os.ReadDir(forms)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(forms, entries[0].Name()))
	require.NoError(t, err)
	f, err := form.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSuffix(entries[0].Name(), ".json"), f.ID)
}

func TestSummary(t *testing.T) {
	out, _, err := run(t, "summary", gatewayAfterScript(t))
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Diverging")
}

func TestDMN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.dmn")
	_, _, err := run(t, "dmn", "new", "Risk", "--id", "risk", "-o", path)
	require.NoError(t, err)

	out, _, err := run(t, "dmn", "validate", path)
	require.NoError(t, err)
	assert.Equal(t, "valid: risk (1 rules)\n", out)
}

func TestDelegateInspect(t *testing.T) {
	src := writeFile(t, "Charge.java", `package com.acme;
public class Charge implements org.camunda.bpm.engine.delegate.JavaDelegate {
  public void execute(Object e) {}
}`)
	out, _, err := run(t, "delegate", "inspect", "com.acme.Charge", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Package:  com.acme")

	_, _, err = run(t, "delegate", "inspect", "com.other.Charge", src)
	assert.Error(t, err)
}
