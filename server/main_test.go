package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/bpmn"
	"github.com/meikuraledutech/bpmn/sqlite"
)

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, key := range []string{"BPMN_CONFIG", "BPMN_DATABASE_URL", "BPMN_SQLITE_PATH", "BPMN_HTTP_ADDR", "BPMN_LOG_LEVEL", "BPMN_LOG_FORMAT"} {
		t.Setenv(key, env[key])
	}
}

func TestRunReturnsConfigError(t *testing.T) {
	setEnv(t, map[string]string{"BPMN_CONFIG": filepath.Join(t.TempDir(), "missing.toml")})

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

func TestRunReturnsListenError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bpmn.db")
	setEnv(t, map[string]string{
		"BPMN_SQLITE_PATH": path,
		"BPMN_HTTP_ADDR":   "127.0.0.1:99999",
		"BPMN_LOG_LEVEL":   "error",
	})

	require.Error(t, run(context.Background()))

	s, err := sqlite.Open(path)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.LatestDocument(context.Background(), "missing")
	assert.True(t, bpmn.IsCode(err, bpmn.ErrCodeNotFound), "got %v", err)
}
