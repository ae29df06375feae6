package bpmn_test

import (
	"testing"

	"github.com/meikuraledutech/bpmn"
	"github.com/meikuraledutech/bpmn/internal/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, bpmn.NewMemoryStore())
}
