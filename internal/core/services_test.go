package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewServices(t *testing.T) {
	env := newTestEnv(t)
	s := env.core

	assert.NotNil(t, s.Guard)
	assert.NotNil(t, s.Allocator)
	assert.NotNil(t, s.Graph)
	assert.NotNil(t, s.Dispatcher)
	assert.NotNil(t, s.Orchestrator)
	assert.NotNil(t, s.Notifier)
	assert.NotNil(t, s.Service)
	assert.NotNil(t, s.Variable)
	assert.NotNil(t, s.Source)
	assert.Same(t, s.Dispatcher, s.Orchestrator.dispatcher)
	assert.Same(t, s.Guard, s.Service.guard)
}
