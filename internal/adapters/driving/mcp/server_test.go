package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil insight service returns error", func(t *testing.T) {
		ports := &Ports{Entries: &mockEntryService{}}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingInsightService)
	})

	t.Run("nil entry service returns error", func(t *testing.T) {
		ports := &Ports{Insights: &mockInsightService{}}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingEntryService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Insights: &mockInsightService{},
			Entries:  &mockEntryService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("empty ports returns error", func(t *testing.T) {
		ports := &Ports{}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingInsightService)
	})

	t.Run("required ports only is valid", func(t *testing.T) {
		ports := &Ports{
			Insights: &mockInsightService{},
			Entries:  &mockEntryService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Insights: &mockInsightService{},
			Entries:  &mockEntryService{},
			Analysis: &mockAnalysisService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})
}
